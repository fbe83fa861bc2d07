package api

import (
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// HealthStatus is the state reported by GET /health.
type HealthStatus string

const (
	Healthy   HealthStatus = "healthy"
	Unhealthy HealthStatus = "unhealthy"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status HealthStatus `json:"status"`
}

// ErrorBody is the error envelope returned by the backend.
type ErrorBody struct {
	Error     string  `json:"error"`
	Message   string  `json:"message"`
	RequestID *string `json:"request_id,omitempty"`
}

// ViewportRequest is the body of POST /viewport.
type ViewportRequest struct {
	North     float64            `json:"north"`
	South     float64            `json:"south"`
	East      float64            `json:"east"`
	West      float64            `json:"west"`
	RequestID openapi_types.UUID `json:"request_id"`
}

// GeocodeResponse is the body of GET /geocode.
type GeocodeResponse struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}
