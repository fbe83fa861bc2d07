package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/ensigniasec/propmap/internal/geo"
)

// Geocode implements GET /geocode?q=. A 404 maps to geo.ErrNoMatch.
func (c *Client) Geocode(ctx context.Context, query string) (geo.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return geo.Place{}, geo.ErrEmptyQuery
	}
	q, err := queryParam("q", query)
	if err != nil {
		return geo.Place{}, err
	}
	req, err := c.newRequest(ctx, http.MethodGet, c.buildURL("/geocode", q), nil)
	if err != nil {
		return geo.Place{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return geo.Place{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		herr := handleHTTPError(resp)
		if errors.Is(herr, ErrNotFound) {
			return geo.Place{}, fmt.Errorf("%w: %w", geo.ErrNoMatch, herr)
		}
		return geo.Place{}, herr
	}
	var gr GeocodeResponse
	if err := decodeJSON(resp.Body, &gr); err != nil {
		return geo.Place{}, err
	}
	name := gr.Name
	if name == "" {
		name = query
	}
	p := geo.Place{Name: name, Point: geo.Point{Lat: gr.Lat, Lng: gr.Lng}}
	if err := p.Point.Validate(); err != nil {
		return geo.Place{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return p, nil
}

// queryParam renders a form-style query parameter.
func queryParam(name string, value any) (url.Values, error) {
	s, err := runtime.StyleParamWithLocation("form", true, name, runtime.ParamLocationQuery, value)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return url.ParseQuery(s)
}
