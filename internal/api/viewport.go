package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/propmap/internal/geo"
)

// NotifyRegion implements POST /viewport. Any 2xx is success.
func (c *Client) NotifyRegion(ctx context.Context, region geo.Region) error {
	body := ViewportRequest{
		North:     region.North,
		South:     region.South,
		East:      region.East,
		West:      region.West,
		RequestID: openapi_types.UUID(uuid.New()),
	}
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.buildURL("/viewport", nil), buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", body.RequestID.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		logrus.Debugf("viewport %s accepted (request_id=%s)", region, body.RequestID)
		return nil
	}
	return handleHTTPError(resp)
}
