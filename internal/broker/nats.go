// Package broker publishes settled viewports to NATS so other services can react to
// what the user is looking at.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/sirupsen/logrus"

	"github.com/ensigniasec/propmap/internal/api"
	"github.com/ensigniasec/propmap/internal/geo"
)

// DefaultSubject receives one message per settled viewport.
const DefaultSubject = "propmap.viewport.settled"

// Publisher is the part of *nats.Conn the hook needs.
type Publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// Hook publishes each region as the same JSON document the HTTP backend receives.
type Hook struct {
	pub     Publisher
	subject string
	conn    *nats.Conn
}

// NewHook publishes on subject through pub. An empty subject uses DefaultSubject.
func NewHook(pub Publisher, subject string) *Hook {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Hook{pub: pub, subject: subject}
}

// Connect dials url and returns a hook owning the connection.
func Connect(url, subject string) (*Hook, error) {
	conn, err := nats.Connect(url,
		nats.Name("propmap"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logrus.Warnf("nats disconnected: %v", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	h := NewHook(conn, subject)
	h.conn = conn
	return h, nil
}

// Subject returns the subject messages are published on.
func (h *Hook) Subject() string { return h.subject }

// NotifyRegion publishes region and flushes so failures surface to the caller.
func (h *Hook) NotifyRegion(ctx context.Context, region geo.Region) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := json.Marshal(api.ViewportRequest{
		North:     region.North,
		South:     region.South,
		East:      region.East,
		West:      region.West,
		RequestID: openapi_types.UUID(uuid.New()),
	})
	if err != nil {
		return err
	}
	if err := h.pub.Publish(h.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", h.subject, err)
	}
	if err := h.pub.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", h.subject, err)
	}
	return nil
}

// Close drains the owned connection, if any.
func (h *Hook) Close() error {
	if h.conn == nil {
		return nil
	}
	return h.conn.Drain()
}
