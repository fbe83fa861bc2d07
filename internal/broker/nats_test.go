package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensigniasec/propmap/internal/api"
	"github.com/ensigniasec/propmap/internal/geo"
)

type fakePublisher struct {
	subject  string
	data     []byte
	pubErr   error
	flushErr error
	flushed  int
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.subject, f.data = subject, data
	return f.pubErr
}

func (f *fakePublisher) FlushWithContext(context.Context) error {
	f.flushed++
	return f.flushErr
}

func TestHookPublishesRegion(t *testing.T) {
	pub := &fakePublisher{}
	h := NewHook(pub, "")
	r := geo.Region{North: 19.3, South: 19.1, East: 73.1, West: 72.9}

	require.NoError(t, h.NotifyRegion(context.Background(), r))
	assert.Equal(t, DefaultSubject, pub.subject)
	assert.Equal(t, 1, pub.flushed)

	var msg api.ViewportRequest
	require.NoError(t, json.Unmarshal(pub.data, &msg))
	assert.InDelta(t, r.North, msg.North, 1e-9)
	assert.InDelta(t, r.West, msg.West, 1e-9)
	assert.NotEmpty(t, msg.RequestID.String())
}

func TestHookErrors(t *testing.T) {
	boom := errors.New("boom")
	r := geo.Region{}

	err := NewHook(&fakePublisher{pubErr: boom}, "s").NotifyRegion(context.Background(), r)
	require.ErrorIs(t, err, boom)

	err = NewHook(&fakePublisher{flushErr: boom}, "s").NotifyRegion(context.Background(), r)
	require.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pub := &fakePublisher{}
	err = NewHook(pub, "s").NotifyRegion(ctx, r)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, pub.data)
}

func TestCloseWithoutConnection(t *testing.T) {
	h := NewHook(&fakePublisher{}, "custom")
	assert.Equal(t, "custom", h.Subject())
	require.NoError(t, h.Close())
}
