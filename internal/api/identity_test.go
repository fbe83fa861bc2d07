package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityRoundTripsThroughContext(t *testing.T) {
	t.Parallel()

	for _, id := range []Identity{
		{OrgUUID: "org-123", ClientUUID: "client-456"},
		{OrgUUID: "org-ignored", ClientUUID: "client-ignored", Anonymous: true},
		{},
	} {
		got, ok := IdentityFromContext(WithIdentity(context.Background(), id))
		assert.True(t, ok)
		assert.Equal(t, id, got)
	}
}

func TestIdentityFromContextMissingOrMistyped(t *testing.T) {
	t.Parallel()

	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	ctx := context.WithValue(context.Background(), identityKey, "client-456")
	_, ok = IdentityFromContext(ctx)
	assert.False(t, ok)
}
