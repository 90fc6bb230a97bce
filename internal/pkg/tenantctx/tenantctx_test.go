package tenantctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTenantRoundTrip(t *testing.T) {
	ctx := WithTenant(context.Background(), "acme")
	got, ok := From(ctx)
	assert.True(t, ok)
	assert.Equal(t, "acme", got)

	_, ok = From(context.Background())
	assert.False(t, ok)
	assert.Equal(t, "default", FromOr(context.Background(), "default"))
	assert.Equal(t, "default", FromOr(WithTenant(context.Background(), ""), "default"))
}
