package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), Protocol: 2})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return mr, rdb
}

func TestCheckTenant(t *testing.T) {
	for _, ok := range []string{"default", "acme", "five-season_2"} {
		require.NoError(t, CheckTenant(ok), ok)
	}
	for _, bad := range []string{"", "-lead", "a*", "a:b", "a}b", "a b", "x{y}"} {
		require.ErrorIs(t, CheckTenant(bad), ErrInvalidTenant, bad)
	}
}
