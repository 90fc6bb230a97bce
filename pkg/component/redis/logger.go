package redis

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"
)

// loggingAdapter routes go-redis internal messages (reconnects, pool
// warnings) through the global logger.
type loggingAdapter struct{}

func (l *loggingAdapter) Printf(ctx context.Context, format string, v ...interface{}) {
	logger.Global().WithCtx(ctx).Warnw("redis client", "detail", fmt.Sprintf(format, v...))
}

func init() {
	goredis.SetLogger(&loggingAdapter{})
}
