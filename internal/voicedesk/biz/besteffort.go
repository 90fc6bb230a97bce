package biz

import (
	"context"

	"github.com/kart-io/logger"
)

// persistBestEffort 执行一次可失败的写操作。失败只记录日志，不向调用方传播，
// webhook 的应答不因存储故障而失败。返回操作是否成功。
func persistBestEffort(ctx context.Context, op string, fn func(context.Context) error, kv ...interface{}) bool {
	if err := fn(ctx); err != nil {
		fields := append([]interface{}{"op", op, "error", err}, kv...)
		logger.Warnw("best-effort persistence failed", fields...)
		return false
	}
	return true
}
