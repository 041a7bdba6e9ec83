// Package ratelimit 滑动窗口计数：窗口内超过 Limit 次即拒绝。
package ratelimit

import (
	"context"
	"time"
)

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration // 最早一次命中滑出窗口的剩余时间
}

// Store 并发安全；被拒绝的请求不计入窗口
type Store interface {
	Hit(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}
