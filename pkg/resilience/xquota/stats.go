package xquota

import (
	"context"
	"strconv"
)

// =============================================================================
// 配额快照
// =============================================================================

// Stats 表示当前各配额桶的使用快照。
// 读取是 best-effort 的：不可读或不存在的桶按 0 计，
// 快照用于观测与诊断，不用于准入判定。
type Stats struct {
	// GlobalSecondUsed 当前秒桶的已用计数。
	GlobalSecondUsed int64
	// GlobalSecondLimit 全局每秒配额上限。
	GlobalSecondLimit int64
	// GlobalHourUsed 当前时桶的已用计数。
	GlobalHourUsed int64
	// GlobalHourLimit 全局每小时配额上限。
	GlobalHourLimit int64
	// CallerMinuteUsed 调用方当前分桶的已用计数，callerID 为空时恒为 0。
	CallerMinuteUsed int64
	// CallerMinuteLimit 调用方每分钟配额上限。
	CallerMinuteLimit int64
	// CallerHourUsed 调用方当前时桶的已用计数，callerID 为空时恒为 0。
	CallerHourUsed int64
	// CallerHourLimit 调用方每小时配额上限。
	CallerHourLimit int64
}

// Stats 实现 Coordinator 接口。
func (c *coordinator) Stats(ctx context.Context, callerID string) *Stats {
	stats := &Stats{
		GlobalSecondLimit: c.options.GlobalPerSecond,
		GlobalHourLimit:   c.options.GlobalPerHour,
		CallerMinuteLimit: c.options.CallerPerMinute,
		CallerHourLimit:   c.options.CallerPerHour,
	}
	if c.closed.Load() {
		return stats
	}

	now := c.now()
	stats.GlobalSecondUsed = c.readCounter(ctx, globalSecondKey(c.options.KeyPrefix, now))
	stats.GlobalHourUsed = c.readCounter(ctx, globalHourKey(c.options.KeyPrefix, now))
	if callerID != "" {
		stats.CallerMinuteUsed = c.readCounter(ctx, callerMinuteKey(c.options.KeyPrefix, callerID, now))
		stats.CallerHourUsed = c.readCounter(ctx, callerHourKey(c.options.KeyPrefix, callerID, now))
	}
	return stats
}

// readCounter 读取单个计数桶，任何失败都按 0 计。
func (c *coordinator) readCounter(ctx context.Context, key string) int64 {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return 0
	}
	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}
	return count
}
