package xquota

import "time"

// =============================================================================
// 固定墙钟时间桶
// =============================================================================

// 桶名取 UTC 时间的截断格式。所有实例的时钟经 NTP 对齐后，
// 同一时刻必然落进同一个桶，计数天然汇聚。
const (
	secondBucketLayout = "20060102150405"
	minuteBucketLayout = "200601021504"
	hourBucketLayout   = "2006010215"
)

// 桶的 Redis 过期时间 = 桶宽 + 富余量。
// 富余量保证活跃桶一定比自身窗口活得久，晚到的 INCR 不会落在已过期的 key 上；
// 桶过期即自动归零，无需任何清理任务。
const (
	secondBucketExpiry = time.Second + 2*time.Second
	minuteBucketExpiry = time.Minute + 2*time.Minute
	hourBucketExpiry   = time.Hour + 5*time.Minute
)

// globalSecondKey 返回全局秒桶的 key：{prefix}:global:sec:{yyyyMMddHHmmss}。
func globalSecondKey(prefix string, now time.Time) string {
	return prefix + ":global:sec:" + now.UTC().Format(secondBucketLayout)
}

// globalHourKey 返回全局时桶的 key：{prefix}:global:hour:{yyyyMMddHH}。
func globalHourKey(prefix string, now time.Time) string {
	return prefix + ":global:hour:" + now.UTC().Format(hourBucketLayout)
}

// callerMinuteKey 返回调用方分桶的 key：{prefix}:caller:{id}:min:{yyyyMMddHHmm}。
func callerMinuteKey(prefix, callerID string, now time.Time) string {
	return prefix + ":caller:" + callerID + ":min:" + now.UTC().Format(minuteBucketLayout)
}

// callerHourKey 返回调用方时桶的 key：{prefix}:caller:{id}:hour:{yyyyMMddHH}。
func callerHourKey(prefix, callerID string, now time.Time) string {
	return prefix + ":caller:" + callerID + ":hour:" + now.UTC().Format(hourBucketLayout)
}

// untilNextSecond 返回从 now 到下一个秒边界的时长。
func untilNextSecond(now time.Time) time.Duration {
	return now.Truncate(time.Second).Add(time.Second).Sub(now)
}

// untilNextHour 返回从 now 到下一个小时边界的时长。
func untilNextHour(now time.Time) time.Duration {
	return now.UTC().Truncate(time.Hour).Add(time.Hour).Sub(now.UTC())
}
