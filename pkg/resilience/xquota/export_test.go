package xquota

import (
	"context"
	"time"
)

// SetNow 注入测试时钟（仅用于测试）。
//
// 此函数仅在 go test 期间可用，生产代码不可调用。
func SetNow(c Coordinator, now func() time.Time) {
	c.(*coordinator).now = now
}

// SetSleep 注入测试睡眠函数（仅用于测试）。
func SetSleep(c Coordinator, sleep func(ctx context.Context, d time.Duration) error) {
	c.(*coordinator).sleep = sleep
}

// 导出内部 key 构建函数供窗口测试使用。
var (
	GlobalSecondKey = globalSecondKey
	GlobalHourKey   = globalHourKey
	CallerMinuteKey = callerMinuteKey
	CallerHourKey   = callerHourKey
	UntilNextSecond = untilNextSecond
	UntilNextHour   = untilNextHour
)
