package xquota_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/skidsh/warcraft-armory/pkg/resilience/xquota"
)

var bucketTime = time.Date(2026, 8, 23, 14, 5, 9, 300*int(time.Millisecond), time.UTC)

func TestBucketKeys_CanonicalFormats(t *testing.T) {
	assert.Equal(t, "quota:global:sec:20260823140509", xquota.GlobalSecondKey("quota", bucketTime))
	assert.Equal(t, "quota:global:hour:2026082314", xquota.GlobalHourKey("quota", bucketTime))
	assert.Equal(t, "quota:caller:svc-a:min:202608231405", xquota.CallerMinuteKey("quota", "svc-a", bucketTime))
	assert.Equal(t, "quota:caller:svc-a:hour:2026082314", xquota.CallerHourKey("quota", "svc-a", bucketTime))
}

func TestBucketKeys_NonUTCInputNormalized(t *testing.T) {
	// UTC+8 的 22:05 与 UTC 的 14:05 是同一时刻，必须落进同一个桶
	cst := time.FixedZone("CST", 8*3600)
	local := bucketTime.In(cst)

	assert.Equal(t,
		xquota.GlobalSecondKey("quota", bucketTime),
		xquota.GlobalSecondKey("quota", local))
	assert.Equal(t,
		xquota.CallerHourKey("quota", "svc-a", bucketTime),
		xquota.CallerHourKey("quota", "svc-a", local))
}

func TestUntilNextSecond(t *testing.T) {
	assert.Equal(t, 700*time.Millisecond, xquota.UntilNextSecond(bucketTime))

	exact := time.Date(2026, 8, 23, 14, 5, 9, 0, time.UTC)
	assert.Equal(t, time.Second, xquota.UntilNextSecond(exact))
}

func TestUntilNextHour(t *testing.T) {
	want := time.Date(2026, 8, 23, 15, 0, 0, 0, time.UTC).Sub(bucketTime)
	assert.Equal(t, want, xquota.UntilNextHour(bucketTime))
}
