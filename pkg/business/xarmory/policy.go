package xarmory

import (
	"time"

	"github.com/skidsh/warcraft-armory/pkg/storage/xtier"
)

// =============================================================================
// TTL 策略
// =============================================================================

// TTLPolicy 定义一个波动性类别的缓存生命周期。
// 本地 TTL 显著短于远端：本地缓存没有跨进程失效手段，
// 只能靠快速过期压缩陈旧窗口。
type TTLPolicy struct {
	// Remote 分布式缓存 TTL。
	Remote time.Duration

	// Local 本地缓存 TTL。
	Local time.Duration
}

// defaultPolicies 返回各波动性类别的默认 TTL。
func defaultPolicies() map[xtier.Namespace]TTLPolicy {
	return map[xtier.Namespace]TTLPolicy{
		// 静态参考数据随版本更新才变化
		xtier.NamespaceStatic: {Remote: 24 * time.Hour, Local: 5 * time.Minute},
		// 档案数据半静态
		xtier.NamespaceProfile: {Remote: 45 * time.Minute, Local: 2 * time.Minute},
		// 动态数据（拍卖行等）
		xtier.NamespaceDynamic: {Remote: 10 * time.Minute, Local: time.Minute},
		// 派生聚合结果
		xtier.NamespaceDerived: {Remote: 20 * time.Minute, Local: 2 * time.Minute},
	}
}
