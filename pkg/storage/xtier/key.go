package xtier

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Namespace 表示数据的波动性分类，直接进入缓存 key。
// 与 Battle.net 的 namespace 体系对齐：static/dynamic/profile，
// derived 用于本系统自行聚合的检索结果。
type Namespace string

const (
	// NamespaceStatic 静态参考数据（物品、职业、种族等），以天计的 TTL。
	NamespaceStatic Namespace = "static"

	// NamespaceDynamic 动态数据（拍卖行、战场状态等），以分钟计的 TTL。
	NamespaceDynamic Namespace = "dynamic"

	// NamespaceProfile 角色/公会档案数据，半静态。
	NamespaceProfile Namespace = "profile"

	// NamespaceDerived 派生数据（搜索结果、排行聚合）。
	NamespaceDerived Namespace = "derived"
)

// maxIdentifierLen 标识符进入 key 的最大长度。
// 超长标识符（如检索表达式）以 xxhash 摘要替代，避免 Redis key 无界增长。
const maxIdentifierLen = 64

// Key 描述一条缓存数据的逻辑坐标。
// 相同的逻辑请求必须产生相同的 Key——所有分量在 String 时统一小写。
type Key struct {
	// Family 资源族，如 "wow"。
	Family string

	// Region 数据分区，如 "us"、"eu"。
	Region string

	// Namespace 波动性分类，决定 TTL 策略。
	Namespace Namespace

	// Category 资源类别，如 "character"、"item"、"guild"。
	Category string

	// ID 资源标识，如 "tichondrius/thrall" 或 "19019"。
	ID string

	// Version 缓存值的 schema 版本。
	// 值的序列化格式变更时递增，旧条目随 key 变化自然失效，
	// 而不是在读取时产生反序列化错误。
	Version int
}

// String 返回规范化的缓存 key：
// "{family}:{region}:{namespace}:{category}:{id}:v{version}"。
func (k Key) String() string {
	id := strings.ToLower(k.ID)
	if len(id) > maxIdentifierLen {
		id = "xxh:" + fmt.Sprintf("%016x", xxhash.Sum64String(id))
	}

	return strings.ToLower(k.Family) + ":" +
		strings.ToLower(k.Region) + ":" +
		strings.ToLower(string(k.Namespace)) + ":" +
		strings.ToLower(k.Category) + ":" +
		id + ":v" + fmt.Sprint(k.Version)
}

// Prefix 返回不含 ID 与版本的 key 前缀，用于管理性的按前缀删除。
func (k Key) Prefix() string {
	return strings.ToLower(k.Family) + ":" +
		strings.ToLower(k.Region) + ":" +
		strings.ToLower(string(k.Namespace)) + ":" +
		strings.ToLower(k.Category) + ":"
}
