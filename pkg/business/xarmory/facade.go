package xarmory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/skidsh/warcraft-armory/pkg/business/xbnet"
	"github.com/skidsh/warcraft-armory/pkg/business/xoauth"
	"github.com/skidsh/warcraft-armory/pkg/observability/xobs"
	"github.com/skidsh/warcraft-armory/pkg/resilience/xquota"
	"github.com/skidsh/warcraft-armory/pkg/storage/xtier"
)

// =============================================================================
// 资源描述
// =============================================================================

// Resource 描述一次只读读取的目标资源。
// 缓存坐标（Family/Region/Class/Category/ID/Version）决定缓存 key 与 TTL；
// Path 与 SourceNamespace 决定回源请求。
type Resource struct {
	// Family 资源族，如 "wow"。
	Family string

	// Region 数据分区。
	Region string

	// Class 波动性类别，同时作为缓存 key 的 namespace 分量与 TTL 策略的查表键。
	Class xtier.Namespace

	// Category 资源类别，如 "character"、"item"。
	Category string

	// ID 资源标识。
	ID string

	// Version 缓存值的 schema 版本。
	Version int

	// Path 上游请求路径，如 "/profile/wow/character/tichondrius/thrall"。
	Path string

	// SourceNamespace 上游 Battlenet-Namespace 头，如 "profile-us"。
	// 派生资源没有对应的上游端点时留空。
	SourceNamespace string
}

// key 返回资源的缓存 key。
func (r Resource) key() string {
	return xtier.Key{
		Family:    r.Family,
		Region:    r.Region,
		Namespace: r.Class,
		Category:  r.Category,
		ID:        r.ID,
		Version:   r.Version,
	}.String()
}

// validate 检查资源描述的完整性。
func (r Resource) validate() error {
	if r.Family == "" || r.Region == "" || r.Category == "" || r.ID == "" || r.Path == "" {
		return ErrInvalidResource
	}
	return nil
}

// =============================================================================
// Fetch 选项
// =============================================================================

// fetchOptions 单次 Fetch 的附加参数。
type fetchOptions struct {
	callerID string
}

// FetchOption 定义 Fetch 的可选参数。
type FetchOption func(*fetchOptions)

// WithCallerID 设置调用方标识，触发调用方级准入检查。
// 未设置时跳过调用方配额（如内部维护任务）。
func WithCallerID(callerID string) FetchOption {
	return func(o *fetchOptions) {
		o.callerID = callerID
	}
}

// =============================================================================
// 门面
// =============================================================================

// Config 定义门面的依赖与配置。
type Config struct {
	// Quota 配额协调器，必填。
	Quota xquota.Coordinator

	// Credentials 凭据管理器，必填。
	Credentials *xoauth.Manager

	// Source 上游客户端，必填。
	Source *xbnet.Client

	// Remote 分布式缓存，必填。
	Remote *xtier.Remote

	// Local 本地缓存，可选。为 nil 时跳过本地层。
	Local *xtier.Memory

	// Policies 各波动性类别的 TTL 覆盖，未覆盖的类别使用默认值。
	Policies map[xtier.Namespace]TTLPolicy

	// Logger 默认 slog.Default()，传入 nil 禁用日志。
	Logger *slog.Logger

	// Observer 观测接口，默认 NoopObserver。
	Observer xobs.Observer
}

// Facade 资源读取门面。并发安全。
type Facade struct {
	quota    xquota.Coordinator
	creds    *xoauth.Manager
	source   *xbnet.Client
	remote   *xtier.Remote
	local    *xtier.Memory
	policies map[xtier.Namespace]TTLPolicy
	logger   *slog.Logger
	observer xobs.Observer
}

// New 创建门面。Quota、Credentials、Source、Remote 为必填依赖。
func New(cfg Config) (*Facade, error) {
	if cfg.Quota == nil {
		return nil, ErrNilCoordinator
	}
	if cfg.Credentials == nil {
		return nil, ErrNilCredentials
	}
	if cfg.Source == nil {
		return nil, ErrNilSource
	}
	if cfg.Remote == nil {
		return nil, ErrNilRemote
	}

	policies := defaultPolicies()
	for class, policy := range cfg.Policies {
		if policy.Remote > 0 && policy.Local > 0 {
			policies[class] = policy
		}
	}

	logger := cfg.Logger
	observer := cfg.Observer
	if observer == nil {
		observer = xobs.NoopObserver{}
	}

	return &Facade{
		quota:    cfg.Quota,
		creds:    cfg.Credentials,
		source:   cfg.Source,
		remote:   cfg.Remote,
		local:    cfg.Local,
		policies: policies,
		logger:   logger,
		observer: observer,
	}, nil
}

// Fetch 读取一个资源并映射为 *T。
//
// 返回 (nil, nil) 表示上游确认数据不存在——与瞬态失败严格区分。
// 缓存层故障不会导致失败（降级为回源）；可能的错误为
// ErrQuotaExceeded、xquota.ErrSaturated、xoauth.ErrAcquireFailed、
// xbnet.ErrTransient/ErrUpstream/ErrSourceRateLimited 以及映射函数自身的错误。
func Fetch[T any](ctx context.Context, f *Facade, res Resource, mapFn func([]byte) (*T, error), opts ...FetchOption) (*T, error) {
	if mapFn == nil {
		return nil, ErrNilMapFn
	}
	if err := res.validate(); err != nil {
		return nil, err
	}

	options := &fetchOptions{}
	for _, opt := range opts {
		opt(options)
	}

	policy, ok := f.policies[res.Class]
	if !ok {
		return nil, fmt.Errorf("%w: unknown class %q", ErrInvalidResource, res.Class)
	}

	ctx, span := xobs.Start(ctx, f.observer, xobs.SpanOptions{
		Component: "xarmory",
		Operation: "fetch",
		Kind:      xobs.KindInternal,
		Attrs: []xobs.Attr{
			xobs.String("region", res.Region),
			xobs.String("category", res.Category),
		},
	})
	value, err := fetch(ctx, f, res, policy, mapFn, options)
	span.End(xobs.Result{Err: err})
	return value, err
}

func fetch[T any](ctx context.Context, f *Facade, res Resource, policy TTLPolicy, mapFn func([]byte) (*T, error), options *fetchOptions) (*T, error) {
	// 1. 调用方准入
	if options.callerID != "" {
		admitted, err := f.quota.AdmitCaller(ctx, options.callerID)
		if err != nil {
			return nil, err
		}
		if !admitted {
			return nil, fmt.Errorf("%w: caller %q", ErrQuotaExceeded, options.callerID)
		}
	}

	key := res.key()

	// 2. 本地缓存
	if f.local != nil {
		if cached, ok := f.local.Get(key); ok {
			if value, ok := cached.(*T); ok {
				return value, nil
			}
			// 同一 key 出现类型不一致说明 Version 未随 schema 变更递增，
			// 丢弃后走正常回源路径覆盖
			f.local.Remove(key)
		}
	}

	// 3. 分布式缓存 + 回源
	value, err := xtier.GetOrSet(ctx, f.remote, key, policy.Remote, func(ctx context.Context) (*T, error) {
		return produce(ctx, f, res, mapFn)
	})
	if err != nil {
		// 回源函数用 (nil, nil) 表达"上游确认不存在"
		if errors.Is(err, xtier.ErrProducerEmpty) {
			return nil, nil
		}
		return nil, err
	}

	// 4. 回填本地缓存
	if f.local != nil {
		f.local.Set(key, value, policy.Local)
	}
	return value, nil
}

// produce 执行一次真正的上游读取：全局槽位 → 凭据 → 请求 → 映射。
func produce[T any](ctx context.Context, f *Facade, res Resource, mapFn func([]byte) (*T, error)) (*T, error) {
	if err := f.quota.AwaitGlobalSlot(ctx); err != nil {
		return nil, err
	}

	token, err := f.creds.Token(ctx, res.Region)
	if err != nil {
		return nil, err
	}

	body, err := f.source.Get(ctx, res.Region, res.Path, res.SourceNamespace, token)
	if err != nil {
		if errors.Is(err, xbnet.ErrNotFound) {
			if logger := f.logger; logger != nil {
				logger.DebugContext(ctx, "xarmory: resource absent at source",
					slog.String("region", res.Region),
					slog.String("path", res.Path))
			}
			return nil, nil
		}
		return nil, err
	}

	return mapFn(body)
}

// Invalidate 删除一个资源的本地与分布式缓存条目。
func (f *Facade) Invalidate(ctx context.Context, res Resource) error {
	key := res.key()
	if f.local != nil {
		f.local.Remove(key)
	}
	return f.remote.Remove(ctx, key)
}

// InvalidateCategory 删除某分区某类别下的所有分布式缓存条目，返回删除条数。
// 本地缓存不支持按前缀删除，残留条目随本地 TTL 自然过期。
func (f *Facade) InvalidateCategory(ctx context.Context, res Resource) (int64, error) {
	prefix := xtier.Key{
		Family:    res.Family,
		Region:    res.Region,
		Namespace: res.Class,
		Category:  res.Category,
	}.Prefix()
	return f.remote.RemoveByPrefix(ctx, prefix)
}

// QuotaStats 返回当前配额使用快照。
func (f *Facade) QuotaStats(ctx context.Context, callerID string) *xquota.Stats {
	return f.quota.Stats(ctx, callerID)
}
