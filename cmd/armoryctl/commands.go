package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/skidsh/warcraft-armory/pkg/business/xarmory"
	"github.com/skidsh/warcraft-armory/pkg/business/xbnet"
	"github.com/skidsh/warcraft-armory/pkg/business/xoauth"
	"github.com/skidsh/warcraft-armory/pkg/config/xsetting"
	"github.com/skidsh/warcraft-armory/pkg/observability/xlogging"
	"github.com/skidsh/warcraft-armory/pkg/resilience/xquota"
	"github.com/skidsh/warcraft-armory/pkg/storage/xtier"
)

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createFetchCommand(),
		createStatsCommand(),
		createInvalidateCommand(),
	}
}

// resourceFlags fetch 与 invalidate 共用的资源坐标参数。
func resourceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "family", Usage: "资源族", Value: "wow"},
		&cli.StringFlag{Name: "region", Usage: "数据分区 (us/eu/kr/tw)", Required: true},
		&cli.StringFlag{Name: "class", Usage: "波动性类别 (static/profile/dynamic/derived)", Required: true},
		&cli.StringFlag{Name: "category", Usage: "资源类别，如 character、item", Required: true},
		&cli.StringFlag{Name: "id", Usage: "资源标识"},
		&cli.IntFlag{Name: "schema-version", Usage: "缓存 schema 版本", Value: 1},
	}
}

// createFetchCommand 创建 fetch 子命令。
func createFetchCommand() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "读取一个资源并输出 JSON",
		Flags: append(resourceFlags(),
			&cli.StringFlag{Name: "path", Usage: "上游请求路径", Required: true},
			&cli.StringFlag{Name: "namespace", Usage: "上游 Battlenet-Namespace 头"},
			&cli.StringFlag{Name: "caller", Usage: "调用方标识，触发调用方配额检查"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdFetch(ctx, cmd)
		},
	}
}

// createStatsCommand 创建 stats 子命令。
func createStatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "查看当前配额使用快照",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "caller", Usage: "调用方标识，附带调用方桶的使用量"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdStats(ctx, cmd)
		},
	}
}

// createInvalidateCommand 创建 invalidate 子命令。
func createInvalidateCommand() *cli.Command {
	return &cli.Command{
		Name:  "invalidate",
		Usage: "删除资源的缓存条目",
		Flags: append(resourceFlags(),
			&cli.BoolFlag{Name: "all", Usage: "删除该分区该类别下的所有条目"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cmdInvalidate(ctx, cmd)
		},
	}
}

// =============================================================================
// 命令实现
// =============================================================================

func cmdFetch(ctx context.Context, cmd *cli.Command) error {
	stack, err := buildStack(cmd.String("config"))
	if err != nil {
		return err
	}
	defer stack.close()

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	res, err := resourceFromFlags(cmd)
	if err != nil {
		return err
	}
	res.Path = cmd.String("path")
	res.SourceNamespace = cmd.String("namespace")

	var opts []xarmory.FetchOption
	if caller := cmd.String("caller"); caller != "" {
		opts = append(opts, xarmory.WithCallerID(caller))
	}

	value, err := xarmory.Fetch(ctx, stack.facade, res, rawMapFn, opts...)
	if err != nil {
		return err
	}
	if value == nil {
		return fmt.Errorf("resource not found: %s %s", res.Category, res.ID)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, *value, "", "  "); err != nil {
		// 上游返回的不是合法 JSON 时原样输出
		fmt.Fprintln(cmd.Root().Writer, string(*value))
		return nil
	}
	fmt.Fprintln(cmd.Root().Writer, pretty.String())
	return nil
}

func cmdStats(ctx context.Context, cmd *cli.Command) error {
	stack, err := buildStack(cmd.String("config"))
	if err != nil {
		return err
	}
	defer stack.close()

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	caller := cmd.String("caller")
	stats := stack.facade.QuotaStats(ctx, caller)

	out := cmd.Root().Writer
	fmt.Fprintf(out, "global/second: %d/%d\n", stats.GlobalSecondUsed, stats.GlobalSecondLimit)
	fmt.Fprintf(out, "global/hour:   %d/%d\n", stats.GlobalHourUsed, stats.GlobalHourLimit)
	if caller != "" {
		fmt.Fprintf(out, "%s/minute: %d/%d\n", caller, stats.CallerMinuteUsed, stats.CallerMinuteLimit)
		fmt.Fprintf(out, "%s/hour:   %d/%d\n", caller, stats.CallerHourUsed, stats.CallerHourLimit)
	}
	return nil
}

func cmdInvalidate(ctx context.Context, cmd *cli.Command) error {
	stack, err := buildStack(cmd.String("config"))
	if err != nil {
		return err
	}
	defer stack.close()

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	res, err := resourceFromFlags(cmd)
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	if cmd.Bool("all") {
		removed, err := stack.facade.InvalidateCategory(ctx, res)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "removed %d entries\n", removed)
		return nil
	}

	if res.ID == "" {
		return fmt.Errorf("armoryctl: --id required unless --all is set")
	}
	if err := stack.facade.Invalidate(ctx, res); err != nil {
		return err
	}
	fmt.Fprintln(out, "ok")
	return nil
}

// rawMapFn 原样透传上游 JSON，供调试输出。
func rawMapFn(body []byte) (*json.RawMessage, error) {
	raw := json.RawMessage(bytes.Clone(body))
	return &raw, nil
}

// resourceFromFlags 从命令行参数构造资源坐标。
func resourceFromFlags(cmd *cli.Command) (xarmory.Resource, error) {
	class := xtier.Namespace(cmd.String("class"))
	switch class {
	case xtier.NamespaceStatic, xtier.NamespaceProfile, xtier.NamespaceDynamic, xtier.NamespaceDerived:
	default:
		return xarmory.Resource{}, fmt.Errorf("armoryctl: unknown class %q", class)
	}

	return xarmory.Resource{
		Family:   cmd.String("family"),
		Region:   cmd.String("region"),
		Class:    class,
		Category: cmd.String("category"),
		ID:       cmd.String("id"),
		Version:  cmd.Int("schema-version"),
	}, nil
}

// =============================================================================
// 组件装配
// =============================================================================

// stack 按配置装配的完整读取链路。
type stack struct {
	facade   *xarmory.Facade
	cleanups []func() error
}

// close 逆序释放资源。
func (s *stack) close() {
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		_ = s.cleanups[i]()
	}
}

// buildStack 从配置文件装配配额、缓存、凭据、上游与门面。
func buildStack(configPath string) (*stack, error) {
	settings, err := xsetting.Load(configPath)
	if err != nil {
		return nil, err
	}

	s := &stack{}

	logger, logCleanup, err := buildLogger(settings.Logging)
	if err != nil {
		return nil, err
	}
	s.cleanups = append(s.cleanups, logCleanup)

	client := redis.NewClient(&redis.Options{Addr: settings.Cache.RedisAddr})
	s.cleanups = append(s.cleanups, client.Close)

	remoteOpts := []xtier.RemoteOption{
		xtier.WithLogger(logger),
		xtier.WithSingleflight(settings.Cache.Singleflight),
	}
	if settings.Cache.FillLock {
		rs := redsync.New(goredis.NewPool(client))
		remoteOpts = append(remoteOpts, xtier.WithFillLock(rs, 30*time.Second))
	}
	remote, err := xtier.NewRemote(client, remoteOpts...)
	if err != nil {
		s.close()
		return nil, err
	}
	s.cleanups = append(s.cleanups, remote.Close)

	local, err := xtier.NewMemory()
	if err != nil {
		s.close()
		return nil, err
	}
	s.cleanups = append(s.cleanups, func() error { local.Close(); return nil })

	quota, err := xquota.New(client,
		xquota.WithKeyPrefix(settings.Quota.KeyPrefix),
		xquota.WithGlobalCeilings(settings.Quota.GlobalPerSecond, settings.Quota.GlobalPerHour),
		xquota.WithCallerCeilings(settings.Quota.CallerPerMinute, settings.Quota.CallerPerHour),
		xquota.WithMaxSlotRetries(settings.Quota.MaxSlotRetries),
		xquota.WithLogger(logger),
	)
	if err != nil {
		s.close()
		return nil, err
	}
	s.cleanups = append(s.cleanups, quota.Close)

	oauthOpts := []xoauth.Option{
		xoauth.WithRegions(settings.OAuth.Regions...),
		xoauth.WithSafetyBuffer(settings.OAuth.SafetyBuffer),
		xoauth.WithLogger(logger),
	}
	for region, url := range settings.OAuth.TokenURLs {
		oauthOpts = append(oauthOpts, xoauth.WithTokenURL(region, url))
	}
	creds, err := xoauth.New(settings.OAuth.ClientID, settings.OAuth.ClientSecret, oauthOpts...)
	if err != nil {
		s.close()
		return nil, err
	}

	sourceOpts := []xbnet.Option{
		xbnet.WithBreaker(settings.Source.Breaker),
		xbnet.WithLogger(logger),
	}
	if settings.Source.Breaker {
		sourceOpts = append(sourceOpts,
			xbnet.WithBreakerThreshold(settings.Source.BreakerThreshold),
			xbnet.WithBreakerOpenTimeout(settings.Source.BreakerOpenTimeout),
		)
	}
	for region, url := range settings.Source.BaseURLs {
		sourceOpts = append(sourceOpts, xbnet.WithBaseURL(region, url))
	}
	source := xbnet.New(sourceOpts...)

	policies := make(map[xtier.Namespace]xarmory.TTLPolicy, len(settings.Cache.TTL))
	for class, ttl := range settings.Cache.TTL {
		policies[xtier.Namespace(class)] = xarmory.TTLPolicy{Remote: ttl.Remote, Local: ttl.Local}
	}

	facade, err := xarmory.New(xarmory.Config{
		Quota:       quota,
		Credentials: creds,
		Source:      source,
		Remote:      remote,
		Local:       local,
		Policies:    policies,
		Logger:      logger,
	})
	if err != nil {
		s.close()
		return nil, err
	}

	s.facade = facade
	return s, nil
}

// buildLogger 按配置构建日志实例。
func buildLogger(cfg xsetting.LoggingSettings) (*slog.Logger, func() error, error) {
	b := xlogging.New().
		SetLevelString(cfg.Level).
		SetFormat(cfg.Format).
		SetAddSource(cfg.AddSource)
	if cfg.File != "" {
		b.SetRotation(cfg.File,
			xlogging.WithMaxSize(cfg.MaxSizeMB),
			xlogging.WithMaxBackups(cfg.MaxBackups),
			xlogging.WithMaxAge(cfg.MaxAgeDays))
	}
	return b.Build()
}
