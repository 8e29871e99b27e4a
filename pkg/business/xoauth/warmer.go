package xoauth

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
)

// defaultWarmTimeout 单轮预热的总超时。
const defaultWarmTimeout = 30 * time.Second

// Regions 返回已配置的分区列表，按字典序排列。
func (m *Manager) Regions() []string {
	regions := make([]string, 0, len(m.options.TokenURLs))
	for region := range m.options.TokenURLs {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}

// Warmer 周期性预热各分区的凭据。
//
// 冷启动后首个请求无需等待认证往返；接近过期的凭据在请求到来前
// 就被换新。预热失败只记日志，不影响 Token 的按需获取路径。
type Warmer struct {
	manager *Manager
	cron    *cron.Cron
	timeout time.Duration
}

// NewWarmer 创建凭据预热器。
// spec 为 cron 表达式或 "@every 15m" 形式的调度描述。
func NewWarmer(m *Manager, spec string) (*Warmer, error) {
	if m == nil {
		return nil, ErrNilManager
	}

	w := &Warmer{
		manager: m,
		cron:    cron.New(),
		timeout: defaultWarmTimeout,
	}
	if _, err := w.cron.AddFunc(spec, w.warmOnce); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
	}
	return w, nil
}

// Start 启动调度。重复调用无副作用。
func (w *Warmer) Start() {
	w.cron.Start()
}

// Stop 停止调度并等待进行中的预热完成。
func (w *Warmer) Stop() {
	<-w.cron.Stop().Done()
}

// warmOnce 对所有分区各请求一次凭据，陈旧或缺失的会触发重新获取。
func (w *Warmer) warmOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	for _, region := range w.manager.Regions() {
		if _, err := w.manager.Token(ctx, region); err != nil {
			if logger := w.manager.options.Logger; logger != nil {
				logger.WarnContext(ctx, "xoauth: credential warm failed",
					slog.String("region", region),
					slog.Any("error", err))
			}
		}
	}
}
