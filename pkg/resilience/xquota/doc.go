// Package xquota 提供面向共享上游配额的分布式准入控制。
//
// 多实例共享同一份上游调用预算时，每个实例各自限速无法保证全局不超限。
// xquota 把配额计数放在 Redis 上，按固定的墙钟时间桶（秒/分/时）计数：
// 所有实例对同一时刻计算出相同的桶名，INCR 天然原子，无需 Lua 或 CAS。
//
// 两类配额的故障语义刻意不对称：
//   - 调用方准入（AdmitCaller）fail-open：计数存储故障时放行，
//     宁可短暂放宽内部配额，不因自身故障拒绝用户；
//   - 全局槽位（AwaitGlobalSlot）保护的是上游的硬性限额，超限时等待
//     到下一个时间窗口重试，重试耗尽才返回 ErrSaturated。
//
// 桶计数只增不回滚：被拒绝的请求消耗的计数保留，结果是轻微偏保守的
// 准入判定，换来实现上没有任何读-改-写竞态。
package xquota
