// Package xtier 提供双层缓存：进程内 Memory（ristretto）与跨进程 Remote（Redis）。
//
// 设计要点：
//   - Remote 以 JSON 序列化存储，key 由 Key 构建器统一生成（含 schema 版本后缀）
//   - 读路径永不因存储故障失败：存储错误一律降级为未命中
//   - 写路径 best-effort：缓存只是优化，不是正确性依赖
//   - 反序列化失败视为脏数据，自愈（删除后按未命中处理）
//   - GetOrSet 实现 Cache-Aside：命中直接返回，未命中回源并回填
//
// 跨进程并发回源默认被接受（由上层配额协调器限制总回源速率），
// 可通过 WithSingleflight / WithFillLock 按需收紧去重粒度。
package xtier
