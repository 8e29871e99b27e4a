// Package storage 提供数据存储相关的子包。
//
// 子包列表：
//   - xtier: 两级缓存（进程内 ristretto + 分布式 Redis）与缓存 key 规范
//
// 设计原则：
//   - 缓存故障降级为未命中，不向上传播
//   - 序列化统一为 JSON，key 携带 schema 版本
package storage
