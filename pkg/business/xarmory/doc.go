// Package xarmory 是面向资源读取的编排门面，串联配额、凭据、缓存与上游客户端。
//
// 单次 Fetch 的路径：
//  1. 携带调用方标识时先做调用方准入，超限返回 ErrQuotaExceeded；
//  2. 查本地缓存，命中直接返回；
//  3. 委托分布式缓存的 GetOrSet；回源函数依次执行
//     等待全局槽位 → 取凭据 → 请求上游 → 映射为内部表示；
//  4. 成功后以该资源类别更短的本地 TTL 回填本地缓存；
//  5. 上游 404 以 (nil, nil) 呈现为"数据不存在"，永远不是错误。
//
// 缓存层故障不会让 Fetch 失败（降级为回源）；致命错误只有四类：
// 调用方超限、全局配额饱和、凭据获取失败、上游不可重试/瞬态失败。
package xarmory
