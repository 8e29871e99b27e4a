// Package xbnet 封装对 Battle.net Game Data / Profile API 的只读访问。
//
// Client.Get 只做一次请求并把响应按状态码翻译为稳定的错误分类：
//   - 404 是合法的"数据不存在"信号（ErrNotFound），上游删档、改名后常见；
//   - 429 表示上游限流（ErrSourceRateLimited），配额协调器失效时的最后防线；
//   - 5xx 与传输错误归为 ErrTransient，可由调用方重试；
//   - 其余 4xx 归为 ErrUpstream，重试无意义。
//
// 包内不做重试：瞬态失败原样上抛，重试预算由调用方统一掌握。
// 默认启用熔断器，连续瞬态失败后快速失败，保护上游与自身连接池。
package xbnet
