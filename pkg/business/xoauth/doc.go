// Package xoauth 管理上游 OAuth client_credentials 凭据。
//
// 每个数据分区（region）在进程内维护一份凭据单例，获取路径为双重检查：
// 无锁快路径读缓存并判断新鲜度；判定陈旧后进入分区级互斥锁，
// 持锁后重新检查（期间可能已有并发请求完成了刷新），仍陈旧才发起认证请求。
// 稳态下每个分区只在凭据临近过期的一小段窗口内才会产生认证调用。
//
// 新鲜度由凭据自身的过期时间减去安全缓冲（默认 60s）决定；
// 缓存层（expirable LRU）的 TTL 只作为兜底清理，不参与新鲜度判定。
//
// 认证失败（非 2xx、响应畸形、access_token 为空）一律包装为 ErrAcquireFailed
// 向上传播，本包不做重试，由调用方决定重试策略。
package xoauth
