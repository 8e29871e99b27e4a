// Package xsetting 提供类型化的配置装载与热更新。
//
// 配置覆盖四个子系统：配额（quota）、缓存（cache）、认证（oauth）、
// 上游（source）。从 YAML/JSON 文件或字节数据装载，未出现的键保留默认值，
// 装载后统一校验。Watch 监视配置文件变更（带防抖），重载成功或失败
// 都会通知回调，由调用方决定如何应用新配置。
package xsetting
