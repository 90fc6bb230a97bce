// Package store 提供 voicedesk 的数据存储层。
//
// 知识库默认使用 RediSearch（HASH + 向量索引），也可切换为本地 BadgerDB
// 或进程内实现；租户配置、通话、工单使用 Redis 字符串文档。所有键都以
// 租户或通话 ID 作为命名空间。
package store
