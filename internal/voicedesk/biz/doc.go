// Package biz 提供 voicedesk 的业务逻辑层。
//
// 主要组件：
//   - Ingester: 分块、嵌入、写入知识库并发布导入进度
//   - KnowledgeService: 向量检索与全文检索
//   - TenantService: 租户配置、激活指针与重置
//   - Dispatcher: 将语音 SDK 的 webhook 事件映射为通话、工单与中继事件
//   - ShowService: 演出目录，检索失败时降级为空列表
package biz
