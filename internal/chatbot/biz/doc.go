// Package biz 提供知识库问答的业务逻辑层。
//
// Orchestrator 串联检索、提示词构建与模型调用：
//   - 检索无结果时直接返回无上下文回复，不调用模型
//   - 检索或模型调用失败时返回道歉回复
//   - 空问题等前置条件错误作为 error 返回
package biz
