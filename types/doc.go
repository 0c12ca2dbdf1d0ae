// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 devcrew 编排引擎的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 agent、tools、workflow
等上层模块提供统一的类型契约，以避免循环依赖。

# 核心类型

  - Message           — Agent 之间传递的消息（Sender、Recipient、Content、Metadata）
  - Task / TaskResult — 用户任务及其运行结果
  - ApprovalRequest   — 需要人工审批的动作
  - ApprovalDecision  — 代理 Agent 返回的审批结论
  - ToolResult        — 工具执行结果（失败是数据而非 error）
  - Error / ErrorCode — 结构化错误体系

# 主要能力

  - Context 传播：WithTaskID / WithCaller
  - 错误工具链：NewError / WithCause / GetErrorCode / IsErrorCode
  - 元数据辅助：Metadata.Clone / Metadata.SetDefault
*/
package types
