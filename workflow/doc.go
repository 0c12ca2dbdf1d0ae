// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package workflow 提供多智能体任务的超步编排引擎。

# 概述

Orchestrator 以超步（superstep）为单位推进任务：每个超步取出整个
待处理队列作为一批，解析全部接收者，将消息并发投递给不同的智能体，
同一智能体的消息严格串行处理；收齐所有响应后才进入下一个超步。
这种"先收集再推进"的方式保证每个超步之间的检查点都是一致的。

# 核心类型

  - Orchestrator   — 运行循环、工具仲裁与审批入口
  - WorkflowState  — 可序列化的运行快照（检查点）
  - Option         — 日志、检查点存储、记忆服务、指标、追踪与工作池配置

# 主要能力

  - Run / Resume：按步数预算运行或从检查点继续，两者结果一致
  - 每个超步后写入检查点（workflow/checkpoint）
  - 按历史顺序写入会话记忆（agent/memory）
  - ExecuteTool / ExecuteToolWithApproval：经由 tools.Arbiter 执行工具
  - RequestApproval：经由 hitl.Gate 向用户代理发起审批

# 错误语义

未知接收者、未知工具、检查点不匹配、审批无结果等均为致命错误，
以 *types.Error 返回并立即终止本次运行。审批被拒与步数耗尽不是错误。
*/
package workflow
