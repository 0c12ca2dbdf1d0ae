// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package hitl 提供人工审批（Human-in-the-Loop）所需的策略、账本与审批门。

# 概述

Policy 决定某个工具调用是否必须经过人工审批；只有 "run_command"（执行类）
与 "vcs_commit"（提交类）两种工具可能被拦截。Gate 在需要审批时，把请求
同步投递给配置的代理 Agent，并从其回复中提取第一个匹配的审批结论。

# 核心类型

  - Policy  — 审批模式（autonomous / approval-required）与拦截开关
  - Ledger  — 单个编排器实例持有的审批计数器与待处理请求表
  - Gate    — 代理 Agent 的同步往返，返回 ApprovalDecision

# 并发

Ledger.Next 使用原子计数器，同一超步内并发调度的多个 Agent 可以安全地
同时申请审批编号。
*/
package hitl
