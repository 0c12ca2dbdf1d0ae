// Copyright 2026 AgentFlow Authors
// Use of this source code is governed by the project license.

/*
# 概述

包 declarative 提供基于 YAML/JSON 的声明式脚本 Agent 定义与加载能力。

用户可通过配置文件（而非 Go 代码）定义一组协作 Agent，无需 LLM 即可
驱动一次完整的编排运行。每个 Agent 按顺序执行工具调用（经审批仲裁），
再按模板渲染回复消息。

# 核心接口

  - AgentLoader — 从文件或字节流加载 AgentDefinition，支持自动格式检测
  - AgentFactory — 校验定义合法性并构建 ScriptedAgent

# 主要类型

  - AgentDefinition — 声明式 Agent 规格：身份、工具调用、回复、max_replies
  - ReplyDefinition — 回复目标、内容模板与触发条件
  - ToolCallDefinition — 工具名、参数模板与审批描述
  - ScriptedAgent — 实现 agent.Agent 的脚本执行体

# 模板变量

内容与字符串参数支持 {{name}} 占位符：sender、recipient、content、
task_id、agent_id、role、reply_count、meta.<key>，以及工具调用后的
tool.<name>.success / tool.<name>.output / tool.<name>.error。
未知变量保留原样。

# 典型用法

	loader := declarative.NewYAMLLoader()
	def, err := loader.LoadFile("coder.yaml")

	factory := declarative.NewAgentFactory(logger)
	a, err := factory.Build(def, orchestrator)
	orchestrator.RegisterAgent(a)
*/
package declarative
