// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 devcrew 命令行入口。

# 概述

cmd/devcrew 从 YAML 配置（可被 DEVCREW_* 环境变量覆盖）组装一个
多 Agent 协作团队：声明式脚本 Agent、内置文件/命令工具、go-git 版本
控制工具、审批代理、检查点与会话记忆存储，并以超步（superstep）方式
驱动消息循环。

# 子命令

  - run      — 以新任务启动一次运行
  - resume   — 从检查点恢复任务
  - inspect  — 列出检查点或打印某个任务的检查点摘要
  - tools    — 列出已注册工具及其审批要求
  - version  — 打印构建信息

# 可观测性

  - 日志：zap，按 log 配置选择 json/console 编码
  - 指标：metrics.enabled 时在独立地址暴露 /metrics（Prometheus）
  - 追踪：telemetry.enabled 时通过 OTLP gRPC 导出 span
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
