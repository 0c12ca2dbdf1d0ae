// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的编排指标采集能力，覆盖
超步、任务运行、工具执行与审批四个维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离。
Collector 同时实现 workflow.Observer 与 tools.Observer，
交给编排器后即可自动记录。

# 主要能力

  - 超步指标：超步总数、每批消息数、响应数与超步耗时。
  - 运行指标：按结果（completed/halted/failed）统计的运行次数。
  - 工具指标：按工具名与成功状态统计的执行次数与耗时。
  - 审批指标：按动作与决策统计的审批次数。
  - Serve：在指定地址暴露 /metrics 端点。
*/
package metrics
