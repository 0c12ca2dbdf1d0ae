// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供 go-redis 客户端的统一构造。

# 概述

检查点存储（workflow/checkpoint）与会话记忆（agent/memory）的 Redis
后端共用本包创建的客户端：按配置初始化连接池，并在返回前 Ping 探活。

# 核心类型

  - Config：地址、密码、数据库编号、连接池大小与重试次数。

# 主要能力

  - NewClient：创建客户端并在 5 秒内完成连通性检查。
  - 错误语义：连接失败时返回包装后的错误并关闭客户端。
*/
package cache
