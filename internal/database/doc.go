// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的数据库打开与连接池配置。

# 概述

SQL 检查点存储通过本包按驱动类型（postgres、mysql、sqlite）选择
GORM Dialector，打开连接并应用连接池参数。sqlite 使用纯 Go 实现的
glebarez/sqlite，无需 cgo。

# 核心类型

  - Config：驱动、连接参数与连接池设置。
  - PoolConfig：最大空闲连接数、最大打开连接数与生命周期。

# 主要能力

  - Dialector：根据驱动返回对应的 gorm.Dialector。
  - Open：打开数据库并配置连接池。
  - ConfigurePool：对已有 *gorm.DB 应用连接池参数。
*/
package database
