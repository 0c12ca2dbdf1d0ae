// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 memory 提供按会话组织的智能体记忆服务。

# 概述

编排器在配置了记忆服务时，会按历史顺序把每条已分发的消息追加到
任务对应的会话中；智能体也可以在会话内保存键值形式的笔记。

# 核心接口

  - [Store]：AppendMessage / Messages / SaveNote / Note / Clear

# 后端实现

  - [InMemoryStore]：进程内存储，可限制每个会话保留的消息数。
  - [RedisStore]：消息以 JSON 追加到 Redis 列表，笔记保存在哈希中，
    支持可选 TTL。
  - 持有连接的后端实现 io.Closer，由 [Close] 释放。

# 代码检索

  - [Retriever]：IndexText / FileSummary / Query
  - [InMemoryRetriever]：按行切块，以查询词重合数排序，
    摘要为文件前三个非空行。

# 错误语义

会话不存在时返回 [ErrSessionNotFound]，笔记不存在时返回 [ErrNoteNotFound]，
未索引的文件返回 [ErrSummaryNotFound]。
*/
package memory
