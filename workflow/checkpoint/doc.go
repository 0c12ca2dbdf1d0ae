/*
包 checkpoint 提供工作流状态检查点的持久化存储。

# 概述

编排器在每个超步结束后将序列化的工作流状态交给 Store 保存，
恢复时按任务 ID 读取。存储层只处理不透明的 JSON 字节，
编码与校验由 workflow 包负责。

# 后端

  - MemoryStore：进程内存储，适合测试与单次运行。
  - FileStore：每个任务一个 JSON 文件，写入使用临时文件加重命名。
  - RedisStore：基于 go-redis，支持 TTL 与任务索引集合。
  - SQLStore：基于 GORM，支持 postgres、mysql 与 sqlite。

NewStore 根据 Config.Type 选择后端。
*/
package checkpoint
