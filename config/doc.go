// Package config 提供 devcrew 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的顺序加载，环境变量命名为
// PREFIX_SECTION_FIELD（默认前缀 DEVCREW）。Validate 汇总所有校验错误。
package config
