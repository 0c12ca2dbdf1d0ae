// =============================================================================
// 📦 devcrew 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("devcrew.yaml").
//	    WithEnvPrefix("DEVCREW").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/BaSui01/devcrew/agent/declarative"
	"github.com/BaSui01/devcrew/agent/hitl"
	"github.com/BaSui01/devcrew/agent/memory"
	"github.com/BaSui01/devcrew/tools"
	"github.com/BaSui01/devcrew/tools/builtin"
	"github.com/BaSui01/devcrew/workflow/checkpoint"
)

// DefaultEnvPrefix 默认环境变量前缀
const DefaultEnvPrefix = "DEVCREW"

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 devcrew 的完整配置
type Config struct {
	// 审批策略
	Approvals ApprovalsConfig `yaml:"approvals" env:"APPROVALS"`

	// 编排器配置
	Orchestrator OrchestratorConfig `yaml:"orchestrator" env:"ORCHESTRATOR"`

	// 检查点持久化
	Checkpoint checkpoint.Config `yaml:"checkpoint" env:"CHECKPOINT"`

	// 会话记忆
	Memory memory.Config `yaml:"memory" env:"MEMORY"`

	// 工作区
	Workspace WorkspaceConfig `yaml:"workspace" env:"WORKSPACE"`

	// 版本控制
	VCS VCSConfig `yaml:"vcs" env:"VCS"`

	// 工具配置
	Tools ToolsConfig `yaml:"tools" env:"TOOLS"`

	// 代码检索
	Retrieval RetrievalConfig `yaml:"retrieval" env:"RETRIEVAL"`

	// 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// 声明式 Agent 定义（仅支持文件配置）
	Agents []declarative.AgentDefinition `yaml:"agents" env:"-"`
}

// Proxy decision sources.
const (
	DecisionMetadata = "metadata"
	DecisionApprove  = "approve"
	DecisionReject   = "reject"
	DecisionConsole  = "console"
)

// ApprovalsConfig 审批配置
type ApprovalsConfig struct {
	// 模式: autonomous | approval-required
	Mode string `yaml:"mode" env:"MODE"`
	// 执行命令是否需要审批
	RequireExecutionApproval bool `yaml:"require_execution_approval" env:"REQUIRE_EXECUTION_APPROVAL"`
	// 提交是否需要审批
	RequireCommitApproval bool `yaml:"require_commit_approval" env:"REQUIRE_COMMIT_APPROVAL"`
	// 审批代理 Agent ID
	UserProxyAgentID string `yaml:"user_proxy_agent_id" env:"USER_PROXY_AGENT_ID"`
	// 代理决策来源: metadata | approve | reject | console
	ProxyDecision string `yaml:"proxy_decision" env:"PROXY_DECISION"`
	// 固定决策或控制台决策使用的审批人
	Approver string `yaml:"approver" env:"APPROVER"`
}

// Policy converts the section into an approval policy.
func (c ApprovalsConfig) Policy() hitl.Policy {
	return hitl.Policy{
		Mode:                     hitl.Mode(c.Mode),
		RequireExecutionApproval: c.RequireExecutionApproval,
		RequireCommitApproval:    c.RequireCommitApproval,
		UserProxyAgentID:         c.UserProxyAgentID,
	}
}

// OrchestratorConfig 编排器配置
type OrchestratorConfig struct {
	// 默认最大处理消息数
	MaxSteps int `yaml:"max_steps" env:"MAX_STEPS"`
	// 同步 Agent 卸载协程数，0 表示内联执行
	Workers int `yaml:"workers" env:"WORKERS"`
	// 协程池队列长度
	TaskQueue int `yaml:"task_queue" env:"TASK_QUEUE"`
}

// WorkspaceConfig 工作区配置
type WorkspaceConfig struct {
	// 根目录
	Root string `yaml:"root" env:"ROOT"`
	// 是否允许写入
	AllowWrite bool `yaml:"allow_write" env:"ALLOW_WRITE"`
	// 命令默认超时
	CommandTimeout time.Duration `yaml:"command_timeout" env:"COMMAND_TIMEOUT"`
	// 命令执行引擎: local | docker
	Runner string `yaml:"runner" env:"RUNNER"`
	// Docker 执行引擎配置
	Docker builtin.DockerConfig `yaml:"docker" env:"DOCKER"`
}

// Command runners.
const (
	RunnerLocal  = "local"
	RunnerDocker = "docker"
)

// VCSConfig 版本控制配置
type VCSConfig struct {
	// 是否注册 vcs_* 工具
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 提交作者
	AuthorName  string `yaml:"author_name" env:"AUTHOR_NAME"`
	AuthorEmail string `yaml:"author_email" env:"AUTHOR_EMAIL"`
}

// ToolsConfig 工具配置
type ToolsConfig struct {
	// 按工具名配置的限流（仅支持文件配置）
	RateLimits map[string]tools.RateLimitConfig `yaml:"rate_limits" env:"-"`
}

// RetrievalConfig 代码检索配置
type RetrievalConfig struct {
	// 是否注册 index_file / search_code / file_summary 工具
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 每个代码块的最大行数
	MaxChunkLines int `yaml:"max_chunk_lines" env:"MAX_CHUNK_LINES"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
	// 是否使用明文 gRPC 连接
	Insecure bool `yaml:"insecure" env:"INSECURE"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// Prometheus 命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// /metrics 监听地址
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  DefaultEnvPrefix,
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 获取 env tag
		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).WithValidator((*Config).Validate).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置，返回所有错误的合并结果
func (c *Config) Validate() error {
	var errs []error

	// 审批配置
	if err := c.Approvals.Policy().Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Approvals.ProxyDecision {
	case "", DecisionMetadata, DecisionApprove, DecisionReject, DecisionConsole:
	default:
		errs = append(errs, fmt.Errorf("unknown proxy decision source %q", c.Approvals.ProxyDecision))
	}

	// 编排器配置
	if c.Orchestrator.MaxSteps <= 0 {
		errs = append(errs, errors.New("orchestrator.max_steps must be positive"))
	}
	if c.Orchestrator.Workers < 0 {
		errs = append(errs, errors.New("orchestrator.workers must be non-negative"))
	}
	if c.Orchestrator.TaskQueue < 0 {
		errs = append(errs, errors.New("orchestrator.task_queue must be non-negative"))
	}

	// 存储配置
	switch c.Checkpoint.Type {
	case "", checkpoint.TypeMemory, checkpoint.TypeRedis, checkpoint.TypeSQL:
	case checkpoint.TypeFile:
		if c.Checkpoint.Dir == "" {
			errs = append(errs, errors.New("checkpoint.dir is required for file checkpoints"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown checkpoint type %q", c.Checkpoint.Type))
	}
	switch c.Memory.Type {
	case "", memory.TypeMemory, memory.TypeRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown memory type %q", c.Memory.Type))
	}

	// 工作区与工具
	if c.Workspace.Root == "" {
		errs = append(errs, errors.New("workspace.root is required"))
	}
	if c.Workspace.CommandTimeout < 0 {
		errs = append(errs, errors.New("workspace.command_timeout must be non-negative"))
	}
	switch c.Workspace.Runner {
	case "", RunnerLocal:
	case RunnerDocker:
		if c.Workspace.Docker.Image == "" {
			errs = append(errs, errors.New("workspace.docker.image is required for the docker runner"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown command runner %q", c.Workspace.Runner))
	}
	if c.Retrieval.MaxChunkLines < 0 {
		errs = append(errs, errors.New("retrieval.max_chunk_lines must be non-negative"))
	}
	for name, rl := range c.Tools.RateLimits {
		if rl.MaxCalls <= 0 || rl.Window <= 0 {
			errs = append(errs, fmt.Errorf("tools.rate_limits.%s: max_calls and window must be positive", name))
		}
	}

	// 可观测性
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, errors.New("telemetry.sample_rate must be between 0 and 1"))
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		errs = append(errs, errors.New("metrics.listen_addr is required when metrics are enabled"))
	}

	// Agent 定义
	factory := declarative.NewAgentFactory(nil)
	seen := make(map[string]struct{}, len(c.Agents))
	for i := range c.Agents {
		def := &c.Agents[i]
		if err := factory.Validate(def); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := seen[def.ID]; dup {
			errs = append(errs, fmt.Errorf("agents: duplicate id %q", def.ID))
		}
		seen[def.ID] = struct{}{}
	}

	return errors.Join(errs...)
}
