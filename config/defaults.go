// =============================================================================
// 📦 devcrew 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/devcrew/agent/hitl"
	"github.com/BaSui01/devcrew/agent/memory"
	"github.com/BaSui01/devcrew/internal/cache"
	"github.com/BaSui01/devcrew/internal/database"
	"github.com/BaSui01/devcrew/internal/pool"
	"github.com/BaSui01/devcrew/tools"
	"github.com/BaSui01/devcrew/tools/builtin"
	"github.com/BaSui01/devcrew/workflow"
	"github.com/BaSui01/devcrew/workflow/checkpoint"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Approvals:    DefaultApprovalsConfig(),
		Orchestrator: DefaultOrchestratorConfig(),
		Checkpoint:   DefaultCheckpointConfig(),
		Memory:       DefaultMemoryConfig(),
		Workspace:    DefaultWorkspaceConfig(),
		VCS:          DefaultVCSConfig(),
		Tools:        DefaultToolsConfig(),
		Retrieval:    DefaultRetrievalConfig(),
		Log:          DefaultLogConfig(),
		Telemetry:    DefaultTelemetryConfig(),
		Metrics:      DefaultMetricsConfig(),
	}
}

// DefaultApprovalsConfig 返回默认审批配置
func DefaultApprovalsConfig() ApprovalsConfig {
	p := hitl.DefaultPolicy()
	return ApprovalsConfig{
		Mode:                     string(p.Mode),
		RequireExecutionApproval: p.RequireExecutionApproval,
		RequireCommitApproval:    p.RequireCommitApproval,
		UserProxyAgentID:         p.UserProxyAgentID,
		ProxyDecision:            DecisionMetadata,
		Approver:                 "user",
	}
}

// DefaultOrchestratorConfig 返回默认编排器配置
func DefaultOrchestratorConfig() OrchestratorConfig {
	p := pool.DefaultConfig()
	return OrchestratorConfig{
		MaxSteps:  workflow.DefaultMaxSteps,
		Workers:   0,
		TaskQueue: p.QueueSize,
	}
}

// DefaultCheckpointConfig 返回默认检查点配置
func DefaultCheckpointConfig() checkpoint.Config {
	return checkpoint.Config{
		Type:      checkpoint.TypeFile,
		Dir:       ".devcrew/checkpoints",
		KeyPrefix: "devcrew",
		TTL:       7 * 24 * time.Hour,
		Redis:     cache.DefaultConfig(),
		Database:  database.DefaultConfig(),
	}
}

// DefaultMemoryConfig 返回默认记忆配置
func DefaultMemoryConfig() memory.Config {
	return memory.Config{
		Type:        memory.TypeMemory,
		KeyPrefix:   "devcrew",
		TTL:         24 * time.Hour,
		MaxMessages: 500,
		Redis:       cache.DefaultConfig(),
	}
}

// DefaultWorkspaceConfig 返回默认工作区配置
func DefaultWorkspaceConfig() WorkspaceConfig {
	return WorkspaceConfig{
		Root:           ".",
		AllowWrite:     false,
		CommandTimeout: 2 * time.Minute,
		Runner:         RunnerLocal,
		Docker: builtin.DockerConfig{
			Binary:          "docker",
			NetworkDisabled: true,
		},
	}
}

// DefaultVCSConfig 返回默认版本控制配置
func DefaultVCSConfig() VCSConfig {
	return VCSConfig{
		Enabled:     true,
		AuthorName:  "devcrew",
		AuthorEmail: "devcrew@localhost",
	}
}

// DefaultToolsConfig 返回默认工具配置
func DefaultToolsConfig() ToolsConfig {
	return ToolsConfig{
		RateLimits: map[string]tools.RateLimitConfig{
			hitl.ToolRunCommand: {MaxCalls: 30, Window: time.Minute},
		},
	}
}

// DefaultRetrievalConfig 返回默认检索配置
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		Enabled:       true,
		MaxChunkLines: memory.DefaultMaxChunkLines,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     false,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "devcrew",
		SampleRate:   0.1,
		Insecure:     true,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:    false,
		Namespace:  "devcrew",
		ListenAddr: ":9091",
	}
}
