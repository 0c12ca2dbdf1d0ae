// =============================================================================
// devcrew 主入口
// =============================================================================
// 多 Agent 协作编排命令行
//
// 使用方法:
//
//	devcrew run --agent planner "Add a health endpoint"   # 启动任务
//	devcrew resume <task-id>                               # 从检查点恢复
//	devcrew inspect [task-id]                              # 查看检查点
//	devcrew eval suite.yaml                                # 运行评估套件
//	devcrew tools                                          # 列出工具
//	devcrew version                                        # 显示版本信息
// =============================================================================
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/devcrew/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	// configPath is the YAML config file; a missing file falls back to defaults.
	configPath string
	// envPrefix is the prefix for environment overrides.
	envPrefix string
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "devcrew",
		Short: "Coordinate a crew of cooperating agents",
		Long: `devcrew drives a fixed set of cooperating agents that exchange messages in
supersteps, gating sensitive tools behind human approval and checkpointing after
every superstep.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "devcrew.yaml", "Path to config file (YAML)")
	root.PersistentFlags().StringVar(&envPrefix, "env-prefix", config.DefaultEnvPrefix, "Environment variable prefix for overrides")

	root.AddCommand(newRunCmd())
	root.AddCommand(newResumeCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newEvalCmd())
	root.AddCommand(newToolsCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "devcrew %s\n", Version)
			fmt.Fprintf(out, "  Build Time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git Commit: %s\n", GitCommit)
		},
	}
}

// loadConfig 加载并校验配置
func loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader().
		WithConfigPath(configPath).
		WithEnvPrefix(envPrefix).
		WithValidator((*config.Config).Validate).
		Load()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	// 构建配置
	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	} else {
		zapConfig.DisableCaller = true
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	} else {
		zapConfig.DisableStacktrace = true
	}

	// 构建 logger
	logger, err := zapConfig.Build(opts...)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}
