package builtin

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContainerWorkspace is where the workspace root is mounted inside the container.
const ContainerWorkspace = "/workspace"

// DockerConfig configures DockerRunner.
type DockerConfig struct {
	// Image is the container image commands run in.
	Image string `yaml:"image" env:"IMAGE"`
	// Binary is the docker CLI; defaults to "docker".
	Binary string `yaml:"binary" env:"BINARY"`
	// NetworkDisabled runs containers with --network none.
	NetworkDisabled bool `yaml:"network_disabled" env:"NETWORK_DISABLED"`
	// MaxMemoryMB 内存限制，0 表示不限制
	MaxMemoryMB int `yaml:"max_memory_mb" env:"MAX_MEMORY_MB"`
}

// DockerRunner runs commands in a throwaway container with the workspace bind-mounted.
type DockerRunner struct {
	root           string
	config         DockerConfig
	defaultTimeout time.Duration
	logger         *zap.Logger
}

// NewDockerRunner creates a runner mounting workspaceRoot at ContainerWorkspace.
func NewDockerRunner(workspaceRoot string, cfg DockerConfig, defaultTimeout time.Duration, logger *zap.Logger) (*DockerRunner, error) {
	if cfg.Image == "" {
		return nil, errors.New("docker runner: image is required")
	}
	if cfg.Binary == "" {
		cfg.Binary = "docker"
	}
	root, err := filepath.Abs(workspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("docker runner: resolve workspace root: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DockerRunner{
		root:           filepath.Clean(root),
		config:         cfg,
		defaultTimeout: defaultTimeout,
		logger:         logger.With(zap.String("component", "docker_runner")),
	}, nil
}

// Run executes req.Command inside a container. A non-zero exit status is not an error.
func (r *DockerRunner) Run(ctx context.Context, req CommandRequest) (CommandResult, error) {
	if len(req.Command) == 0 {
		return CommandResult{}, invalidf("'command' must be a non-empty list of strings")
	}
	name := "devcrew_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	args, err := r.dockerArgs(name, req)
	if err != nil {
		return CommandResult{Command: append([]string(nil), req.Command...), ExitCode: 1}, err
	}

	runCtx, cancel := withTimeout(ctx, req.Timeout, r.defaultTimeout)
	defer cancel()

	r.logger.Debug("running command in container",
		zap.String("container", name),
		zap.String("image", r.config.Image),
		zap.Strings("command", req.Command),
	)
	result, err := runProcess(runCtx, req.Command, r.config.Binary, args, "", nil)
	if runCtx.Err() == context.DeadlineExceeded {
		// --rm 不会清理被 kill 的 CLI 留下的容器
		r.forceRemove(name)
	}
	r.logger.Debug("container command finished",
		zap.String("container", name),
		zap.Int("exit_code", result.ExitCode),
		zap.Float64("duration_s", result.Duration),
	)
	return result, err
}

// dockerArgs builds the docker CLI arguments for req.
func (r *DockerRunner) dockerArgs(name string, req CommandRequest) ([]string, error) {
	workdir, err := r.containerDir(req.Dir)
	if err != nil {
		return nil, err
	}
	args := []string{
		"run", "--rm",
		"--name", name,
		"-v", r.root + ":" + ContainerWorkspace,
		"-w", workdir,
	}
	if r.config.NetworkDisabled {
		args = append(args, "--network", "none")
	}
	if r.config.MaxMemoryMB > 0 {
		args = append(args, "--memory", fmt.Sprintf("%dm", r.config.MaxMemoryMB))
	}
	for _, kv := range envPairs(req.Env) {
		args = append(args, "-e", kv)
	}
	args = append(args, r.config.Image)
	return append(args, req.Command...), nil
}

// containerDir maps a host directory under the workspace root to its container path.
func (r *DockerRunner) containerDir(dir string) (string, error) {
	if dir == "" {
		return ContainerWorkspace, nil
	}
	rel, err := filepath.Rel(r.root, filepath.Clean(dir))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("working directory %s is outside the workspace root", dir)
	}
	if rel == "." {
		return ContainerWorkspace, nil
	}
	return ContainerWorkspace + "/" + filepath.ToSlash(rel), nil
}

func (r *DockerRunner) forceRemove(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, r.config.Binary, "rm", "-f", name).Run(); err != nil {
		r.logger.Warn("failed to remove timed out container", zap.String("container", name), zap.Error(err))
	}
}
