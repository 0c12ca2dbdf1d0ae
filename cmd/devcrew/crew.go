package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/BaSui01/devcrew/agent"
	"github.com/BaSui01/devcrew/agent/declarative"
	"github.com/BaSui01/devcrew/agent/memory"
	"github.com/BaSui01/devcrew/config"
	"github.com/BaSui01/devcrew/internal/metrics"
	"github.com/BaSui01/devcrew/internal/pool"
	"github.com/BaSui01/devcrew/internal/telemetry"
	"github.com/BaSui01/devcrew/internal/workspace"
	"github.com/BaSui01/devcrew/tools"
	"github.com/BaSui01/devcrew/tools/builtin"
	"github.com/BaSui01/devcrew/tools/vcs"
	"github.com/BaSui01/devcrew/workflow"
	"github.com/BaSui01/devcrew/workflow/checkpoint"
)

// crew bundles an orchestrator with the resources it owns.
type crew struct {
	orch        *workflow.Orchestrator
	checkpoints checkpoint.Store
	memory      memory.Store
	collector   *metrics.Collector
	logger      *zap.Logger

	providers   *telemetry.Providers
	workers     *pool.WorkerPool
	stopMetrics context.CancelFunc
}

// crewIO is where the console approval prompt reads and writes.
type crewIO struct {
	in  io.Reader
	out io.Writer
}

// buildRegistry registers the builtin and VCS tools and applies rate limits.
func buildRegistry(cfg *config.Config, logger *zap.Logger) (*tools.Registry, error) {
	ws, err := workspace.New(cfg.Workspace.Root, cfg.Workspace.AllowWrite)
	if err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}

	registry := tools.NewRegistry(logger)
	var runner builtin.CommandRunner = builtin.LocalRunner{DefaultTimeout: cfg.Workspace.CommandTimeout}
	if cfg.Workspace.Runner == config.RunnerDocker {
		if runner, err = builtin.NewDockerRunner(ws.Root(), cfg.Workspace.Docker, cfg.Workspace.CommandTimeout, logger); err != nil {
			return nil, fmt.Errorf("docker runner: %w", err)
		}
	}
	if err := builtin.Register(registry, ws, runner); err != nil {
		return nil, fmt.Errorf("register builtin tools: %w", err)
	}

	if cfg.Retrieval.Enabled {
		retriever := memory.NewInMemoryRetriever(cfg.Retrieval.MaxChunkLines)
		if err := builtin.RegisterRetrieval(registry, ws, retriever); err != nil {
			return nil, fmt.Errorf("register retrieval tools: %w", err)
		}
	}

	if cfg.VCS.Enabled {
		svc, err := vcs.Open(ws.Root(), vcs.Author{Name: cfg.VCS.AuthorName, Email: cfg.VCS.AuthorEmail})
		if err != nil {
			logger.Warn("version control tools disabled", zap.String("root", ws.Root()), zap.Error(err))
		} else if err := vcs.Register(registry, svc); err != nil {
			return nil, fmt.Errorf("register vcs tools: %w", err)
		}
	}

	for name, rl := range cfg.Tools.RateLimits {
		if err := registry.SetRateLimit(name, rl); err != nil {
			logger.Warn("rate limit ignored", zap.String("tool", name), zap.Error(err))
		}
	}
	return registry, nil
}

// decisionSource maps the approvals section onto a proxy decision source.
func decisionSource(cfg config.ApprovalsConfig, streams crewIO) agent.DecisionSource {
	switch cfg.ProxyDecision {
	case config.DecisionApprove:
		return agent.FixedDecision(true, cfg.Approver, "")
	case config.DecisionReject:
		return agent.FixedDecision(false, cfg.Approver, "rejected by configuration")
	case config.DecisionConsole:
		return agent.ConsoleDecisions(streams.in, streams.out, cfg.Approver)
	default:
		return agent.MetadataDecisions()
	}
}

// buildCrew wires stores, tools, observers and agents into an orchestrator.
func buildCrew(ctx context.Context, cfg *config.Config, extra []declarative.AgentDefinition, streams crewIO, logger *zap.Logger) (_ *crew, err error) {
	c := &crew{logger: logger}
	defer func() {
		if err != nil {
			_ = c.Close(context.Background())
		}
	}()

	c.providers, err = telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	opts := []workflow.Option{
		workflow.WithLogger(logger),
		workflow.WithMaxSteps(cfg.Orchestrator.MaxSteps),
	}

	c.checkpoints, err = checkpoint.NewStore(ctx, cfg.Checkpoint, logger)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint store: %w", err)
	}
	if c.checkpoints != nil {
		opts = append(opts, workflow.WithCheckpointStore(c.checkpoints))
	}

	c.memory, err = memory.NewStore(ctx, cfg.Memory, logger)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}
	if c.memory != nil {
		opts = append(opts, workflow.WithMemory(c.memory))
	}

	if cfg.Metrics.Enabled {
		c.collector = metrics.NewCollector(cfg.Metrics.Namespace, logger)
		opts = append(opts, workflow.WithObserver(c.collector))

		metricsCtx, cancel := context.WithCancel(context.Background())
		c.stopMetrics = cancel
		go func() {
			if err := metrics.Serve(metricsCtx, cfg.Metrics.ListenAddr, logger); err != nil {
				logger.Error("metrics endpoint stopped", zap.Error(err))
			}
		}()
	}

	if cfg.Orchestrator.Workers > 0 {
		c.workers = pool.New(pool.Config{
			Workers:   cfg.Orchestrator.Workers,
			QueueSize: cfg.Orchestrator.TaskQueue,
		})
		opts = append(opts, workflow.WithWorkerPool(c.workers))
	}

	registry, err := buildRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}

	c.orch, err = workflow.New(cfg.Approvals.Policy(), registry, opts...)
	if err != nil {
		return nil, err
	}

	defs := make([]declarative.AgentDefinition, 0, len(cfg.Agents)+len(extra))
	defs = append(defs, cfg.Agents...)
	defs = append(defs, extra...)
	agents, err := declarative.NewAgentFactory(logger).BuildAll(defs, c.orch)
	if err != nil {
		return nil, fmt.Errorf("build agents: %w", err)
	}
	for _, a := range agents {
		c.orch.RegisterAgent(a)
	}

	proxyID := c.orch.Policy().ProxyID()
	if _, ok := c.orch.Agent(proxyID); !ok {
		c.orch.RegisterAgent(agent.NewUserProxy(proxyID, decisionSource(cfg.Approvals, streams), logger))
	}

	logger.Info("crew ready",
		zap.Strings("agents", c.orch.Agents()),
		zap.Int("tools", len(registry.List())),
		zap.String("approval_mode", string(c.orch.Policy().Mode)),
	)
	return c, nil
}

// Close releases everything buildCrew started.
func (c *crew) Close(ctx context.Context) error {
	var errs []error
	if c.workers != nil {
		c.workers.Close()
	}
	if c.stopMetrics != nil {
		c.stopMetrics()
	}
	if err := checkpoint.Close(c.checkpoints); err != nil {
		errs = append(errs, fmt.Errorf("close checkpoint store: %w", err))
	}
	if err := memory.Close(c.memory); err != nil {
		errs = append(errs, fmt.Errorf("close memory store: %w", err))
	}
	if c.providers != nil {
		if err := c.providers.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
		}
	}
	return errors.Join(errs...)
}
