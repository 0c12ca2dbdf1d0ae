package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/devcrew/agent/declarative"
	"github.com/BaSui01/devcrew/types"
	"github.com/BaSui01/devcrew/workflow"
	"github.com/BaSui01/devcrew/workflow/checkpoint"
)

// runOptions holds the flags shared by run and resume.
type runOptions struct {
	taskID     string
	agentID    string
	maxSteps   int
	metadata   []string
	agentsDir  string
	outputJSON bool
}

func (o *runOptions) bindCommon(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.maxSteps, "max-steps", 0, "Total message budget (0 uses orchestrator.max_steps)")
	cmd.Flags().StringVar(&o.agentsDir, "agents-dir", "", "Directory of extra agent definitions (.yaml/.yml/.json)")
	cmd.Flags().BoolVar(&o.outputJSON, "json", false, "Output the task result as JSON")
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <description>",
		Short: "Start a new task",
		Long: `Start a new task by sending its description to the initial agent.

Examples:
  # Run with the agents declared in devcrew.yaml
  devcrew run --agent planner "Add a /healthz endpoint"

  # Pin the task id and seed metadata
  devcrew run --agent planner --task-id feat-42 --meta ticket=JIRA-42 "Add login"

  # Output as JSON
  devcrew run --agent planner --json "Fix flaky test"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(cmd, opts, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&opts.taskID, "task-id", "", "Task identifier (defaults to a random UUID)")
	cmd.Flags().StringVar(&opts.agentID, "agent", "", "Initial agent id (required)")
	cmd.Flags().StringArrayVar(&opts.metadata, "meta", nil, "Initial metadata as key=value (repeatable)")
	_ = cmd.MarkFlagRequired("agent")
	opts.bindCommon(cmd)
	return cmd
}

func newResumeCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "resume <task-id>",
		Short: "Resume a task from its last checkpoint",
		Long: `Resume a task from the checkpoint written after its last completed superstep.

The step budget is the total for the task, including messages processed before
the checkpoint was taken.

Examples:
  devcrew resume feat-42
  devcrew resume feat-42 --max-steps 200`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.taskID = args[0]
			return resumeTask(cmd, opts)
		},
	}
	opts.bindCommon(cmd)
	return cmd
}

func runTask(cmd *cobra.Command, opts *runOptions, description string) error {
	meta, err := parseMetadata(opts.metadata)
	if err != nil {
		return err
	}
	taskID := opts.taskID
	if taskID == "" {
		taskID = uuid.NewString()
	}
	task := types.Task{
		ID:              taskID,
		Description:     description,
		InitialAgentID:  opts.agentID,
		InitialMetadata: meta,
	}

	return withCrew(cmd, opts, func(ctx context.Context, c *crew) error {
		c.logger.Info("starting task", zap.String("task_id", task.ID), zap.String("initial_agent", task.InitialAgentID))
		result, err := c.orch.Run(ctx, task, opts.maxSteps)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), result, opts.outputJSON)
	})
}

func resumeTask(cmd *cobra.Command, opts *runOptions) error {
	return withCrew(cmd, opts, func(ctx context.Context, c *crew) error {
		if c.checkpoints == nil {
			return errors.New("checkpointing is disabled; set checkpoint.type to resume tasks")
		}
		state, err := loadState(ctx, c.checkpoints, opts.taskID)
		if err != nil {
			return err
		}
		task := types.Task{
			ID:             state.TaskID,
			Description:    state.TaskDescription,
			InitialAgentID: state.InitialAgentID,
		}
		c.logger.Info("resuming task", zap.String("task_id", task.ID), zap.Int("processed", state.MessagesProcessed))
		result, err := c.orch.ResumeFromCheckpoint(ctx, task, opts.maxSteps)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), result, opts.outputJSON)
	})
}

// withCrew loads config, builds the crew and runs fn under a signal-aware context.
func withCrew(cmd *cobra.Command, opts *runOptions, fn func(ctx context.Context, c *crew) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	var extra []declarative.AgentDefinition
	if opts.agentsDir != "" {
		extra, err = declarative.NewYAMLLoader().LoadDir(opts.agentsDir)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := buildCrew(ctx, cfg, extra, crewIO{in: cmd.InOrStdin(), out: cmd.ErrOrStderr()}, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.Close(shutdownCtx); err != nil {
			logger.Warn("crew shutdown", zap.Error(err))
		}
	}()

	return fn(ctx, c)
}

// loadState reads and decodes the checkpoint for taskID.
func loadState(ctx context.Context, store checkpoint.Store, taskID string) (*workflow.WorkflowState, error) {
	data, err := store.Load(ctx, taskID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return nil, fmt.Errorf("no checkpoint for task %s", taskID)
		}
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return workflow.DecodeState(data)
}

// parseMetadata turns key=value pairs into metadata. true/false and integers
// keep their JSON types.
func parseMetadata(pairs []string) (types.Metadata, error) {
	meta := types.Metadata{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata %q, expected key=value", pair)
		}
		if value == "true" || value == "false" {
			meta[key] = value == "true"
			continue
		}
		if n, err := strconv.Atoi(value); err == nil {
			meta[key] = n
			continue
		}
		meta[key] = value
	}
	return meta, nil
}

func printResult(out io.Writer, result *types.TaskResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	status := "completed"
	if !result.Completed {
		status = "halted (step budget exhausted)"
	}
	fmt.Fprintf(out, "Task %s %s after %d messages\n", result.TaskID, status, result.MessagesProcessed)
	for i, msg := range result.History {
		fmt.Fprintf(out, "%3d. %s -> %s: %s\n", i+1, msg.Sender, msg.Recipient, oneLine(msg.Content, 120))
	}
	return nil
}

func oneLine(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
