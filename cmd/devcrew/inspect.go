package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/devcrew/agent/hitl"
	"github.com/BaSui01/devcrew/tools"
	"github.com/BaSui01/devcrew/workflow/checkpoint"
)

func newInspectCmd() *cobra.Command {
	var (
		outputJSON  bool
		showHistory bool
	)
	cmd := &cobra.Command{
		Use:   "inspect [task-id]",
		Short: "List checkpoints or show one task's checkpoint",
		Long: `Without arguments, list every stored checkpoint with a one-line summary.
With a task id, print that checkpoint's summary, pending approvals and,
optionally, its message history.

Examples:
  devcrew inspect
  devcrew inspect feat-42 --history
  devcrew inspect feat-42 --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := initLogger(cfg.Log)
			defer func() { _ = logger.Sync() }()

			store, err := checkpoint.NewStore(cmd.Context(), cfg.Checkpoint, logger)
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("checkpointing is disabled; set checkpoint.type to inspect tasks")
			}
			defer func() {
				if err := checkpoint.Close(store); err != nil {
					logger.Warn("close checkpoint store", zap.Error(err))
				}
			}()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				return listCheckpoints(cmd.Context(), out, store, logger)
			}
			return showCheckpoint(cmd.Context(), out, store, args[0], outputJSON, showHistory)
		},
	}
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Print the raw checkpoint as JSON")
	cmd.Flags().BoolVar(&showHistory, "history", false, "Include the message history")
	return cmd
}

func listCheckpoints(ctx context.Context, out io.Writer, store checkpoint.Store, logger *zap.Logger) error {
	ids, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("list checkpoints: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(out, "No checkpoints found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tINITIAL AGENT\tPROCESSED\tPENDING\tAPPROVALS")
	for _, id := range ids {
		state, err := loadState(ctx, store, id)
		if err != nil {
			logger.Warn("skipping unreadable checkpoint", zap.String("task_id", id), zap.Error(err))
			fmt.Fprintf(w, "%s\t?\t?\t?\t?\n", id)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n",
			state.TaskID, state.InitialAgentID, state.MessagesProcessed,
			len(state.PendingMessages), len(state.PendingApprovals))
	}
	return w.Flush()
}

func showCheckpoint(ctx context.Context, out io.Writer, store checkpoint.Store, taskID string, asJSON, history bool) error {
	state, err := loadState(ctx, store, taskID)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}

	fmt.Fprintln(out, state.Summary())
	fmt.Fprintf(out, "Description: %s\n", state.TaskDescription)

	if len(state.PendingApprovals) > 0 {
		ids := make([]string, 0, len(state.PendingApprovals))
		for id := range state.PendingApprovals {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		fmt.Fprintln(out, "Pending approvals:")
		for _, id := range ids {
			req := state.PendingApprovals[id]
			fmt.Fprintf(out, "  %s: %s (%s)\n", id, req.Action, req.Description)
		}
	}

	if len(state.PendingMessages) > 0 {
		fmt.Fprintln(out, "Pending messages:")
		for _, msg := range state.PendingMessages {
			fmt.Fprintf(out, "  %s -> %s: %s\n", msg.Sender, msg.Recipient, oneLine(msg.Content, 100))
		}
	}

	if history {
		fmt.Fprintln(out, "History:")
		for i, msg := range state.History {
			fmt.Fprintf(out, "%3d. %s -> %s: %s\n", i+1, msg.Sender, msg.Recipient, oneLine(msg.Content, 120))
		}
	}
	return nil
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List registered tools and their approval requirement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := initLogger(cfg.Log)
			defer func() { _ = logger.Sync() }()

			registry, err := buildRegistry(cfg, logger)
			if err != nil {
				return err
			}
			return printTools(cmd.OutOrStdout(), registry.List(), cfg.Approvals.Policy())
		},
	}
}

func printTools(out io.Writer, descs []tools.Descriptor, policy hitl.Policy) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tAPPROVAL\tDESCRIPTION")
	for _, d := range descs {
		approval := "-"
		if policy.RequiresApproval(d.Name) {
			approval = "required"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, approval, d.Description)
	}
	fmt.Fprintf(w, "\nMode: %s\n", policy.Mode)
	return w.Flush()
}
