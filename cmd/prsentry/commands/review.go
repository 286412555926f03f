package commands

import (
	"context"
	"log/slog"

	"github.com/roasbeef/prsentry/internal/permission"
	"github.com/roasbeef/prsentry/internal/reconcile"
	"github.com/roasbeef/prsentry/internal/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	reviewRepo  string
	reviewPR    int
	reviewFiles []string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Run a review session against a pull request",
	Long: `Run one automated review session: reconcile stale pending reviews,
evaluate whether "request changes" is permitted, render the task brief,
and supervise the external review agent until it exits.`,
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().StringVar(
		&reviewRepo, "repo", "",
		"Repository as owner/name (required)",
	)
	reviewCmd.Flags().IntVar(
		&reviewPR, "pr", 0,
		"Pull request number (required)",
	)
	reviewCmd.Flags().StringSliceVar(
		&reviewFiles, "files", nil,
		"Restrict the review to these paths",
	)

	_ = reviewCmd.MarkFlagRequired("repo")
	_ = reviewCmd.MarkFlagRequired("pr")
}

func runReview(cmd *cobra.Command, args []string) error {
	// Interrupts before the agent is spawned abort the process outright;
	// the supervisor installs its own handlers once the child is alive.
	ctx := context.Background()
	log := slog.Default()

	owner, repo, err := splitRepo(reviewRepo)
	if err != nil {
		return err
	}

	client, resolver, err := newPlatformClient()
	if err != nil {
		return err
	}

	ledger := openLedger(log)
	if ledger != nil {
		defer ledger.Close()
	}

	agentCfg := &session.AgentConfig{
		Command: viper.GetString("agent.command"),
		Args:    viper.GetStringSlice("agent.args"),
		WorkDir: viper.GetString("agent.workdir"),
	}
	if model := viper.GetString("agent.model"); model != "" {
		agentCfg.Args = append(agentCfg.Args, "--model", model)
	}

	deps := session.ControllerDeps{
		Platform: client,
		Identity: resolver,
		Reconciler: reconcile.NewReconciler(
			client, resolver, log.With("subsys", "reconcile"),
		),
		Permissions: permission.NewEvaluator(
			client, resolver, log.With("subsys", "permission"),
		),
		Agent: session.NewSupervisor(
			agentCfg, log.With("subsys", "supervisor"),
		),
		Log: log.With("subsys", "session"),
	}
	if ledger != nil {
		deps.Ledger = ledger
	}

	controller := session.NewController(
		deps, session.WithTargetFiles(reviewFiles),
	)

	outcome, err := controller.Run(ctx, owner, repo, reviewPR)
	if err != nil {
		return err
	}

	log.Info("Review session finished",
		"status", outcome.Status.String(),
		"exit_code", outcome.ExitCode.UnwrapOr(0))

	return nil
}
