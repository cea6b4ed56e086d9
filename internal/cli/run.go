package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/spf13/cobra"

	"github.com/roach88/recipesync/internal/ir"
	"github.com/roach88/recipesync/internal/logging"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Force        bool
	DryRun       bool
	Retries      uint
	RetryInitial time.Duration
}

// RunResult is the output of run.
type RunResult struct {
	Attempts int           `json:"attempts"`
	Signing  SigningResult `json:"signing"`
	Sync     SyncResult    `json:"sync"`
}

func (r RunResult) String() string {
	s := r.Signing.String() + "\n" + r.Sync.String()
	if r.Attempts > 1 {
		s += fmt.Sprintf("\n  succeeded after %d attempts", r.Attempts)
	}
	return s
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Update signatures, then sync Remote Settings",
		Long: `Run one full pass: recipe signatures, action signatures, then the
Remote Settings sync. This is the command to schedule.

With --retries, a pass that fails because the signer or Remote Settings
is unavailable is retried with exponential backoff. Every attempt starts
over from the database, so completed work is not repeated. Content and
signer protocol errors are never retried.

Example:
  recipesync run --config /etc/recipesync.toml
  recipesync run --retries 3 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPass(opts, cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "re-sign every eligible entity")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "sign as usual but only diff Remote Settings")
	cmd.Flags().UintVar(&opts.Retries, "retries", 0, "retry transient failures this many times")
	cmd.Flags().DurationVar(&opts.RetryInitial, "retry-interval", time.Second, "initial backoff between retries")

	return cmd
}

func runPass(opts *RunOptions, cmd *cobra.Command) error {
	a, err := openApp(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result := RunResult{}
	pass := func() (RunResult, error) {
		result.Attempts++
		runCtx, logger := logging.WithRun(ctx, a.logger)
		a.formatter.RunID = logging.RunID(runCtx)
		logger.Info("pass started", "attempt", result.Attempts)

		err := a.onePass(runCtx, logger, opts, &result)
		if err != nil && !IsTransient(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.RetryInitial
	_, err = backoff.Retry(ctx, pass,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(opts.Retries+1),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			a.logger.Warn("pass failed, retrying", "error", err, "attempt", result.Attempts, "backoff", next)
		}),
	)
	if err != nil {
		return passError(a.formatter, "run failed", err, result)
	}
	return a.formatter.Success(result)
}

func (a *app) onePass(ctx context.Context, logger *slog.Logger, opts *RunOptions, result *RunResult) error {
	reports, err := a.updateSignatures(ctx, logger, []ir.Kind{ir.KindRecipe, ir.KindAction}, opts.Force)
	result.Signing = summarize(reports)
	if err != nil {
		return err
	}

	report, err := a.syncRemote(ctx, logger, opts.DryRun)
	result.Sync = newSyncResult(report)
	return err
}
