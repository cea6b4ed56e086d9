package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/recipesync/internal/logging"
	"github.com/roach88/recipesync/internal/remote"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	DryRun bool
}

// SyncResult is the output of sync.
type SyncResult struct {
	DryRun      bool     `json:"dry_run"`
	Approved    bool     `json:"approved"`
	Published   int      `json:"published"`
	Unpublished int      `json:"unpublished"`
	ToPublish   []string `json:"to_publish,omitempty"`
	ToUnpublish []string `json:"to_unpublish,omitempty"`
	Unchanged   int      `json:"unchanged"`
}

func newSyncResult(r remote.SyncReport) SyncResult {
	return SyncResult{
		DryRun:      r.DryRun,
		Approved:    r.Approved,
		Published:   r.Published,
		Unpublished: r.Unpublished,
		ToPublish:   r.ToPublish,
		ToUnpublish: r.ToUnpublish,
		Unchanged:   len(r.Unchanged),
	}
}

func (r SyncResult) String() string {
	var b strings.Builder
	if r.DryRun {
		fmt.Fprintf(&b, "Dry run: %d to publish, %d to unpublish, %d unchanged", r.Published, r.Unpublished, r.Unchanged)
		for _, id := range r.ToPublish {
			fmt.Fprintf(&b, "\n  + %s", id)
		}
		for _, id := range r.ToUnpublish {
			fmt.Fprintf(&b, "\n  - %s", id)
		}
		return b.String()
	}
	fmt.Fprintf(&b, "✓ Remote Settings: %d published, %d unpublished, %d unchanged", r.Published, r.Unpublished, r.Unchanged)
	if r.Approved {
		b.WriteString(" (approved)")
	}
	return b.String()
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Publish enabled recipes to Remote Settings",
		Long: `Diff the enabled recipes against the published Remote Settings
collection, upsert what is missing or outdated, delete what should no
longer be published, and approve the changes once.

Example:
  recipesync sync --dry-run
  recipesync sync --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "show the diff without changing anything")

	return cmd
}

func runSync(opts *SyncOptions, cmd *cobra.Command) error {
	a, err := openApp(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, logger := logging.WithRun(cmd.Context(), a.logger)
	a.formatter.RunID = logging.RunID(ctx)

	report, err := a.syncRemote(ctx, logger, opts.DryRun)
	if err != nil {
		return passError(a.formatter, "sync failed", err, newSyncResult(report))
	}
	return a.formatter.Success(newSyncResult(report))
}
