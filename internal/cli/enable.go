package cli

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// EnableResult is the output of enable and disable.
type EnableResult struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

func (r EnableResult) String() string {
	if r.Enabled {
		return fmt.Sprintf("✓ Enabled %s (signed on the next update-signatures run)", r.ID)
	}
	return fmt.Sprintf("✓ Disabled %s (unsigned and unpublished on the next run)", r.ID)
}

// NewEnableCommand creates the enable command, or disable when enabled is
// false.
func NewEnableCommand(rootOpts *RootOptions, enabled bool) *cobra.Command {
	use, short := "enable <recipe-id>", "Enable a recipe"
	if !enabled {
		use, short = "disable <recipe-id>", "Disable a recipe"
	}
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetEnabled(rootOpts, args[0], enabled, cmd)
		},
	}
}

func runSetEnabled(opts *RootOptions, id string, enabled bool, cmd *cobra.Command) error {
	a, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.SetRecipeEnabled(cmd.Context(), id, enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = a.formatter.Error(ErrCodeNotFound, fmt.Sprintf("recipe %s not found", id), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("%s: recipe %s not found", ErrCodeNotFound, id))
		}
		return commandError(a.formatter, ErrCodeDatabase, "failed to update recipe", err)
	}
	a.logger.Info("recipe enabled flag set", "id", id, "enabled", enabled)
	return a.formatter.Success(EnableResult{ID: id, Enabled: enabled})
}
