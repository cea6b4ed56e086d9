package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/recipesync/internal/catalog"
	"github.com/roach88/recipesync/internal/ir"
	"github.com/roach88/recipesync/internal/metrics"
	"github.com/roach88/recipesync/internal/remote"
	"github.com/roach88/recipesync/internal/signing"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Collaborator overrides (for testing). Nil means build from config.
	Signer     signing.Signer
	Verifier   signing.Verifier
	Collection remote.Collection
	Clock      signing.Clock
	Emitter    metrics.Emitter
	IDs        catalog.IDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the recipesync CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recipesync",
		Version: ir.Version,
		Short:   "Sign recipes and publish them to Remote Settings",
		Long: `recipesync keeps recipe and action signatures current and publishes
enabled recipes to a Remote Settings collection.

A typical deployment imports the authored catalog, then runs
"recipesync run" from a scheduler. Each run re-signs what changed or
expired and converges the remote collection in a single approval.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (.yaml, .yml or .toml)")

	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewUpdateSignaturesCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewEnableCommand(opts, true))
	cmd.AddCommand(NewEnableCommand(opts, false))
	cmd.AddCommand(NewKeygenCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
