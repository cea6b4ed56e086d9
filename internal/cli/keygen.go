package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/recipesync/internal/signing"
)

// KeygenResult is the output of keygen.
type KeygenResult struct {
	Path   string `json:"path"`
	KeyRef string `json:"key_ref"`
}

func (r KeygenResult) String() string {
	return fmt.Sprintf("✓ Wrote signing key to %s\n  %s", r.Path, r.KeyRef)
}

// NewKeygenCommand creates the keygen command.
func NewKeygenCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen <path>",
		Short: "Create an Ed25519 key for the local signing backend",
		Long: `Write a new hex-encoded Ed25519 seed to path for use with
signing.backend = "local". The file is created with mode 0600 and is
never overwritten.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeygen(rootOpts, args[0], cmd)
		},
	}
}

func runKeygen(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts)

	seed, err := signing.GenerateSeed()
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, "failed to generate key", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600) // #nosec G304 - operator-supplied key path
	if err != nil {
		return commandError(formatter, ErrCodeUsage, "failed to create key file", err)
	}
	if _, err := fmt.Fprintln(f, seed); err != nil {
		f.Close()
		return commandError(formatter, ErrCodeGeneric, "failed to write key file", err)
	}
	if err := f.Close(); err != nil {
		return commandError(formatter, ErrCodeGeneric, "failed to write key file", err)
	}

	signer, err := signing.LoadLocalSigner(path)
	if err != nil {
		return commandError(formatter, ErrCodeGeneric, "failed to read back key", err)
	}
	return formatter.Success(KeygenResult{Path: path, KeyRef: signer.KeyRef()})
}
