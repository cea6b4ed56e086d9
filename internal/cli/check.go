package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/recipesync/internal/ir"
	"github.com/roach88/recipesync/internal/signing"
)

// CheckResult is the output of check.
type CheckResult struct {
	Checked  int               `json:"checked"`
	Verified bool              `json:"verified"`
	Findings []signing.Finding `json:"findings"`
}

func (r CheckResult) String() string {
	if len(r.Findings) == 0 {
		s := fmt.Sprintf("✓ %d signature(s) current", r.Checked)
		if r.Verified {
			s += " and verified"
		}
		return s
	}
	var b strings.Builder
	fmt.Fprintf(&b, "✗ %d problem(s) in %d entities", len(r.Findings), r.Checked)
	for _, f := range r.Findings {
		fmt.Fprintf(&b, "\n  %s %s: %s (%s)", f.Kind, f.ID, f.Code, f.Message)
	}
	return b.String()
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report signatures that are missing, stale, expired or invalid",
		Long: `Inspect stored signatures without changing anything.

Reports eligible entities without a signature, signatures whose content
changed (including action implementations whose hash no longer matches),
signatures past signing.max_signature_age, and signatures left on disabled
recipes. With the local signing backend every signature is also verified
cryptographically.

Exits with status 1 when anything is found.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, cmd)
		},
	}
}

func runCheck(opts *RootOptions, cmd *cobra.Command) error {
	a, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	var entities []ir.Signable
	for _, kind := range []ir.Kind{ir.KindRecipe, ir.KindAction} {
		es, err := a.loadSignables(ctx, kind)
		if err != nil {
			return commandError(a.formatter, ErrCodeDatabase, "failed to read "+string(kind)+"s", err)
		}
		entities = append(entities, es...)
	}

	verifier := a.verifier()
	findings := signing.Audit(entities, a.cfg.Signing.MaxSignatureAge.Duration, a.clock().Now(), verifier)
	result := CheckResult{
		Checked:  len(entities),
		Verified: verifier != nil,
		Findings: findings,
	}
	if result.Findings == nil {
		result.Findings = []signing.Finding{}
	}

	if len(findings) > 0 {
		_ = a.formatter.Error(ErrCodeFindings, result.String(), result)
		return NewExitError(ExitFailure, fmt.Sprintf("%d signature problem(s)", len(findings)))
	}
	return a.formatter.Success(result)
}
