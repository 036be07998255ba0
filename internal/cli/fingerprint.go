package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/traverql/internal/fixture"
	"github.com/roach88/traverql/internal/ir"
)

// FingerprintResult is the success payload of the fingerprint command.
type FingerprintResult struct {
	Fingerprint string `json:"fingerprint"`
	Blocks      int    `json:"blocks"`
}

// NewFingerprintCommand creates the fingerprint command.
func NewFingerprintCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fingerprint <fixture.cue>",
		Short: "Print the canonical fingerprint of a compiled query",
		Long: `Print the canonical fingerprint of a compiled query fixture.

The fingerprint is the SHA-256 of the query's canonical JSON under the
query domain. It identifies the pre-lowering query: two fixtures with
the same fingerprint lower to identical output.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFingerprint(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runFingerprint(opts *RootOptions, fixturePath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	fix, err := fixture.Load(fixturePath)
	if err != nil {
		return outputFixtureError(formatter, err)
	}

	fp, err := ir.Fingerprint(fix.Blocks)
	if err != nil {
		_ = formatter.Error(ErrCodeBadFixture, err.Error(), nil)
		return WrapExitError(ExitCommandError, "fingerprinting fixture", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(&FingerprintResult{
			Fingerprint: fp,
			Blocks:      len(fix.Blocks),
		})
	}

	fmt.Fprintln(formatter.Writer, fp)
	return nil
}
