package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/traverql/internal/cache"
	"github.com/roach88/traverql/internal/fixture"
	"github.com/roach88/traverql/internal/ir"
	"github.com/roach88/traverql/internal/lowering"
)

// LowerOptions holds flags for the lower command.
type LowerOptions struct {
	*RootOptions
	Output string // output file path for the lowered canonical JSON
	Cache  string // optional SQLite cache path
}

// LowerResult is the success payload of the lower command.
type LowerResult struct {
	QueryFingerprint   string          `json:"query_fingerprint"`
	LoweredFingerprint string          `json:"lowered_fingerprint"`
	Blocks             json.RawMessage `json:"blocks"`
	CacheHit           bool            `json:"cache_hit,omitempty"`
	RunID              string          `json:"run_id,omitempty"`
}

// NewLowerCommand creates the lower command.
func NewLowerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LowerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lower <fixture.cue>",
		Short: "Lower a compiled query to its backend-ready block form",
		Long: `Lower a compiled query fixture through the full pipeline.

The pipeline inserts type bounds, removes location revisits, resolves
local fields, and hoists optional-scope filters. The result is printed
as canonical JSON alongside the query and lowered fingerprints.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLower(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "SQLite cache path (reuse prior lowering results)")

	return cmd
}

func runLower(opts *LowerOptions, fixturePath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	fix, err := fixture.Load(fixturePath)
	if err != nil {
		return outputFixtureError(formatter, err)
	}
	formatter.VerboseLog("Compiled fixture %s: %d block(s)", fixturePath, len(fix.Blocks))

	queryFP, err := ir.Fingerprint(fix.Blocks)
	if err != nil {
		_ = formatter.Error(ErrCodeBadFixture, err.Error(), nil)
		return WrapExitError(ExitCommandError, "fingerprinting fixture", err)
	}

	var c *cache.Cache
	if opts.Cache != "" {
		c, err = cache.Open(opts.Cache)
		if err != nil {
			_ = formatter.Error(ErrCodeCache, err.Error(), nil)
			return WrapExitError(ExitCommandError, "opening cache", err)
		}
		defer c.Close()

		entry, found, err := c.Get(cmd.Context(), queryFP)
		if err != nil {
			_ = formatter.Error(ErrCodeCache, err.Error(), nil)
			return WrapExitError(ExitCommandError, "reading cache", err)
		}
		if found {
			formatter.VerboseLog("Cache hit for %s (run %s)", queryFP, entry.RunID)
			result := &LowerResult{
				QueryFingerprint:   entry.Fingerprint,
				LoweredFingerprint: entry.LoweredFingerprint,
				Blocks:             json.RawMessage(entry.LoweredJSON),
				CacheHit:           true,
				RunID:              entry.RunID,
			}
			return outputLowerSuccess(formatter, result, opts.Output)
		}
		formatter.VerboseLog("Cache miss for %s", queryFP)
	}

	lowered, err := lowering.Lower(fix.Blocks, fix.Metadata)
	if err != nil {
		_ = formatter.Error(ErrCodeLowering, err.Error(), nil)
		// Pipeline faults are lowering failures (exit code 1)
		return WrapExitError(ExitFailure, "lowering failed", err)
	}

	loweredFP, err := ir.LoweredFingerprint(lowered)
	if err != nil {
		_ = formatter.Error(ErrCodeLowering, err.Error(), nil)
		return WrapExitError(ExitFailure, "fingerprinting lowered blocks", err)
	}

	loweredJSON, err := ir.MarshalCanonical(lowered)
	if err != nil {
		_ = formatter.Error(ErrCodeLowering, err.Error(), nil)
		return WrapExitError(ExitFailure, "serializing lowered blocks", err)
	}

	result := &LowerResult{
		QueryFingerprint:   queryFP,
		LoweredFingerprint: loweredFP,
		Blocks:             json.RawMessage(loweredJSON),
	}

	if c != nil {
		runID, err := c.Put(cmd.Context(), queryFP, loweredFP, loweredJSON)
		if err != nil {
			_ = formatter.Error(ErrCodeCache, err.Error(), nil)
			return WrapExitError(ExitCommandError, "writing cache", err)
		}
		result.RunID = runID
		formatter.VerboseLog("Cached lowering as run %s", runID)
	}

	return outputLowerSuccess(formatter, result, opts.Output)
}

// outputFixtureError reports a fixture compilation failure with source
// position when available.
func outputFixtureError(formatter *OutputFormatter, err error) error {
	var compileErr *fixture.CompileError
	if errors.As(err, &compileErr) {
		if formatter.Format != "json" && compileErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				compileErr.Pos.Filename(),
				compileErr.Pos.Line(),
				compileErr.Pos.Column())
		}
		_ = formatter.Error(ErrCodeBadFixture, compileErr.Message, compileErr.Field)
		return WrapExitError(ExitCommandError, "bad fixture", err)
	}
	_ = formatter.Error(ErrCodeBadFixture, err.Error(), nil)
	return WrapExitError(ExitCommandError, "bad fixture", err)
}

// outputLowerSuccess prints the lowering result and optionally writes
// the canonical JSON to a file.
func outputLowerSuccess(formatter *OutputFormatter, result *LowerResult, outputFile string) error {
	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(result.Blocks), 0o644); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	// Human-readable text output
	var blocks []json.RawMessage
	blockCount := "?"
	if err := json.Unmarshal(result.Blocks, &blocks); err == nil {
		blockCount = fmt.Sprintf("%d", len(blocks))
	}

	source := "lowered"
	if result.CacheHit {
		source = "cache hit"
	}
	fmt.Fprintf(formatter.Writer, "✓ %s: %s block(s)\n", source, blockCount)
	fmt.Fprintf(formatter.Writer, "  query:   %s\n", result.QueryFingerprint)
	fmt.Fprintf(formatter.Writer, "  lowered: %s\n", result.LoweredFingerprint)
	if result.RunID != "" {
		fmt.Fprintf(formatter.Writer, "  run:     %s\n", result.RunID)
	}
	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote canonical JSON to %s\n", outputFile)
	}

	return nil
}
