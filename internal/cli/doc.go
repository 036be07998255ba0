// Package cli implements the traverql command-line interface.
//
// Commands:
//
//	lower        - run the full lowering pipeline over a CUE fixture
//	fingerprint  - print the canonical fingerprint of a fixture
//
// All commands share --format (text|json) and --verbose. JSON output
// uses the CLIResponse envelope; verbose diagnostics go to stderr so
// they never corrupt JSON on stdout.
//
// Exit codes: 0 success, 1 lowering fault (malformed IR or invariant
// violation), 2 command error (bad paths, bad fixtures, cache trouble).
package cli
