// Package cli implements swarmd's command-line interface using Cobra.
// Most subcommands build their own in-process Orchestrator and drive it
// through its programmatic methods directly — there is no network RPC
// between the CLI and a running daemon. `system stop` and the
// `background` commands build no Orchestrator: they fork `system start`
// as a detached process, or signal one, tracked through a pidfile.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "swarmd",
	Short: "swarmd — distributed agent orchestration runtime",
	Long: `swarmd coordinates a swarm of worker agents over a neural mesh,
dispatches tasks by capability and priority, and settles cross-agent
decisions through majority-vote consensus.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go. Exit code is 0 on
// success, 2 for invalid arguments (see usageErrorf), 1 for any other
// operational failure.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		code := 1
		var ce *cliError
		if errors.As(err, &ce) {
			code = ce.code
		}
		os.Exit(code)
	}
}

// cliError carries the process exit code a failure should produce,
// distinguishing "you typed it wrong" (2) from "it ran and failed" (1).
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

// usageErrorf builds an exit-code-2 error for malformed CLI input.
func usageErrorf(format string, a ...any) error {
	return &cliError{code: 2, err: fmt.Errorf(format, a...)}
}

// opError wraps err, if non-nil, as an exit-code-1 operational failure.
func opError(err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: 1, err: err}
}

// exactArgs returns a cobra.Args validator producing a usage (exit 2)
// error instead of cobra's default, so argument-count mistakes and
// operational failures are distinguishable by exit code.
func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usageErrorf("usage: %s", usage)
		}
		return nil
	}
}

func rangeArgs(min, max int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < min || len(args) > max {
			return usageErrorf("usage: %s", usage)
		}
		return nil
	}
}
