// Command guard is the CLI entry point: a cobra command tree
// wiring the parser, evaluator, fixture runner, and rule generator
// packages together behind `validate`, `test`, `parse-tree`, and
// `rulegen` subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes: 0 on an all-PASS run, 2 when at least one rule
// FAILs, 5 or higher for IO/parse/internal errors that never reached an
// evaluation result.
const (
	ExitSuccess      = 0
	ExitRuleFailures = 2
	ExitInternal     = 5
)

func main() {
	os.Exit(run())
}

func run() int {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		if ce, ok := err.(*cliError); ok {
			return ce.code
		}
		return ExitInternal
	}
	return exitCode
}

// exitCode is set by a subcommand's RunE before returning, since cobra's
// Execute only reports error/no-error, not a graduated exit status. It
// is process-global by construction: exactly one subcommand runs per
// invocation.
var exitCode = ExitSuccess

// cliError carries a specific exit code out through cobra's error
// return, for the IO/parse failure paths that must exit >= 5.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func internalErrorf(format string, args ...any) error {
	return &cliError{code: ExitInternal, err: fmt.Errorf(format, args...)}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "guard",
		Short:         "Evaluate policy rules against structured documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newValidateCmd())
	root.AddCommand(newTestCmd())
	root.AddCommand(newParseTreeCmd())
	root.AddCommand(newRulegenCmd())
	return root
}
