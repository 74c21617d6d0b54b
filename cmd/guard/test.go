package main

import (
	"fmt"
	"os"

	"github.com/guardlang/guard/pkgs/fixture"
	"github.com/spf13/cobra"
)

func newTestCmd() *cobra.Command {
	var (
		rulesFiles []string
		testData   []string
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run rule files against YAML/JSON test fixtures with expected per-rule statuses",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(rulesFiles) == 0 || len(testData) == 0 {
				return internalErrorf("test requires at least one --rules and one --test-data")
			}

			anyFail := false
			for _, rf := range rulesFiles {
				rulesFile, err := loadRulesFile(rf)
				if err != nil {
					return internalErrorf("parsing %s: %w", rf, err)
				}
				for _, td := range testData {
					data, err := os.ReadFile(td)
					if err != nil {
						return internalErrorf("reading %s: %w", td, err)
					}
					f, err := fixture.Load(td, data)
					if err != nil {
						return internalErrorf("loading fixture %s: %w", td, err)
					}
					results, err := fixture.Run(rf, rulesFile, f)
					if err != nil {
						return internalErrorf("running fixture %s: %w", td, err)
					}
					for _, r := range results {
						if r.Passed() {
							fmt.Fprintf(cmd.OutOrStdout(), "PASS %s :: %s\n", td, r.Name)
							continue
						}
						anyFail = true
						fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s :: %s\n", td, r.Name)
						for _, m := range r.Mismatches {
							fmt.Fprintf(cmd.OutOrStdout(), "  rule %s: expected %s, got %s\n", m.Rule, m.Expected, m.Got)
						}
					}
				}
			}

			if anyFail {
				exitCode = ExitRuleFailures
			} else {
				exitCode = ExitSuccess
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&rulesFiles, "rules", nil, "rule file (repeatable)")
	cmd.Flags().StringArrayVar(&testData, "test-data", nil, "fixture file of expected statuses (repeatable)")
	return cmd
}
