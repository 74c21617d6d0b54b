package main

import (
	"fmt"

	"github.com/guardlang/guard/pkgs/rulegen"
	"github.com/spf13/cobra"
)

func newRulegenCmd() *cobra.Command {
	var (
		dataFile   string
		typeFilter string
	)

	cmd := &cobra.Command{
		Use:   "rulegen",
		Short: "Generate a rule skeleton from a sample document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataFile == "" {
				return internalErrorf("rulegen requires --data")
			}
			doc, err := loadValueFile(dataFile)
			if err != nil {
				return internalErrorf("reading %s: %w", dataFile, err)
			}
			rules, err := rulegen.Generate(doc, rulegen.Option{TypeFilter: typeFilter})
			if err != nil {
				return internalErrorf("generating rules from %s: %w", dataFile, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), rulegen.Render(rules))
			exitCode = ExitSuccess
			return nil
		},
	}

	cmd.Flags().StringVar(&dataFile, "data", "", "sample document to derive a rule skeleton from")
	cmd.Flags().StringVar(&typeFilter, "type-filter", "", "glob restricting which resource types are considered")
	return cmd
}
