// Package cmd holds the CLI commands for managing rule files offline.
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"veritas/core"
	"veritas/validate"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// NewRulesCmd creates the `rules` command tree.
func NewRulesCmd() *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and lint cross-module rule files",
		Long:  "Validate rule files against the rule schema and show their contents before loading them into a running engine.",
	}
	rulesCmd.AddCommand(newLintCmd())
	rulesCmd.AddCommand(newShowCmd())
	return rulesCmd
}

func newLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <file>",
		Short: "Check a rule file against the rule schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := validate.LoadRuleFile(args[0], nil)
			if err != nil {
				errorColor.Fprintf(os.Stderr, "✗ %s\n", err)
				return fmt.Errorf("rule file is invalid")
			}
			successColor.Printf("✓ %s: %d rules ok\n", args[0], len(rules))
			inactive := 0
			for _, rule := range rules {
				if !rule.Active {
					inactive++
				}
			}
			if inactive > 0 {
				warningColor.Printf("  %d rules are inactive\n", inactive)
			}
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	var moduleFilter string
	showCmd := &cobra.Command{
		Use:   "show [file]",
		Short: "Print the rules in a file, or the built-in seed set",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rules []core.CrossModuleValidationRule
			if len(args) == 1 {
				loaded, err := validate.LoadRuleFile(args[0], nil)
				if err != nil {
					return err
				}
				rules = loaded
			} else {
				rules = validate.DefaultSeedRules()
			}

			headerColor.Println("SOURCE\tTARGET\tFIELD\tKIND\tACTIVE")
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, rule := range rules {
				if moduleFilter != "" && rule.SourceModule != moduleFilter {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n",
					rule.SourceModule, rule.TargetModule, rule.Field, rule.Kind, rule.Active)
			}
			return w.Flush()
		},
	}
	showCmd.Flags().StringVar(&moduleFilter, "module", "", "only show rules for this source module")
	return showCmd
}
