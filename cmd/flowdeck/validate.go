package main

import (
	"fmt"
	"os"

	"github.com/aretw0/flowdeck/internal/flow"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <template>",
	Short: "Check a flow template for consistency",
	Long: `Resolves the template with its includes, parses the step list and
verifies that every step dependency points at an existing step output.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args[0]); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Template %q is valid.\n", args[0])
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, name string) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	doc, err := app.Templates().LoadTemplate(cmd.Context(), name)
	if err != nil {
		return fmt.Errorf("failed to load template: %w", err)
	}

	cfg, err := flow.ParseConfig(doc)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	// LoadSteps instantiates every step and checks its dependencies.
	return flow.New(cfg, nil).LoadSteps()
}
