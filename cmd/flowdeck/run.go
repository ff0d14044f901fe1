package main

import (
	"fmt"
	"os"

	"github.com/aretw0/flowdeck/internal/presentation/term"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <template>",
	Short: "Run a flow template interactively",
	Long: `Runs the named flow template in the terminal, prompting for each
step until the flow settles. State is saved to the active session so the
flow can be resumed later.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := newApp()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		if name, _ := cmd.Flags().GetString("session"); name != "" {
			app.Sessions().SetCurrent(name)
		}

		renderer := term.New()
		if err := app.RunFlow(cmd.Context(), args[0], renderer); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("session", "s", "", "Session to load state from (default is the active session)")
}
