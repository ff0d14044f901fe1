package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage saved sessions",
	Long:  `List, inspect, rename, duplicate and remove saved flow sessions.`,
}

var sessionLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List all saved sessions",
	Run: func(cmd *cobra.Command, args []string) {
		app := mustApp()
		sessions, err := app.Sessions().List(cmd.Context())
		if err != nil {
			fmt.Printf("Error listing sessions: %v\n", err)
			os.Exit(1)
		}

		if len(sessions) == 0 {
			fmt.Println("No saved sessions found.")
			return
		}

		fmt.Println("Saved Sessions:")
		for _, s := range sessions {
			fmt.Println("- " + s)
		}
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <name>",
	Short: "Print the saved state of a session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := mustApp()
		snapshot, err := app.Sessions().LoadNamed(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Error loading session %q: %v\n", args[0], err)
			os.Exit(1)
		}

		data, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			fmt.Printf("Error marshaling state: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
	},
}

var sessionRenameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a saved session",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		app := mustApp()
		if err := app.Sessions().Rename(cmd.Context(), args[0], args[1]); err != nil {
			fmt.Printf("Error renaming session: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Renamed %q to %q.\n", args[0], args[1])
	},
}

var sessionDuplicateCmd = &cobra.Command{
	Use:   "duplicate <name>",
	Short: "Duplicate a saved session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := mustApp()
		copyName, err := app.Sessions().Duplicate(cmd.Context(), args[0])
		if err != nil {
			fmt.Printf("Error duplicating session: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created %q.\n", copyName)
	},
}

var sessionRmCmd = &cobra.Command{
	Use:     "rm <name>",
	Aliases: []string{"delete"},
	Short:   "Remove a saved session",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := mustApp()
		if err := app.Sessions().Delete(cmd.Context(), args[0]); err != nil {
			fmt.Printf("Error removing session: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Removed %q.\n", args[0])
	},
}

func init() {
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRenameCmd)
	sessionCmd.AddCommand(sessionDuplicateCmd)
	sessionCmd.AddCommand(sessionRmCmd)
	rootCmd.AddCommand(sessionCmd)
}
