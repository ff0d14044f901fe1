package main

import (
	"fmt"

	"github.com/aretw0/flowdeck"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of flowdeck",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("flowdeck version %s\n", flowdeck.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
