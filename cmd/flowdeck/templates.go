package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List available flow templates",
	Long:  `Lists template groups and the flow templates inside each group.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runTemplates(cmd); err != nil {
			fmt.Printf("Error listing templates: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
}

func runTemplates(cmd *cobra.Command) error {
	app, err := newApp()
	if err != nil {
		return err
	}

	groups, err := app.Templates().Groups(cmd.Context())
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Println("No templates found.")
		return nil
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, group := range names {
		info := groups[group]
		fmt.Printf("%s %s\n", info.Icon, info.Title)

		templates, err := app.Templates().GroupTemplates(cmd.Context(), group)
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(templates))
		for key := range templates {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			tpl := templates[key]
			marker := " "
			if !tpl.Enabled {
				marker = "x"
			}
			fmt.Printf("  [%s] %s/%s - %s\n", marker, group, key, tpl.Title)
		}
	}
	return nil
}
