package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/flowdeck"
	"github.com/aretw0/flowdeck/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "flowdeck",
	Short: "Flowdeck is a configuration driven workflow runner",
	Long: `Flowdeck turns YAML flow templates into interactive, resumable
document workflows with text retrieval and chat model steps.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/flowdeck/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Defaults first so they apply even without a config file.
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("FLOWDECK")
	// FLOWDECK_STORAGE_BACKEND maps to storage.backend, and so on.
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Missing config file is fine, defaults and env carry the rest.
	_ = viper.ReadInConfig()
}

// newApp builds the engine from the resolved configuration. Shared by every
// subcommand that needs a running engine.
func newApp() (*flowdeck.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return flowdeck.New(cfg)
}

// mustApp is newApp for commands that cannot do anything useful without an
// engine.
func mustApp() *flowdeck.App {
	app, err := newApp()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return app
}
