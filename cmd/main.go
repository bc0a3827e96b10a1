package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"smart_switch/internal/config"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "smartswitch",
		Short:         "Smart switch controller",
		Long:          "Timer scheduling, safety monitoring and billing for an ESP32 smart switch",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (default configs/config.yml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(quoteCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(readMeterCmd())
	rootCmd.AddCommand(genVAPIDCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
