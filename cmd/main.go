package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wereliang/raftlog/pkg/xlog"
	"github.com/wereliang/raftlog/server"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "raftlog [command] [flags]",
	Short:         "replicated command log tooling",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// loadConfig reads --config and applies its log section.
func loadConfig() (*server.Config, error) {
	config, err := server.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyLogging(); err != nil {
		return nil, err
	}
	return config, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "raftlog.yaml", "yaml config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
}

func main() {
	err := rootCmd.Execute()
	xlog.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
