package main

import (
	"github.com/spf13/cobra"

	"github.com/wereliang/raftlog/log"
	"github.com/wereliang/raftlog/pkg/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay <script.yaml>",
	Short: "run a yaml script of log operations and print each result",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	script, err := replay.Load(args[0])
	if err != nil {
		return err
	}
	raftLog := log.NewMemLog(log.WithFloor(config.MemLog.Floor))
	_, err = replay.Run(cmd.Context(), raftLog, script, cmd.OutOrStdout())
	return err
}
