package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wereliang/raftlog/pkg/xlog"
	"github.com/wereliang/raftlog/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve an in-memory log over http",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	ins, err := server.NewInstance(config)
	if err != nil {
		return err
	}
	if err := ins.Start(); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	xlog.Info("received %s, shutting down", s)
	return ins.Stop()
}
