package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/basecamp-overlay/overlay/internal/controller"
)

var (
	address string
	nodeID  string
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "overlay-node",
		Short: "overlay-node runs one node of the static key-value overlay",
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start this node's gRPC and admin servers",
		RunE:  runStart,
	}
	startCmd.Flags().StringVar(&address, "address", "0.0.0.0:7000", "gRPC listen address (host:port)")
	startCmd.Flags().StringVar(&nodeID, "node-id", "", "this node's id, as it appears in the topology config")
	startCmd.Flags().StringVar(&cfgFile, "config", "", "path to the topology config file")
	_ = startCmd.MarkFlagRequired("node-id")
	rootCmd.AddCommand(startCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting overlay node", zap.String("node_id", nodeID), zap.String("address", address))

	ctrl := controller.New(nodeID, address, cfgFile, logger)
	return ctrl.Run(context.Background())
}
