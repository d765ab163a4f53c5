package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/litescript/ls-sensitivity/internal/config"
	"github.com/litescript/ls-sensitivity/internal/logging"
	"github.com/litescript/ls-sensitivity/internal/report"
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "List the backend's parameter descriptors",
	Args:  cobra.NoArgs,
	RunE:  runParams,
}

var bandsCmd = &cobra.Command{
	Use:   "bands",
	Short: "List the receiver bands used for bandwidth checks",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		report.WriteBands(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(paramsCmd)
	rootCmd.AddCommand(bandsCmd)
}

func runParams(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	set, err := newBackend(cfg, logger, nil).Descriptors(ctx)
	if err != nil {
		return fmt.Errorf("load descriptors: %w", err)
	}
	report.WriteDescriptors(os.Stdout, set)
	return nil
}
