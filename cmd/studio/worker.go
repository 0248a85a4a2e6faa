package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cozy-creator/product-studio/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume queued jobs from redis and run them",
	RunE:  runWorker,
}

func runWorker(_ *cobra.Command, _ []string) error {
	cfg := config.MustGetConfig()
	if cfg.Dispatch != config.DispatchRedis {
		return fmt.Errorf("worker needs dispatch=%s, got %s", config.DispatchRedis, cfg.Dispatch)
	}

	app, err := createNewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	consumer, err := app.Consumer()
	if err != nil {
		return err
	}

	recovered, err := app.Recover()
	if err != nil {
		return err
	}
	app.Logger.Info("worker started", zap.Int("recovered", recovered))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return consumer.Run(ctx)
}
