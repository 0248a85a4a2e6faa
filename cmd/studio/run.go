package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cozy-creator/product-studio/internal/app"
	"github.com/cozy-creator/product-studio/internal/config"
	"github.com/cozy-creator/product-studio/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the HTTP server and, in pool mode, the in-process workers",
	RunE:  runApp,
}

func init() {
	flags := runCmd.Flags()

	flags.Int("port", 8881, "Port to run the server on")
	flags.String("host", "localhost", "Host to run the server on")
	flags.String("filesystem-type", "", "Filesystem type: 'local', 's3' or 'minio'")
	flags.String("dispatch", "", "Job dispatch: 'pool' runs jobs in this process, 'redis' queues them for workers")

	viper.BindPFlag("port", flags.Lookup("port"))
	viper.BindPFlag("host", flags.Lookup("host"))
	viper.BindPFlag("filesystem_type", flags.Lookup("filesystem-type"))
	viper.BindPFlag("dispatch", flags.Lookup("dispatch"))
}

func createNewApp(cfg *config.Config) (*app.App, error) {
	options := []app.OptionFunc{
		app.WithDBInitialization(),
		app.WithFileStorage(),
		app.WithInference(),
	}
	if cfg.Dispatch == config.DispatchRedis {
		options = append(options, app.WithMQ())
	}

	return app.NewApp(cfg, options...)
}

func runApp(_ *cobra.Command, _ []string) error {
	cfg := config.MustGetConfig()

	app, err := createNewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if cfg.Dispatch == config.DispatchPool {
		recovered, err := app.Recover()
		if err != nil {
			return err
		}
		if recovered > 0 {
			app.Logger.Info("requeued jobs from a previous run", zap.Int("jobs", recovered))
		}
	}

	server, err := server.NewServer(cfg)
	if err != nil {
		return err
	}
	server.SetupRoutes(app)

	errc := make(chan error, 1)
	signalc := make(chan os.Signal, 1)
	signal.Notify(signalc, os.Interrupt, syscall.SIGTERM)

	go func() {
		app.Logger.Info("server listening", zap.String("addr", server.Addr()))
		errc <- server.Start()
	}()

	select {
	case err := <-errc:
		return err
	case <-signalc:
		app.Logger.Info("shutting down")
		return server.Stop(context.Background())
	}
}
