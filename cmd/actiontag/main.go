package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"actiontag/internal/config"
	"actiontag/internal/constants"
	"actiontag/internal/logger"
	"actiontag/pkg/logging"
)

var (
	configFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   constants.ServiceName,
		Short: "Tags JSON documents with the action they describe",
		Long: "actiontag classifies JSON documents by their exact key set and annotates\n" +
			"them with an action field: messageSent, userJoin or quiet.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (defaults to CONFIG_FILE)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(classifyCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file when one is given and falls back to
// defaults plus environment otherwise, unless required is set.
func loadConfig(required bool) (*config.Config, error) {
	earlyLog := logging.NewEarlyLog()

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile == "" {
		if required {
			earlyLog.Error("Config file is required. Use --config flag or CONFIG_FILE environment variable")
			return nil, fmt.Errorf("config file is required")
		}
		return config.Defaults()
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		earlyLog.Error("Failed to load config: %v", err)
		return nil, err
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when a broker is configured, the classification consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}

			log, err := logger.New(cfg.Logging, logger.WithServiceName(constants.ServiceName))
			if err != nil {
				logging.NewEarlyLog().Error("Failed to init logger: %v", err)
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting actiontag service")

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.ErrorwCtx(ctx, "Failed to initialize application", "error", err)
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
				defer shutdownCancel()
				_ = app.Shutdown(shutdownCtx)
				return err
			}

			log.InfowCtx(ctx, "Service running")
			runErr := app.Run(ctx)

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer shutdownCancel()
			if err := app.Shutdown(shutdownCtx); err != nil {
				log.ErrorwCtx(shutdownCtx, "Shutdown failed", "error", err)
			}

			if runErr != nil && runErr != context.Canceled {
				log.ErrorwCtx(ctx, "Service stopped with error", "error", runErr)
				return runErr
			}
			log.InfowCtx(ctx, "Service shutdown complete")
			return nil
		},
	}
}

func classifyCmd() *cobra.Command {
	var (
		name      string
		overwrite bool
	)

	cmd := &cobra.Command{
		Use:   "classify <path>",
		Short: "Classify one JSON document",
		Long: "Reads the document at <path>, adds its action and prints the result.\n" +
			"With --name the annotated document is written to the configured sink instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("overwrite") {
				cfg.Store.Sink.Overwrite = overwrite
			}

			log, err := logger.New(cfg.Logging, logger.WithOutputPaths("stderr"))
			if err != nil {
				logging.NewEarlyLog().Error("Failed to init logger: %v", err)
				return err
			}
			defer log.Sync()

			return runClassify(cmd.Context(), cfg, log, args[0], name, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Store the annotated document under this name")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing stored document")

	return cmd
}
