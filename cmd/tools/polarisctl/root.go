package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/polaris/backend/internal/app"
	"github.com/zhouzirui/polaris/backend/internal/config"
	"github.com/zhouzirui/polaris/backend/internal/logging"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "polarisctl",
		Short:         "Operator tool for the POLARIS discovery assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("env-file", ".env", "Environment file loaded before the configuration")

	root.AddCommand(
		newHealthCmd(),
		newProbeCmd(),
		newIndexCatalogCmd(),
		newPrototypeCmd(),
		newMCPCmd(),
		newVersionCmd(),
	)
	return root
}

// loadConfig seeds the environment from --env-file and parses it.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			slog.Debug("env file not loaded", "path", envFile, "error", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	// 日志只写 stderr，stdout 留给命令输出和 MCP 协议
	return cfg, logging.New(cfg.Log.Level, cfg.Log.Format), nil
}

func loadApp(ctx context.Context, cmd *cobra.Command) (*app.App, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the polarisctl version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
