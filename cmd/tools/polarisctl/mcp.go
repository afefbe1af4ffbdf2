package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/polaris/backend/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server over stdio",
		Long: `Exposes create_session, health_check, ask_discovery, select_portfolio,
generate_prototype, generate_mock and estimate_development as MCP tools.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}

			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			slog.SetDefault(a.Logger)
			a.Logger.Info("starting POLARIS MCP server (stdio)")

			return mcp.NewServer(a, version).ServeStdio()
		},
	}
}
