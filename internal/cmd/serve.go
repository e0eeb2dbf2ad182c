package cmd

import (
	"fmt"
	"time"

	"github.com/anthropics/replan/internal/mcpserver"
	"github.com/spf13/cobra"
)

var serveTimeout time.Duration

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the replan MCP server over stdio",
	Long: `serve starts an MCP server exposing the replan_plan tool, letting an
AI agent compute parse plans without shelling out to the plan subcommand.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 0, "Exit after this long with no tool calls (0 = never)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	srv, err := mcpserver.New(mcpserver.Config{Timeout: serveTimeout})
	if err != nil {
		return fmt.Errorf("starting mcp server: %w", err)
	}
	return srv.ServeStdio()
}
