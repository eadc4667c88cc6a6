package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	hglcmcp "github.com/ppiankov/hglc/internal/mcp"
)

var (
	mcpStrict bool
	mcpRecord bool
)

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVar(&mcpStrict, "strict", false, "Reject repeated, embedded or out-of-order markers")
	mcpCmd.Flags().BoolVar(&mcpRecord, "record", true, "Record results in the ledger and audit log")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long:  "Runs hglc as an MCP (Model Context Protocol) server over stdio.\nExposes tools: hglc_compile, hglc_canonicalize, hglc_fingerprint, hglc_lookup.",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, hash := loadConfig()
	svc, closeEngine, err := openEngine(cfg, hash, engineOptions{strict: mcpStrict, record: mcpRecord})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer closeEngine()

	srv := hglcmcp.New(svc, version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	fmt.Fprintf(os.Stderr, "hglc MCP server running on stdio (run %s)\n\n", svc.RunID())
	return srv.Run(ctx)
}
