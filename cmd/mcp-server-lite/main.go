// Command mcp-server-lite runs the report tools over stdio with SQLite
// persistence and no external services.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/radreport-mcp-server/internal/config"
	"github.com/radreport-mcp-server/internal/mcp"
	"github.com/radreport-mcp-server/internal/setup"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mcp-server-lite",
		Short:         "Radiology report MCP server backed by SQLite",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(newSetupCmd())
	return root
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server, err := mcp.NewLiteServer(config.LoadLiteConfig())
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	return server.Run(ctx)
}

func newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register this server with a desktop MCP client",
	}

	var opts setup.Options
	register := &cobra.Command{
		Use:   "register",
		Short: "Add or update the client configuration entry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := setup.Register(opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %q in %s\nRestart the client to load it.\n", setup.ServerName, path)
			return nil
		},
	}
	register.Flags().StringVar(&opts.ConfigPath, "config", "", "client config file (default: platform location)")
	register.Flags().StringVar(&opts.BinaryPath, "binary", "", "path to mcp-server-lite (default: this executable)")
	register.Flags().StringVar(&opts.DataDir, "data-dir", "", "data directory passed as RADREPORT_DATA_DIR")
	register.Flags().StringVar(&opts.UserID, "user", "", "user id passed as RADREPORT_USER")
	register.Flags().StringVar(&opts.Provider, "provider", "", "openai or anthropic; forwards the matching API key")

	var statusPath string
	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current registration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := setup.Check(statusPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config:     %s\n", st.ConfigPath)
			fmt.Fprintf(out, "Registered: %t\n", st.Registered)
			if st.Registered {
				fmt.Fprintf(out, "Command:    %s\n", st.Entry.Command)
			}
			for _, issue := range st.Issues {
				fmt.Fprintf(out, "  ! %s\n", issue)
			}
			return nil
		},
	}
	status.Flags().StringVar(&statusPath, "config", "", "client config file (default: platform location)")

	cmd.AddCommand(register, status)
	return cmd
}
