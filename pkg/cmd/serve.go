package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emcd/librovore/pkg/mcpserver"
)

func newServeCmd(flags *cmdFlags, build BuildInfo) *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP tool server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags.TextFormat = false

			if err := initLogger(flags); err != nil {
				return fmt.Errorf("failed to init logger: %w", err)
			}

			cfg, err := loadConfig(flags)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if transport != "" {
				cfg.Server.Transport = transport
			}

			svc := bootstrap(cfg)
			srv := mcpserver.New(svc, build.Version)

			switch cfg.Server.Transport {
			case "sse":
				return srv.ServeSSE(context.Background(), fmt.Sprintf(":%d", cfg.Server.Port))
			case "stdio", "":
				return srv.ServeStdio()
			default:
				return fmt.Errorf("unknown server transport %q", cfg.Server.Transport)
			}
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "server transport: stdio or sse (default from configuration)")

	return cmd
}
