package main

import (
	"os"
	"os/signal"
	"syscall"

	"chatarchive/interfaces/http/rest"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewServeCmd(c containerFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  `Serve the REST API and the rendered graph view until interrupted.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			container, err := c(ctx)
			if err != nil {
				return err
			}

			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = container.Config.ServerAddress
			}
			container.Logger.Info("Serving archive", zap.String("backend", container.Backend.Name))
			return rest.Serve(ctx, rest.NewServer(addr, container.HTTPHandler()), container.Logger)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (defaults to SERVER_ADDRESS)")
	return cmd
}
