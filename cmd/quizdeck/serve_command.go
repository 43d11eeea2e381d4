package main

import (
	"net"

	"github.com/spf13/cobra"
	"github.com/xhad/quizdeck/pkg/processor"
	"github.com/xhad/quizdeck/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var (
		port    string
		noMedia bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve imports over a WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			if port != "" {
				cfg.Server.Port = port
			}
			if err := validate(cfg); err != nil {
				return err
			}

			logger := ctx.logger(cmd.ErrOrStderr())
			p, err := ctx.newPipeline(logger, !noMedia, nil)
			if err != nil {
				return err
			}
			if cfg.Import.RichText && p.store != nil {
				if err := processor.WriteStylesheet(p.store); err != nil {
					return err
				}
			}

			s := server.NewWSServer(server.Config{
				AllowedOrigins: cfg.Server.AllowedOrigins,
				DownloadAudio:  cfg.Import.DownloadAudio,
				Processor: processor.ProcessorConfig{
					RichText:    cfg.Import.RichText,
					AddReverse:  cfg.Import.AddReverse,
					ImageOnBack: cfg.Import.ImageOnBack,
				},
			}, p.importer, logger)

			return s.ListenAndServe(cmd.Context(), net.JoinHostPort("", cfg.Server.Port))
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on")
	cmd.Flags().BoolVar(&noMedia, "no-media", false, "Skip all media downloads")
	return cmd
}
