package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tosih/ecu-tuner/pkg/safelimit"
	"github.com/tosih/ecu-tuner/pkg/web"
)

var (
	port        int
	openBrowser bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = port
		}
		if cmd.Flags().Changed("open") {
			cfg.Server.OpenBrowser = openBrowser
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := web.NewServer(web.Options{
			Pipeline:  newPipeline(),
			Engine:    safelimit.New(nil, logger),
			MaxUpload: cfg.Server.MaxUpload,
			Logger:    logger,
		})
		return srv.Start(ctx, cfg.Server.Port, cfg.Server.OpenBrowser)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().BoolVar(&openBrowser, "open", false, "Open the strategies endpoint in a browser")
	rootCmd.AddCommand(serveCmd)
}
