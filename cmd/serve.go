package cmd

import (
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/Frogwarg/video-chat/internal/config"
	"github.com/Frogwarg/video-chat/internal/server"
	"github.com/Frogwarg/video-chat/internal/signaling"
)

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling server",
	Long: `Run the room registry and signaling relay.

Examples:
  video-chat serve
  video-chat serve --listen :9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func runServer() error {
	cfg, err := config.Load(config.Options{ListenAddr: flagListen})
	if err != nil {
		return err
	}

	hub := signaling.NewHub()
	go hub.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", server.ServeWs(hub))
	mux.HandleFunc("/health", server.HealthHandler)

	slog.Info("signaling server listening", "addr", cfg.ListenAddr)
	return http.ListenAndServe(cfg.ListenAddr, mux)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&flagListen, "listen", "l", "", "Listen address")
}
