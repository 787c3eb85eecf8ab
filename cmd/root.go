package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Frogwarg/video-chat/internal/ui"
	"github.com/Frogwarg/video-chat/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "video-chat",
	Short:   "Room-based WebRTC video calls on the local network",
	Long:    `video-chat runs a signaling server for named rooms and joins them as a participant. Peers discover each other inside a room and negotiate direct WebRTC connections; the room owner can mute or remove other participants.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
