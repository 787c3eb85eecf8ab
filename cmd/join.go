package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Frogwarg/video-chat/internal/config"
	"github.com/Frogwarg/video-chat/internal/peer"
	"github.com/Frogwarg/video-chat/internal/protocol"
	"github.com/Frogwarg/video-chat/internal/ui"
)

var (
	flagDomain string
	flagSTUN   string
	flagName   string
	flagSecure bool
)

var joinCmd = &cobra.Command{
	Use:   "join <room-id>",
	Short: "Join a room as a participant",
	Long: `Join a named room and negotiate direct connections with its other
participants. The first participant to join a room owns it and can mute or
remove the others.

Examples:
  video-chat join room-42
  video-chat join room-42 --name Alice --domain 192.168.0.108:8080`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return joinRoom(args[0])
	},
}

func joinRoom(roomID string) error {
	cfg, err := config.Load(config.Options{
		Domain:     flagDomain,
		STUNServer: flagSTUN,
		Secure:     flagSecure,
	})
	if err != nil {
		return err
	}

	client := peer.NewClient(cfg.WebSocketURL)
	if err := client.Connect(); err != nil {
		return err
	}
	defer client.Close()

	handler := peer.NewHandler(client)
	go handler.Start()

	peerID := "peer-" + uuid.NewString()[:8]
	mgr := peer.NewManager(peerID, flagName, roomID,
		client, peer.NewTransportFactory(cfg.STUNServer))

	if err := mgr.Join(); err != nil {
		return err
	}
	ui.PrintInfo(fmt.Sprintf("joining %s as %s", roomID, peerID))
	ui.PrintInfo(`commands: list, audio, video, mute <peer> <audio|video>, kick <peer>, leave`)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		mgr.Stop()
	}()

	go commandLoop(mgr)

	mgr.Run(handler)
	return nil
}

// commandLoop reads participant commands from stdin until the call ends.
func commandLoop(mgr *peer.Manager) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "list":
			var entries []peer.RosterEntry
			mgr.Do(func() { entries = mgr.Roster() })
			ui.RenderRoster(entries)

		case "audio", "video":
			kind := protocol.Kind(fields[0])
			var enabled bool
			mgr.Do(func() { enabled = mgr.Toggle(kind) })
			ui.PrintInfo(fmt.Sprintf("%s %s", kind, onOff(enabled)))

		case "mute":
			if len(fields) != 3 || !protocol.Kind(fields[2]).Valid() {
				ui.PrintError("usage: mute <peer> <audio|video>")
				continue
			}
			var err error
			mgr.Do(func() { err = mgr.MutePeer(fields[1], protocol.Kind(fields[2])) })
			if err != nil {
				ui.PrintError(err.Error())
			}

		case "kick":
			if len(fields) != 2 {
				ui.PrintError("usage: kick <peer>")
				continue
			}
			var err error
			mgr.Do(func() { err = mgr.KickPeer(fields[1]) })
			if err != nil {
				ui.PrintError(err.Error())
			}

		case "leave":
			mgr.Stop()
			return

		default:
			ui.PrintError("unknown command: " + fields[0])
		}
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "muted"
}

func init() {
	rootCmd.AddCommand(joinCmd)

	joinCmd.Flags().StringVarP(&flagDomain, "domain", "d", "", "Signaling server host:port")
	joinCmd.Flags().StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	joinCmd.Flags().StringVarP(&flagName, "name", "n", "", "Display name")
	joinCmd.Flags().BoolVar(&flagSecure, "secure", false, "Dial the server over wss")
}
