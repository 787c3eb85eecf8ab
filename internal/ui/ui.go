package ui

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Frogwarg/video-chat/internal/peer"
)

// PrintError writes an error line to stderr.
func PrintError(msg string) {
	fmt.Fprintln(os.Stderr, "✗ "+msg)
}

// PrintInfo writes an informational line to stdout.
func PrintInfo(msg string) {
	fmt.Println("• " + msg)
}

// RenderRoster prints the current room membership as a table.
func RenderRoster(entries []peer.RosterEntry) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Peer ID", "Name", "Audio", "Video", "Role"})

	for _, e := range entries {
		name := e.UserName
		if e.IsSelf {
			name += " (you)"
		}
		role := ""
		if e.IsOwner {
			role = "owner"
		}
		t.AppendRow(table.Row{e.PeerID, name, onOff(e.Audio), onOff(e.Video), role})
	}
	t.Render()
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "muted"
}
