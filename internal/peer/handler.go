package peer

import (
	"log/slog"

	"github.com/Frogwarg/video-chat/internal/protocol"
)

// Signal is one relayed offer, answer or ice-candidate with its sender.
type Signal struct {
	Type    string
	From    string
	Payload protocol.SignalPayload
}

// Handler routes incoming server messages onto typed channels.
type Handler struct {
	client *Client

	RoomInfo    chan protocol.RoomInfoPayload
	PeerJoined  chan protocol.PeerInfo
	PeerLeft    chan string
	NewOwner    chan string
	Signals     chan Signal
	MuteCommand chan protocol.MuteCommandPayload
	MuteUpdate  chan protocol.MuteUpdatePayload
	Kicked      chan struct{}
	Errors      chan string

	// Done is closed when the server connection ends.
	Done chan struct{}
}

// NewHandler creates a handler reading from client.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:      client,
		RoomInfo:    make(chan protocol.RoomInfoPayload, 1),
		PeerJoined:  make(chan protocol.PeerInfo, 8),
		PeerLeft:    make(chan string, 8),
		NewOwner:    make(chan string, 1),
		Signals:     make(chan Signal, 32),
		MuteCommand: make(chan protocol.MuteCommandPayload, 4),
		MuteUpdate:  make(chan protocol.MuteUpdatePayload, 8),
		Kicked:      make(chan struct{}, 1),
		Errors:      make(chan string, 1),
		Done:        make(chan struct{}),
	}
}

// Start consumes incoming messages until the connection drops.
func (h *Handler) Start() {
	defer close(h.Done)

	for msg := range h.client.Incoming() {
		switch msg.Type {

		case protocol.TypeRoomInfo:
			var info protocol.RoomInfoPayload
			if err := msg.Decode(&info); err != nil {
				slog.Warn("bad room-info payload", "err", err)
				continue
			}
			h.RoomInfo <- info

		case protocol.TypePeerJoined:
			var info protocol.PeerInfo
			if err := msg.Decode(&info); err != nil {
				continue
			}
			h.PeerJoined <- info

		case protocol.TypePeerLeft:
			var ref protocol.PeerRefPayload
			if err := msg.Decode(&ref); err != nil {
				continue
			}
			h.PeerLeft <- ref.PeerID

		case protocol.TypeNewOwner:
			var ref protocol.PeerRefPayload
			if err := msg.Decode(&ref); err != nil {
				continue
			}
			h.NewOwner <- ref.PeerID

		case protocol.TypeOffer, protocol.TypeAnswer, protocol.TypeICECandidate:
			var sig protocol.SignalPayload
			if err := msg.Decode(&sig); err != nil {
				slog.Warn("bad signal payload", "type", msg.Type, "err", err)
				continue
			}
			h.Signals <- Signal{Type: msg.Type, From: sig.FromPeerID, Payload: sig}

		case protocol.TypeMuteCommand:
			var cmd protocol.MuteCommandPayload
			if err := msg.Decode(&cmd); err != nil {
				continue
			}
			h.MuteCommand <- cmd

		case protocol.TypeMuteUpdate:
			var upd protocol.MuteUpdatePayload
			if err := msg.Decode(&upd); err != nil {
				continue
			}
			h.MuteUpdate <- upd

		case protocol.TypeKicked:
			h.Kicked <- struct{}{}

		case protocol.TypeError:
			var ep protocol.ErrorPayload
			if err := msg.Decode(&ep); err != nil {
				h.Errors <- "unknown server error"
				continue
			}
			h.Errors <- ep.Message

		default:
			slog.Debug("unhandled message type", "type", msg.Type)
		}
	}
}
