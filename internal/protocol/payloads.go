package protocol

import "encoding/json"

// PeerInfo identifies one room member.
type PeerInfo struct {
	PeerID   string `json:"peerId"`
	UserName string `json:"userName"`
}

// JoinRoomPayload is sent by a client to enter a room.
type JoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	PeerID   string `json:"peerId"`
	UserName string `json:"userName,omitempty"`
}

// RoomInfoPayload is the snapshot the server sends to a joining client.
// ExistingPeers excludes the joiner itself.
type RoomInfoPayload struct {
	Owner         string     `json:"owner"`
	ExistingPeers []PeerInfo `json:"existingPeers"`
}

// LeaveRoomPayload is sent by a client leaving a room voluntarily.
type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
	PeerID string `json:"peerId"`
}

// PeerRefPayload carries a bare peer identifier (peer-left, new-owner).
type PeerRefPayload struct {
	PeerID string `json:"peerId"`
}

// SignalPayload carries offer, answer and ice-candidate messages.
// Description and Candidate are opaque to the relay; Target is set by the
// sender and replaced with FromPeerID on delivery.
type SignalPayload struct {
	Target      string          `json:"target,omitempty"`
	Description json.RawMessage `json:"description,omitempty"`
	Candidate   json.RawMessage `json:"candidate,omitempty"`
	FromPeerID  string          `json:"fromPeerId,omitempty"`
}

// MutePeerPayload is an owner's request to toggle a member's track.
type MutePeerPayload struct {
	TargetPeerID string `json:"targetPeerId"`
	Kind         Kind   `json:"kind"`
}

// MuteCommandPayload forces the target's local track state.
type MuteCommandPayload struct {
	Kind Kind `json:"kind"`
	Mute bool `json:"mute"`
}

// MuteUpdatePayload synchronizes one member's track state across the room.
// Clients also send it to report their own toggles.
type MuteUpdatePayload struct {
	PeerID string `json:"peerId,omitempty"`
	Kind   Kind   `json:"kind"`
	Mute   bool   `json:"mute"`
}

// KickPeerPayload is an owner's request to remove a member.
type KickPeerPayload struct {
	TargetPeerID string `json:"targetPeerId"`
}

// ErrorPayload reports a request validation failure to the client.
type ErrorPayload struct {
	Message string `json:"message"`
}
