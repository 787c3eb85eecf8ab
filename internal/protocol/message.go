package protocol

import "encoding/json"

// Message types exchanged over the signaling channel.
const (
	TypeJoinRoom     = "join-room"
	TypeRoomInfo     = "room-info"
	TypePeerJoined   = "peer-joined"
	TypeOffer        = "offer"
	TypeAnswer       = "answer"
	TypeICECandidate = "ice-candidate"
	TypeLeaveRoom    = "leave-room"
	TypePeerLeft     = "peer-left"
	TypeNewOwner     = "new-owner"
	TypeMutePeer     = "mute-peer"
	TypeMuteCommand  = "mute-command"
	TypeMuteUpdate   = "mute-update"
	TypeKickPeer     = "kick-peer"
	TypeKicked       = "kicked"
	TypeError        = "error"
)

// Kind selects which media track a mute operation applies to.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// Valid reports whether k is a known track kind.
func (k Kind) Valid() bool {
	return k == KindAudio || k == KindVideo
}

// Message is the envelope for all C2S and S2C websocket messages.
// The payload stays raw until the handler for Type decodes it.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage builds an envelope with the payload marshalled in place.
func NewMessage(msgType string, payload any) (*Message, error) {
	if payload == nil {
		return &Message{Type: msgType}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: msgType, Payload: raw}, nil
}

// MustMessage is NewMessage for payload types that cannot fail to marshal.
func MustMessage(msgType string, payload any) *Message {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// Decode unmarshals the payload into v.
func (m *Message) Decode(v any) error {
	return json.Unmarshal(m.Payload, v)
}
