package peer

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/Frogwarg/video-chat/internal/protocol"
)

// TransportFactory builds the media transport for one counterpart.
// onCandidate is invoked from the transport's gathering goroutine for every
// local ICE candidate that must be relayed.
type TransportFactory func(remotePeerID string, onCandidate func(json.RawMessage)) (Transport, error)

// NewTransportFactory returns a factory producing pion-backed transports
// configured with a single STUN resolver. No TURN relay is configured;
// traversal of restrictive NATs is out of scope.
func NewTransportFactory(stunServer string) TransportFactory {
	return func(remotePeerID string, onCandidate func(json.RawMessage)) (Transport, error) {
		pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
			ICEServers: []webrtc.ICEServer{
				{URLs: []string{stunServer}},
			},
		})
		if err != nil {
			return nil, err
		}

		// Negotiate both directions for both kinds; capture devices are
		// attached by the embedding application, not here.
		for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
			if _, err := pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
				Direction: webrtc.RTPTransceiverDirectionSendrecv,
			}); err != nil {
				pc.Close()
				return nil, err
			}
		}

		t := &rtcTransport{
			pc:      pc,
			enabled: map[protocol.Kind]bool{protocol.KindAudio: true, protocol.KindVideo: true},
		}

		pc.OnICECandidate(func(c *webrtc.ICECandidate) {
			if c == nil {
				return
			}
			raw, err := json.Marshal(c.ToJSON())
			if err != nil {
				return
			}
			onCandidate(raw)
		})

		pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
			slog.Debug("peer connection state", "remote", remotePeerID, "state", state.String())
		})

		return t, nil
	}
}

// rtcTransport adapts a pion PeerConnection to the Transport interface.
type rtcTransport struct {
	pc *webrtc.PeerConnection

	mu      sync.Mutex
	enabled map[protocol.Kind]bool
}

// CreateOffer generates the local offer with trickle ICE: it returns as
// soon as the description is set, candidates follow via OnICECandidate.
func (t *rtcTransport) CreateOffer() (json.RawMessage, error) {
	offer, err := t.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	if err := t.pc.SetLocalDescription(offer); err != nil {
		return nil, err
	}
	return json.Marshal(t.pc.LocalDescription())
}

// CreateAnswer applies the remote offer and generates the local answer.
func (t *rtcTransport) CreateAnswer(remoteOffer json.RawMessage) (json.RawMessage, error) {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(remoteOffer, &desc); err != nil {
		return nil, err
	}
	if err := t.pc.SetRemoteDescription(desc); err != nil {
		return nil, err
	}

	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}
	if err := t.pc.SetLocalDescription(answer); err != nil {
		return nil, err
	}
	return json.Marshal(t.pc.LocalDescription())
}

// AcceptAnswer applies the remote answer.
func (t *rtcTransport) AcceptAnswer(remoteAnswer json.RawMessage) error {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(remoteAnswer, &desc); err != nil {
		return err
	}
	return t.pc.SetRemoteDescription(desc)
}

// AddCandidate applies a remote ICE candidate.
func (t *rtcTransport) AddCandidate(candidate json.RawMessage) error {
	var init webrtc.ICECandidateInit
	if err := json.Unmarshal(candidate, &init); err != nil {
		return err
	}
	return t.pc.AddICECandidate(init)
}

// SetEnabled flips the enabled attribute on local senders of the given
// kind. This is a pure attribute flip; it never renegotiates.
func (t *rtcTransport) SetEnabled(kind protocol.Kind, enabled bool) {
	t.mu.Lock()
	t.enabled[kind] = enabled
	t.mu.Unlock()

	for _, sender := range t.pc.GetSenders() {
		track := sender.Track()
		if track == nil || string(kind) != track.Kind().String() {
			continue
		}
		if !enabled {
			// Detaching the track stops sending without touching the
			// negotiated transceiver.
			sender.ReplaceTrack(nil)
		}
	}
}

// Enabled reports the local enabled attribute for one kind.
func (t *rtcTransport) Enabled(kind protocol.Kind) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled[kind]
}

// Close releases the peer connection.
func (t *rtcTransport) Close() error {
	return t.pc.Close()
}
