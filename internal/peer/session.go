package peer

import (
	"encoding/json"
	"errors"

	"github.com/Frogwarg/video-chat/internal/protocol"
)

var (
	// ErrUnexpectedOffer means an offer arrived while a local offer was
	// already outstanding. The deterministic initiator rule makes this a
	// protocol violation or a stale message; it is discarded.
	ErrUnexpectedOffer = errors.New("offer received while not idle")

	// ErrUnexpectedAnswer means an answer arrived with no local offer
	// outstanding, typically a duplicate or out-of-order delivery.
	ErrUnexpectedAnswer = errors.New("answer received while not offering")
)

// State is the negotiation phase of a session.
type State int

const (
	// StateIdle: no description exchanged yet. Non-initiators stay here
	// until an offer arrives.
	StateIdle State = iota

	// StateOffering: a local offer is outstanding and unanswered.
	StateOffering

	// StateAnswering: a remote offer was applied and the local answer is
	// being delivered.
	StateAnswering

	// StateConnected: descriptions are exchanged in both directions.
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOffering:
		return "offering"
	case StateAnswering:
		return "answering"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Transport is the local media-transport object backing one session. The
// production implementation wraps a pion PeerConnection; tests substitute a
// fake.
type Transport interface {
	// CreateOffer generates and applies the local offer description.
	CreateOffer() (json.RawMessage, error)

	// CreateAnswer applies the remote offer, then generates and applies
	// the local answer description.
	CreateAnswer(remoteOffer json.RawMessage) (json.RawMessage, error)

	// AcceptAnswer applies the remote answer description.
	AcceptAnswer(remoteAnswer json.RawMessage) error

	// AddCandidate applies a remote ICE candidate.
	AddCandidate(candidate json.RawMessage) error

	// SetEnabled flips the enabled attribute of the local track of the
	// given kind. Never triggers renegotiation.
	SetEnabled(kind protocol.Kind, enabled bool)

	// Close releases the underlying connection.
	Close() error
}

// Session tracks negotiation with a single counterpart. The role is decided
// once at creation: the lexicographically smaller peer identifier initiates.
// All methods must be called from the manager's dispatch goroutine.
type Session struct {
	remoteID  string
	initiator bool
	state     State
	transport Transport
}

// NewSession creates a session for the given counterpart.
func NewSession(localID, remoteID string, transport Transport) *Session {
	return &Session{
		remoteID:  remoteID,
		initiator: localID < remoteID,
		state:     StateIdle,
		transport: transport,
	}
}

// RemoteID returns the counterpart's peer identifier.
func (s *Session) RemoteID() string { return s.remoteID }

// Initiator reports whether the local peer offers first.
func (s *Session) Initiator() bool { return s.initiator }

// State returns the current negotiation phase.
func (s *Session) State() State { return s.state }

// Start produces the initial offer if this side is the initiator; the
// responder side returns nil and stays idle awaiting the remote offer.
func (s *Session) Start() (json.RawMessage, error) {
	if !s.initiator || s.state != StateIdle {
		return nil, nil
	}
	offer, err := s.transport.CreateOffer()
	if err != nil {
		return nil, err
	}
	s.state = StateOffering
	return offer, nil
}

// HandleOffer applies a remote offer and produces the local answer. Offers
// arriving in any state but idle are rejected: with the deterministic
// initiator rule a conflicting offer is glare or a stale message.
func (s *Session) HandleOffer(remoteOffer json.RawMessage) (json.RawMessage, error) {
	if s.state != StateIdle {
		return nil, ErrUnexpectedOffer
	}
	answer, err := s.transport.CreateAnswer(remoteOffer)
	if err != nil {
		return nil, err
	}
	s.state = StateAnswering
	return answer, nil
}

// AnswerDelivered marks the responder path complete once the answer has
// been handed to the relay.
func (s *Session) AnswerDelivered() {
	if s.state == StateAnswering {
		s.state = StateConnected
	}
}

// HandleAnswer applies a remote answer. Only exactly one outstanding,
// unanswered local offer can be answered; anything else is a duplicate or
// out-of-order delivery and is rejected.
func (s *Session) HandleAnswer(remoteAnswer json.RawMessage) error {
	if s.state != StateOffering {
		return ErrUnexpectedAnswer
	}
	if err := s.transport.AcceptAnswer(remoteAnswer); err != nil {
		return err
	}
	s.state = StateConnected
	return nil
}

// HandleCandidate applies a remote ICE candidate. Candidates are accepted
// in every state; they may legitimately arrive before or after the
// description exchange completes.
func (s *Session) HandleCandidate(candidate json.RawMessage) error {
	return s.transport.AddCandidate(candidate)
}

// SetEnabled flips the local track attribute for one kind.
func (s *Session) SetEnabled(kind protocol.Kind, enabled bool) {
	s.transport.SetEnabled(kind, enabled)
}

// Close releases the session's transport unconditionally, whatever phase
// it is in.
func (s *Session) Close() error {
	return s.transport.Close()
}
