package peer

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/Frogwarg/video-chat/internal/protocol"
)

// Signaler delivers messages to the signaling server. *Client satisfies it;
// tests substitute a capture.
type Signaler interface {
	Send(msg *protocol.Message) error
}

// trackFlags mirrors one remote member's reported enabled state.
type trackFlags struct {
	Audio bool
	Video bool
}

// RosterEntry is one room member as the local participant sees it.
type RosterEntry struct {
	PeerID   string
	UserName string
	Audio    bool
	Video    bool
	IsOwner  bool
	IsSelf   bool
}

// Manager owns the local participant's negotiation sessions, one per
// counterpart, plus its view of room membership and ownership. All state is
// touched only from the Run goroutine; external callers go through Do.
type Manager struct {
	localID  string
	userName string
	roomID   string

	signaler     Signaler
	newTransport TransportFactory

	sessions map[string]*Session
	names    map[string]string
	states   map[string]*trackFlags
	order    []string
	owner    string

	audioEnabled bool
	videoEnabled bool

	commands chan func()
	done     chan struct{}
	quit     bool
}

// NewManager creates a manager for one local participant.
func NewManager(localID, userName, roomID string, signaler Signaler, factory TransportFactory) *Manager {
	return &Manager{
		localID:      localID,
		userName:     userName,
		roomID:       roomID,
		signaler:     signaler,
		newTransport: factory,
		sessions:     make(map[string]*Session),
		names:        make(map[string]string),
		states:       make(map[string]*trackFlags),
		audioEnabled: true,
		videoEnabled: true,
		commands:     make(chan func(), 16),
		done:         make(chan struct{}),
	}
}

// LocalID returns the local peer identifier.
func (m *Manager) LocalID() string { return m.localID }

// Join announces the local participant to the room.
func (m *Manager) Join() error {
	return m.signaler.Send(protocol.MustMessage(protocol.TypeJoinRoom, protocol.JoinRoomPayload{
		RoomID:   m.roomID,
		PeerID:   m.localID,
		UserName: m.userName,
	}))
}

// Run dispatches all handler events and queued commands on one goroutine,
// so no two state transitions can interleave. It returns when the server
// connection ends, the participant is kicked, or Stop is called.
func (m *Manager) Run(h *Handler) {
	defer close(m.done)

	for {
		select {
		case info := <-h.RoomInfo:
			m.handleRoomInfo(info)
		case joined := <-h.PeerJoined:
			m.handlePeerJoined(joined)
		case peerID := <-h.PeerLeft:
			m.handlePeerLeft(peerID)
		case ownerID := <-h.NewOwner:
			m.owner = ownerID
		case sig := <-h.Signals:
			m.handleSignal(sig)
		case cmd := <-h.MuteCommand:
			m.handleMuteCommand(cmd)
		case upd := <-h.MuteUpdate:
			m.handleMuteUpdate(upd)
		case <-h.Kicked:
			slog.Warn("removed from room by owner")
			m.leave()
			return
		case errMsg := <-h.Errors:
			slog.Error("server rejected request", "message", errMsg)
		case fn := <-m.commands:
			fn()
			if m.quit {
				return
			}
		case <-h.Done:
			m.closeAll()
			return
		}
	}
}

// Do runs fn on the dispatch goroutine and waits for it to complete. It is
// a no-op once the loop has ended.
func (m *Manager) Do(fn func()) {
	doneCh := make(chan struct{})
	select {
	case m.commands <- func() { fn(); close(doneCh) }:
	case <-m.done:
		return
	}
	select {
	case <-doneCh:
	case <-m.done:
	}
}

// Stop leaves the room and ends the dispatch loop.
func (m *Manager) Stop() {
	m.Do(func() {
		m.leave()
		m.quit = true
	})
}

// handleRoomInfo seeds membership from the join snapshot. Each existing
// peer goes through the same peer-present path as a live join, so the
// initiator rule decides who dials whom.
func (m *Manager) handleRoomInfo(info protocol.RoomInfoPayload) {
	m.owner = info.Owner
	for _, p := range info.ExistingPeers {
		m.names[p.PeerID] = p.UserName
		m.states[p.PeerID] = &trackFlags{Audio: true, Video: true}
		m.order = append(m.order, p.PeerID)
		m.handlePeerPresent(p.PeerID)
	}
	slog.Info("joined room", "room", m.roomID, "owner", info.Owner, "existing", len(info.ExistingPeers))
}

func (m *Manager) handlePeerJoined(info protocol.PeerInfo) {
	m.names[info.PeerID] = info.UserName
	m.states[info.PeerID] = &trackFlags{Audio: true, Video: true}
	m.order = append(m.order, info.PeerID)
	m.handlePeerPresent(info.PeerID)
	slog.Info("peer joined", "peer", info.PeerID, "name", info.UserName)
}

// handlePeerPresent creates a session for a newly visible counterpart and,
// when the local identifier is lexicographically smaller, sends the offer.
func (m *Manager) handlePeerPresent(remoteID string) {
	if _, exists := m.sessions[remoteID]; exists {
		return
	}

	sess, err := m.createSession(remoteID)
	if err != nil {
		slog.Error("failed to create session", "remote", remoteID, "err", err)
		return
	}

	offer, err := sess.Start()
	if err != nil {
		slog.Error("failed to create offer", "remote", remoteID, "err", err)
		return
	}
	if offer == nil {
		return // responder: wait for the remote offer
	}

	m.signaler.Send(protocol.MustMessage(protocol.TypeOffer, protocol.SignalPayload{
		Target:      remoteID,
		Description: offer,
	}))
	slog.Debug("offer sent", "remote", remoteID)
}

func (m *Manager) createSession(remoteID string) (*Session, error) {
	transport, err := m.newTransport(remoteID, func(candidate json.RawMessage) {
		// Runs on the transport's gathering goroutine; only the signaler
		// is touched, never manager state.
		m.signaler.Send(protocol.MustMessage(protocol.TypeICECandidate, protocol.SignalPayload{
			Target:    remoteID,
			Candidate: candidate,
		}))
	})
	if err != nil {
		return nil, err
	}

	sess := NewSession(m.localID, remoteID, transport)
	m.sessions[remoteID] = sess
	return sess, nil
}

// handleSignal applies one relayed offer, answer or candidate.
func (m *Manager) handleSignal(sig Signal) {
	switch sig.Type {
	case protocol.TypeOffer:
		m.handleOffer(sig.From, sig.Payload.Description)
	case protocol.TypeAnswer:
		m.handleAnswer(sig.From, sig.Payload.Description)
	case protocol.TypeICECandidate:
		m.handleCandidate(sig.From, sig.Payload.Candidate)
	}
}

func (m *Manager) handleOffer(from string, description []byte) {
	sess, exists := m.sessions[from]
	if !exists {
		// First contact from an initiator we have not seen announced yet.
		var err error
		sess, err = m.createSession(from)
		if err != nil {
			slog.Error("failed to create session for offer", "remote", from, "err", err)
			return
		}
	}

	answer, err := sess.HandleOffer(description)
	if err != nil {
		if errors.Is(err, ErrUnexpectedOffer) {
			slog.Warn("conflicting offer discarded", "remote", from, "state", sess.State().String())
		} else {
			slog.Error("failed to answer offer", "remote", from, "err", err)
		}
		return
	}

	m.signaler.Send(protocol.MustMessage(protocol.TypeAnswer, protocol.SignalPayload{
		Target:      from,
		Description: answer,
	}))
	sess.AnswerDelivered()
	slog.Debug("answer sent", "remote", from)
}

func (m *Manager) handleAnswer(from string, description []byte) {
	sess, exists := m.sessions[from]
	if !exists {
		slog.Warn("answer from unknown peer discarded", "remote", from)
		return
	}
	if err := sess.HandleAnswer(description); err != nil {
		if errors.Is(err, ErrUnexpectedAnswer) {
			slog.Warn("stray answer discarded", "remote", from, "state", sess.State().String())
		} else {
			slog.Error("failed to apply answer", "remote", from, "err", err)
		}
		return
	}
	slog.Debug("connected", "remote", from)
}

func (m *Manager) handleCandidate(from string, candidate []byte) {
	sess, exists := m.sessions[from]
	if !exists {
		slog.Debug("candidate for unknown peer dropped", "remote", from)
		return
	}
	if err := sess.HandleCandidate(candidate); err != nil {
		slog.Warn("failed to add candidate", "remote", from, "err", err)
	}
}

// handlePeerLeft closes the counterpart's session unconditionally.
func (m *Manager) handlePeerLeft(peerID string) {
	if sess, exists := m.sessions[peerID]; exists {
		sess.Close()
		delete(m.sessions, peerID)
	}
	delete(m.names, peerID)
	delete(m.states, peerID)
	for i, id := range m.order {
		if id == peerID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	slog.Info("peer left", "peer", peerID)
}

// handleMuteCommand applies the owner's forced track state locally.
func (m *Manager) handleMuteCommand(cmd protocol.MuteCommandPayload) {
	m.setLocalEnabled(cmd.Kind, !cmd.Mute)
	slog.Info("track state forced by owner", "kind", cmd.Kind, "mute", cmd.Mute)
}

func (m *Manager) handleMuteUpdate(upd protocol.MuteUpdatePayload) {
	state, exists := m.states[upd.PeerID]
	if !exists {
		return
	}
	if upd.Kind == protocol.KindAudio {
		state.Audio = !upd.Mute
	} else {
		state.Video = !upd.Mute
	}
}

// setLocalEnabled flips the local flag and every session's track attribute.
func (m *Manager) setLocalEnabled(kind protocol.Kind, enabled bool) {
	if kind == protocol.KindAudio {
		m.audioEnabled = enabled
	} else {
		m.videoEnabled = enabled
	}
	for _, sess := range m.sessions {
		sess.SetEnabled(kind, enabled)
	}
}

// Toggle flips the local track of one kind and reports the new state to
// the room. Must run via Do.
func (m *Manager) Toggle(kind protocol.Kind) bool {
	var enabled bool
	if kind == protocol.KindAudio {
		enabled = !m.audioEnabled
	} else {
		enabled = !m.videoEnabled
	}
	m.setLocalEnabled(kind, enabled)

	m.signaler.Send(protocol.MustMessage(protocol.TypeMuteUpdate, protocol.MuteUpdatePayload{
		PeerID: m.localID,
		Kind:   kind,
		Mute:   !enabled,
	}))
	return enabled
}

// MutePeer asks the server to toggle a member's track. Only honored by the
// server when the local participant owns the room; the guard here just
// saves a pointless round trip. Must run via Do.
func (m *Manager) MutePeer(targetPeerID string, kind protocol.Kind) error {
	if !m.isOwner() {
		return errors.New("only the room owner can mute peers")
	}
	return m.signaler.Send(protocol.MustMessage(protocol.TypeMutePeer, protocol.MutePeerPayload{
		TargetPeerID: targetPeerID,
		Kind:         kind,
	}))
}

// KickPeer asks the server to remove a member. Must run via Do.
func (m *Manager) KickPeer(targetPeerID string) error {
	if !m.isOwner() {
		return errors.New("only the room owner can kick peers")
	}
	return m.signaler.Send(protocol.MustMessage(protocol.TypeKickPeer, protocol.KickPeerPayload{
		TargetPeerID: targetPeerID,
	}))
}

func (m *Manager) isOwner() bool {
	return m.owner == m.localID
}

// Roster lists the room as currently known, local participant first, then
// counterparts in announcement order. Must run via Do.
func (m *Manager) Roster() []RosterEntry {
	entries := []RosterEntry{{
		PeerID:   m.localID,
		UserName: m.userName,
		Audio:    m.audioEnabled,
		Video:    m.videoEnabled,
		IsOwner:  m.isOwner(),
		IsSelf:   true,
	}}
	for _, id := range m.order {
		state := m.states[id]
		if state == nil {
			continue
		}
		entries = append(entries, RosterEntry{
			PeerID:   id,
			UserName: m.names[id],
			Audio:    state.Audio,
			Video:    state.Video,
			IsOwner:  m.owner == id,
		})
	}
	return entries
}

// SessionState reports the negotiation phase for one counterpart.
func (m *Manager) SessionState(remoteID string) (State, bool) {
	sess, exists := m.sessions[remoteID]
	if !exists {
		return StateIdle, false
	}
	return sess.State(), true
}

// leave announces the departure and releases everything. Runs on the
// dispatch goroutine.
func (m *Manager) leave() {
	m.signaler.Send(protocol.MustMessage(protocol.TypeLeaveRoom, protocol.LeaveRoomPayload{
		RoomID: m.roomID,
		PeerID: m.localID,
	}))
	m.closeAll()
}

func (m *Manager) closeAll() {
	for id, sess := range m.sessions {
		sess.Close()
		delete(m.sessions, id)
	}
}
