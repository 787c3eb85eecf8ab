package signaling

import (
	"log/slog"

	"github.com/Frogwarg/video-chat/internal/protocol"
)

// session records which peer and room a connection currently carries. The
// hub owns these records and looks them up by connection on disconnect,
// rather than stashing the association on the connection itself.
type session struct {
	peerID string
	roomID string
}

// Hub is the central coordinator of the signaling server. It owns the room
// table, the peer directory and the connection sessions, and mutates them
// only from Run's event loop: each inbound event is processed to completion
// before the next one begins, so none of the maps need locks.
type Hub struct {
	rooms     map[string]*Room
	directory *Directory
	sessions  map[*Client]*session

	// Register is the channel for newly upgraded connections.
	Register chan *Client

	// Unregister is the channel for connections whose read pump ended.
	Unregister chan *Client

	// inbound carries decoded client messages into the event loop.
	inbound chan *inbound
}

// NewHub creates a hub with empty registries.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		directory:  NewDirectory(),
		sessions:   make(map[*Client]*session),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		inbound:    make(chan *inbound),
	}
}

// Run starts the hub's event loop. It is the single goroutine that touches
// the hub's state.
func (h *Hub) Run() {
	for {
		select {
		case <-h.Register:
			// Nothing to track yet; the connection has no peer identity
			// until its join-room arrives.
			slog.Debug("client connected")

		case client := <-h.Unregister:
			h.handleDisconnect(client)

		case in := <-h.inbound:
			h.dispatch(in.client, in.msg)
		}
	}
}

// dispatch routes one client message to its handler.
func (h *Hub) dispatch(c *Client, msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeJoinRoom:
		h.handleJoin(c, msg)
	case protocol.TypeOffer, protocol.TypeAnswer, protocol.TypeICECandidate:
		h.handleRelay(c, msg)
	case protocol.TypeLeaveRoom:
		h.handleLeave(c, msg)
	case protocol.TypeMutePeer:
		h.handleMutePeer(c, msg)
	case protocol.TypeKickPeer:
		h.handleKickPeer(c, msg)
	case protocol.TypeMuteUpdate:
		h.handleMuteUpdate(c, msg)
	default:
		slog.Warn("unknown message type", "type", msg.Type)
	}
}

// handleJoin admits a peer into a room, creating the room on first join.
// Validation failures are reported back as an error event and leave no
// state behind.
func (h *Hub) handleJoin(c *Client, msg *protocol.Message) {
	var req protocol.JoinRoomPayload
	if err := msg.Decode(&req); err != nil {
		h.sendError(c, newRequestError("join-room", ErrInvalidRequest))
		return
	}

	room, err := h.admitPeer(c, req)
	if err != nil {
		h.sendError(c, err)
		return
	}

	// Snapshot for the joiner: current owner plus everyone already present.
	h.send(c, protocol.MustMessage(protocol.TypeRoomInfo, protocol.RoomInfoPayload{
		Owner:         room.Owner(),
		ExistingPeers: room.MemberInfos(req.PeerID),
	}))

	h.broadcast(room, protocol.MustMessage(protocol.TypePeerJoined, protocol.PeerInfo{
		PeerID:   req.PeerID,
		UserName: room.Name(req.PeerID),
	}), req.PeerID)

	slog.Info("peer joined", "peer", req.PeerID, "room", req.RoomID, "owner", room.Owner())
}

// admitPeer validates a join request and, if it passes, registers the peer
// in the directory, the room and the session table.
func (h *Hub) admitPeer(c *Client, req protocol.JoinRoomPayload) (*Room, error) {
	if req.RoomID == "" || req.PeerID == "" {
		return nil, newRequestError("join-room", ErrInvalidRequest)
	}
	if h.sessions[c] != nil {
		return nil, newRequestError("join-room", ErrDuplicateIdentifier)
	}

	room, exists := h.rooms[req.RoomID]
	if exists && room.HasMember(req.PeerID) {
		return nil, newRequestError("join-room", ErrIdentifierInUse)
	}

	if err := h.directory.Register(req.PeerID, c); err != nil {
		return nil, newRequestError("join-room", err)
	}

	if !exists {
		room = NewRoom(req.RoomID)
		h.rooms[req.RoomID] = room
		slog.Info("room created", "room", req.RoomID)
	}
	room.AddMember(req.PeerID, req.UserName)
	h.sessions[c] = &session{peerID: req.PeerID, roomID: req.RoomID}
	return room, nil
}

// handleRelay forwards a directed offer, answer or ice-candidate to its
// target, stamping the sender's peer id. The payload itself is never
// inspected. A missing target drops the message silently; the sender gets
// no feedback.
func (h *Hub) handleRelay(c *Client, msg *protocol.Message) {
	sess := h.sessions[c]
	if sess == nil {
		slog.Warn("signal from connection with no room", "type", msg.Type)
		return
	}

	var sig protocol.SignalPayload
	if err := msg.Decode(&sig); err != nil || sig.Target == "" {
		slog.Warn("malformed signal payload", "type", msg.Type, "from", sess.peerID)
		return
	}

	target, ok := h.directory.Resolve(sig.Target)
	if !ok {
		slog.Warn("relay target not registered", "type", msg.Type, "target", sig.Target, "from", sess.peerID)
		return
	}

	h.send(target, protocol.MustMessage(msg.Type, protocol.SignalPayload{
		Description: sig.Description,
		Candidate:   sig.Candidate,
		FromPeerID:  sess.peerID,
	}))
	slog.Debug("signal relayed", "type", msg.Type, "from", sess.peerID, "to", sig.Target)
}

// handleLeave processes a voluntary leave-room.
func (h *Hub) handleLeave(c *Client, msg *protocol.Message) {
	sess := h.sessions[c]
	if sess == nil {
		return
	}

	var req protocol.LeaveRoomPayload
	if err := msg.Decode(&req); err != nil {
		return
	}
	if req.RoomID != sess.roomID || req.PeerID != sess.peerID {
		slog.Warn("leave-room identifiers do not match session", "peer", sess.peerID, "room", sess.roomID)
		return
	}

	delete(h.sessions, c)
	h.removePeer(sess.roomID, sess.peerID)
	slog.Info("peer left", "peer", sess.peerID, "room", sess.roomID)
}

// handleDisconnect treats an abrupt disconnect exactly like a graceful
// leave; the hub cannot tell the two apart.
func (h *Hub) handleDisconnect(c *Client) {
	if sess := h.sessions[c]; sess != nil {
		delete(h.sessions, c)
		h.removePeer(sess.roomID, sess.peerID)
		slog.Info("peer disconnected", "peer", sess.peerID, "room", sess.roomID)
	}
	close(c.Send)
}

// handleMutePeer toggles a member's track on the owner's behalf. Requests
// from non-owners or against non-members are ignored without feedback.
func (h *Hub) handleMutePeer(c *Client, msg *protocol.Message) {
	sess := h.sessions[c]
	if sess == nil {
		return
	}

	var req protocol.MutePeerPayload
	if err := msg.Decode(&req); err != nil || !req.Kind.Valid() {
		return
	}

	room := h.rooms[sess.roomID]
	if room == nil || room.Owner() != sess.peerID || !room.HasMember(req.TargetPeerID) {
		slog.Debug("mute-peer ignored", "from", sess.peerID, "target", req.TargetPeerID)
		return
	}

	// Toggle: muting is requested exactly when the track is enabled now.
	mute := room.Enabled(req.TargetPeerID, req.Kind)
	room.SetEnabled(req.TargetPeerID, req.Kind, !mute)

	if target, ok := h.directory.Resolve(req.TargetPeerID); ok {
		h.send(target, protocol.MustMessage(protocol.TypeMuteCommand, protocol.MuteCommandPayload{
			Kind: req.Kind,
			Mute: mute,
		}))
	}

	h.broadcast(room, protocol.MustMessage(protocol.TypeMuteUpdate, protocol.MuteUpdatePayload{
		PeerID: req.TargetPeerID,
		Kind:   req.Kind,
		Mute:   mute,
	}))
	slog.Info("peer muted by owner", "room", sess.roomID, "target", req.TargetPeerID, "kind", req.Kind, "mute", mute)
}

// handleMuteUpdate records a member's own track toggle and echoes it to the
// rest of the room so every participant sees consistent state.
func (h *Hub) handleMuteUpdate(c *Client, msg *protocol.Message) {
	sess := h.sessions[c]
	if sess == nil {
		return
	}

	var req protocol.MuteUpdatePayload
	if err := msg.Decode(&req); err != nil || !req.Kind.Valid() {
		return
	}

	room := h.rooms[sess.roomID]
	if room == nil {
		return
	}

	room.SetEnabled(sess.peerID, req.Kind, !req.Mute)
	h.broadcast(room, protocol.MustMessage(protocol.TypeMuteUpdate, protocol.MuteUpdatePayload{
		PeerID: sess.peerID,
		Kind:   req.Kind,
		Mute:   req.Mute,
	}), sess.peerID)
}

// handleKickPeer removes a member on the owner's behalf. The target is told
// it was kicked, then removed exactly as a leave would remove it.
func (h *Hub) handleKickPeer(c *Client, msg *protocol.Message) {
	sess := h.sessions[c]
	if sess == nil {
		return
	}

	var req protocol.KickPeerPayload
	if err := msg.Decode(&req); err != nil {
		return
	}

	room := h.rooms[sess.roomID]
	if room == nil || room.Owner() != sess.peerID || !room.HasMember(req.TargetPeerID) {
		slog.Debug("kick-peer ignored", "from", sess.peerID, "target", req.TargetPeerID)
		return
	}

	if target, ok := h.directory.Resolve(req.TargetPeerID); ok {
		h.send(target, protocol.MustMessage(protocol.TypeKicked, nil))
		delete(h.sessions, target)
	}
	h.removePeer(sess.roomID, req.TargetPeerID)
	slog.Info("peer kicked", "room", sess.roomID, "target", req.TargetPeerID, "by", sess.peerID)
}

// removePeer takes a peer out of its room and the directory, reassigns
// ownership by join order when needed, and tears the room down when it
// empties. Shared by leave, disconnect and kick.
func (h *Hub) removePeer(roomID, peerID string) {
	h.directory.Remove(peerID)

	room := h.rooms[roomID]
	if room == nil {
		return
	}

	newOwner, ownerChanged := room.RemoveMember(peerID)

	if room.Empty() {
		delete(h.rooms, roomID)
		slog.Info("room deleted", "room", roomID)
		return
	}

	if ownerChanged {
		h.broadcast(room, protocol.MustMessage(protocol.TypeNewOwner, protocol.PeerRefPayload{PeerID: newOwner}))
		slog.Info("new owner", "room", roomID, "owner", newOwner)
	}
	h.broadcast(room, protocol.MustMessage(protocol.TypePeerLeft, protocol.PeerRefPayload{PeerID: peerID}))
}

// broadcast sends msg to every room member except those in exclude.
func (h *Hub) broadcast(room *Room, msg *protocol.Message, exclude ...string) {
	for _, id := range room.Members() {
		skip := false
		for _, ex := range exclude {
			if id == ex {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		if target, ok := h.directory.Resolve(id); ok {
			h.send(target, msg)
		}
	}
}

// send queues msg for delivery on the client's write pump.
func (h *Hub) send(c *Client, msg *protocol.Message) {
	c.Send <- msg
}

// sendError reports a request validation failure to the requesting client.
func (h *Hub) sendError(c *Client, err error) {
	slog.Warn("request rejected", "err", err)
	h.send(c, protocol.MustMessage(protocol.TypeError, protocol.ErrorPayload{Message: err.Error()}))
}
