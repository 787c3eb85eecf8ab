package signaling

import (
	"encoding/json"
	"testing"

	"github.com/Frogwarg/video-chat/internal/protocol"
)

// Hub handlers run synchronously in these tests, the same way Run's event
// loop invokes them: one event to completion at a time. Clients carry no
// websocket; their Send channels capture everything the hub emits.

func newTestClient(h *Hub) *Client {
	return &Client{Hub: h, Send: make(chan *protocol.Message, 64)}
}

func joinRoom(t *testing.T, h *Hub, c *Client, roomID, peerID, userName string) {
	t.Helper()
	h.dispatch(c, protocol.MustMessage(protocol.TypeJoinRoom, protocol.JoinRoomPayload{
		RoomID:   roomID,
		PeerID:   peerID,
		UserName: userName,
	}))
}

func leaveRoom(h *Hub, c *Client, roomID, peerID string) {
	h.dispatch(c, protocol.MustMessage(protocol.TypeLeaveRoom, protocol.LeaveRoomPayload{
		RoomID: roomID,
		PeerID: peerID,
	}))
}

// nextMessage pops one queued message, failing the test if none is there.
func nextMessage(t *testing.T, c *Client) *protocol.Message {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	default:
		t.Fatal("expected a queued message")
		return nil
	}
}

func expectType(t *testing.T, c *Client, msgType string) *protocol.Message {
	t.Helper()
	msg := nextMessage(t, c)
	if msg.Type != msgType {
		t.Fatalf("expected %s, got %s", msgType, msg.Type)
	}
	return msg
}

func expectSilence(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("expected no message, got %s", msg.Type)
	default:
	}
}

func drain(c *Client) {
	for {
		select {
		case <-c.Send:
		default:
			return
		}
	}
}

func TestJoinCreatesRoomWithJoinerAsOwner(t *testing.T) {
	h := NewHub()
	c := newTestClient(h)

	joinRoom(t, h, c, "room-1", "p1", "Alice")

	var info protocol.RoomInfoPayload
	if err := expectType(t, c, protocol.TypeRoomInfo).Decode(&info); err != nil {
		t.Fatalf("decode room-info: %v", err)
	}
	if info.Owner != "p1" {
		t.Errorf("expected owner p1, got %q", info.Owner)
	}
	if len(info.ExistingPeers) != 0 {
		t.Errorf("first joiner must see an empty existing-peer list, got %v", info.ExistingPeers)
	}
}

func TestJoinNotifiesExistingMembers(t *testing.T) {
	h := NewHub()
	c1 := newTestClient(h)
	c2 := newTestClient(h)
	joinRoom(t, h, c1, "room-1", "p1", "Alice")
	drain(c1)

	joinRoom(t, h, c2, "room-1", "p2", "Bob")

	var info protocol.RoomInfoPayload
	expectType(t, c2, protocol.TypeRoomInfo).Decode(&info)
	if info.Owner != "p1" {
		t.Errorf("expected owner p1, got %q", info.Owner)
	}
	if len(info.ExistingPeers) != 1 || info.ExistingPeers[0].PeerID != "p1" {
		t.Fatalf("expected existing peers [p1], got %v", info.ExistingPeers)
	}

	var joined protocol.PeerInfo
	expectType(t, c1, protocol.TypePeerJoined).Decode(&joined)
	if joined.PeerID != "p2" || joined.UserName != "Bob" {
		t.Errorf("unexpected peer-joined payload: %+v", joined)
	}
}

func TestJoinRejectsMissingIdentifiers(t *testing.T) {
	h := NewHub()
	c := newTestClient(h)

	joinRoom(t, h, c, "", "p1", "")

	expectType(t, c, protocol.TypeError)
	if len(h.rooms) != 0 {
		t.Fatal("a rejected join must not create a room")
	}
	if len(h.sessions) != 0 {
		t.Fatal("a rejected join must not create a session record")
	}
}

func TestDuplicateIdentifierRejectedWithoutStateChange(t *testing.T) {
	h := NewHub()
	c1 := newTestClient(h)
	c2 := newTestClient(h)
	joinRoom(t, h, c1, "room-1", "p1", "")
	drain(c1)

	joinRoom(t, h, c2, "room-1", "p1", "")

	expectType(t, c2, protocol.TypeError)
	expectSilence(t, c1)

	room := h.rooms["room-1"]
	if got := len(room.Members()); got != 1 {
		t.Fatalf("membership must be unchanged, got %d members", got)
	}
	if resolved, _ := h.directory.Resolve("p1"); resolved != c1 {
		t.Fatal("directory must still map p1 to the first connection")
	}
}

func TestRelayDeliversOnlyToTarget(t *testing.T) {
	h := NewHub()
	c1, c2, c3 := newTestClient(h), newTestClient(h), newTestClient(h)
	joinRoom(t, h, c1, "room-1", "p1", "")
	joinRoom(t, h, c2, "room-1", "p2", "")
	joinRoom(t, h, c3, "room-1", "p3", "")
	drain(c1)
	drain(c2)
	drain(c3)

	desc := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	h.dispatch(c1, protocol.MustMessage(protocol.TypeOffer, protocol.SignalPayload{
		Target:      "p2",
		Description: desc,
	}))

	var sig protocol.SignalPayload
	expectType(t, c2, protocol.TypeOffer).Decode(&sig)
	if sig.FromPeerID != "p1" {
		t.Errorf("expected fromPeerId p1, got %q", sig.FromPeerID)
	}
	if string(sig.Description) != string(desc) {
		t.Errorf("description must pass through unchanged, got %s", sig.Description)
	}
	if sig.Target != "" {
		t.Errorf("target must not leak to the recipient, got %q", sig.Target)
	}

	expectSilence(t, c1)
	expectSilence(t, c3)
}

func TestRelayMissingTargetDroppedSilently(t *testing.T) {
	h := NewHub()
	c1 := newTestClient(h)
	joinRoom(t, h, c1, "room-1", "p1", "")
	drain(c1)

	h.dispatch(c1, protocol.MustMessage(protocol.TypeICECandidate, protocol.SignalPayload{
		Target:    "nobody",
		Candidate: json.RawMessage(`{"candidate":"foo"}`),
	}))

	// Best effort: the sender gets no feedback at all.
	expectSilence(t, c1)
}

func TestOwnerSuccessionOnLeaveIsFIFO(t *testing.T) {
	h := NewHub()
	c1, c2, c3 := newTestClient(h), newTestClient(h), newTestClient(h)
	joinRoom(t, h, c1, "room-1", "p1", "")
	joinRoom(t, h, c2, "room-1", "p2", "")
	joinRoom(t, h, c3, "room-1", "p3", "")
	drain(c1)
	drain(c2)
	drain(c3)

	leaveRoom(h, c1, "room-1", "p1")

	var owner protocol.PeerRefPayload
	expectType(t, c2, protocol.TypeNewOwner).Decode(&owner)
	if owner.PeerID != "p2" {
		t.Fatalf("expected new owner p2, got %q", owner.PeerID)
	}
	var left protocol.PeerRefPayload
	expectType(t, c2, protocol.TypePeerLeft).Decode(&left)
	if left.PeerID != "p1" {
		t.Fatalf("expected peer-left p1, got %q", left.PeerID)
	}
	expectType(t, c3, protocol.TypeNewOwner)
	expectType(t, c3, protocol.TypePeerLeft)

	leaveRoom(h, c2, "room-1", "p2")

	expectType(t, c3, protocol.TypeNewOwner).Decode(&owner)
	if owner.PeerID != "p3" {
		t.Fatalf("expected new owner p3, got %q", owner.PeerID)
	}
}

func TestRoomTeardownForgetsHistory(t *testing.T) {
	h := NewHub()
	c1 := newTestClient(h)
	joinRoom(t, h, c1, "room-1", "p1", "")
	drain(c1)
	leaveRoom(h, c1, "room-1", "p1")

	if _, exists := h.rooms["room-1"]; exists {
		t.Fatal("empty room must be destroyed")
	}

	c2 := newTestClient(h)
	joinRoom(t, h, c2, "room-1", "p2", "")

	var info protocol.RoomInfoPayload
	expectType(t, c2, protocol.TypeRoomInfo).Decode(&info)
	if info.Owner != "p2" {
		t.Errorf("fresh room must elect the new joiner as owner, got %q", info.Owner)
	}
	if len(info.ExistingPeers) != 0 {
		t.Errorf("fresh room must not recall prior membership, got %v", info.ExistingPeers)
	}
}

func TestDisconnectCleansUpLikeLeave(t *testing.T) {
	h := NewHub()
	c1 := newTestClient(h)
	c2 := newTestClient(h)
	joinRoom(t, h, c1, "room-1", "p1", "")
	joinRoom(t, h, c2, "room-1", "p2", "")
	drain(c1)
	drain(c2)

	h.handleDisconnect(c1)

	var owner protocol.PeerRefPayload
	expectType(t, c2, protocol.TypeNewOwner).Decode(&owner)
	if owner.PeerID != "p2" {
		t.Errorf("expected ownership to pass to p2, got %q", owner.PeerID)
	}
	expectType(t, c2, protocol.TypePeerLeft)

	if _, ok := h.directory.Resolve("p1"); ok {
		t.Error("disconnect must unregister the peer")
	}
	if _, open := <-c1.Send; open {
		t.Error("disconnect must close the send channel")
	}
}

func TestMuteToggleFlipsAndRestores(t *testing.T) {
	h := NewHub()
	c1 := newTestClient(h)
	c2 := newTestClient(h)
	joinRoom(t, h, c1, "room-1", "p1", "")
	joinRoom(t, h, c2, "room-1", "p2", "")
	drain(c1)
	drain(c2)
	room := h.rooms["room-1"]

	mute := protocol.MustMessage(protocol.TypeMutePeer, protocol.MutePeerPayload{
		TargetPeerID: "p2",
		Kind:         protocol.KindAudio,
	})

	h.dispatch(c1, mute)

	var cmd protocol.MuteCommandPayload
	expectType(t, c2, protocol.TypeMuteCommand).Decode(&cmd)
	if cmd.Kind != protocol.KindAudio || !cmd.Mute {
		t.Fatalf("first toggle must mute, got %+v", cmd)
	}
	var upd protocol.MuteUpdatePayload
	expectType(t, c1, protocol.TypeMuteUpdate).Decode(&upd)
	if upd.PeerID != "p2" || !upd.Mute {
		t.Fatalf("unexpected mute-update to owner: %+v", upd)
	}
	// The target sees the room-wide update too.
	expectType(t, c2, protocol.TypeMuteUpdate)
	if room.Enabled("p2", protocol.KindAudio) {
		t.Fatal("authoritative flag must record the mute")
	}

	h.dispatch(c1, mute)

	expectType(t, c2, protocol.TypeMuteCommand).Decode(&cmd)
	if cmd.Mute {
		t.Fatal("second toggle must unmute")
	}
	if !room.Enabled("p2", protocol.KindAudio) {
		t.Fatal("double toggle must restore the original flag")
	}
}

func TestMuteFromNonOwnerIgnored(t *testing.T) {
	h := NewHub()
	c1 := newTestClient(h)
	c2 := newTestClient(h)
	joinRoom(t, h, c1, "room-1", "p1", "")
	joinRoom(t, h, c2, "room-1", "p2", "")
	drain(c1)
	drain(c2)

	h.dispatch(c2, protocol.MustMessage(protocol.TypeMutePeer, protocol.MutePeerPayload{
		TargetPeerID: "p1",
		Kind:         protocol.KindVideo,
	}))

	// Ignored without any feedback: no command, no update, no error.
	expectSilence(t, c1)
	expectSilence(t, c2)
	if !h.rooms["room-1"].Enabled("p1", protocol.KindVideo) {
		t.Fatal("state must be untouched")
	}
}

func TestSelfMuteUpdateRecordedAndRebroadcast(t *testing.T) {
	h := NewHub()
	c1 := newTestClient(h)
	c2 := newTestClient(h)
	joinRoom(t, h, c1, "room-1", "p1", "")
	joinRoom(t, h, c2, "room-1", "p2", "")
	drain(c1)
	drain(c2)

	h.dispatch(c2, protocol.MustMessage(protocol.TypeMuteUpdate, protocol.MuteUpdatePayload{
		Kind: protocol.KindVideo,
		Mute: true,
	}))

	var upd protocol.MuteUpdatePayload
	expectType(t, c1, protocol.TypeMuteUpdate).Decode(&upd)
	if upd.PeerID != "p2" || upd.Kind != protocol.KindVideo || !upd.Mute {
		t.Fatalf("unexpected rebroadcast: %+v", upd)
	}
	expectSilence(t, c2)

	if h.rooms["room-1"].Enabled("p2", protocol.KindVideo) {
		t.Fatal("self toggle must update the authoritative flag")
	}
}

func TestKickRemovesTargetAndBroadcasts(t *testing.T) {
	h := NewHub()
	c1 := newTestClient(h)
	c2 := newTestClient(h)
	c3 := newTestClient(h)
	joinRoom(t, h, c1, "room-1", "p1", "")
	joinRoom(t, h, c2, "room-1", "p2", "")
	joinRoom(t, h, c3, "room-1", "p3", "")
	drain(c1)
	drain(c2)
	drain(c3)

	h.dispatch(c1, protocol.MustMessage(protocol.TypeKickPeer, protocol.KickPeerPayload{
		TargetPeerID: "p2",
	}))

	expectType(t, c2, protocol.TypeKicked)

	var left protocol.PeerRefPayload
	expectType(t, c1, protocol.TypePeerLeft).Decode(&left)
	if left.PeerID != "p2" {
		t.Fatalf("expected peer-left p2, got %q", left.PeerID)
	}
	expectType(t, c3, protocol.TypePeerLeft)

	if h.rooms["room-1"].HasMember("p2") {
		t.Fatal("kicked peer must be removed from the room")
	}
	if _, ok := h.directory.Resolve("p2"); ok {
		t.Fatal("kicked peer must be removed from the directory")
	}
	if h.sessions[c2] != nil {
		t.Fatal("kicked peer's session record must be cleared")
	}
}

func TestKickFromNonOwnerIgnored(t *testing.T) {
	h := NewHub()
	c1 := newTestClient(h)
	c2 := newTestClient(h)
	joinRoom(t, h, c1, "room-1", "p1", "")
	joinRoom(t, h, c2, "room-1", "p2", "")
	drain(c1)
	drain(c2)

	h.dispatch(c2, protocol.MustMessage(protocol.TypeKickPeer, protocol.KickPeerPayload{
		TargetPeerID: "p1",
	}))

	expectSilence(t, c1)
	expectSilence(t, c2)
	if !h.rooms["room-1"].HasMember("p1") {
		t.Fatal("membership must be untouched")
	}
}

// TestCallScenario walks the full lifecycle: join, signal exchange, owner
// mute, disconnect with succession.
func TestCallScenario(t *testing.T) {
	h := NewHub()
	c1 := newTestClient(h)
	c2 := newTestClient(h)

	joinRoom(t, h, c1, "room-42", "p1", "Alice")
	var info protocol.RoomInfoPayload
	expectType(t, c1, protocol.TypeRoomInfo).Decode(&info)
	if info.Owner != "p1" || len(info.ExistingPeers) != 0 {
		t.Fatalf("unexpected first room-info: %+v", info)
	}

	joinRoom(t, h, c2, "room-42", "p2", "Bob")
	expectType(t, c2, protocol.TypeRoomInfo).Decode(&info)
	if info.Owner != "p1" || len(info.ExistingPeers) != 1 {
		t.Fatalf("unexpected second room-info: %+v", info)
	}
	expectType(t, c1, protocol.TypePeerJoined)

	// p1 < p2: p1 offers, p2 answers.
	h.dispatch(c1, protocol.MustMessage(protocol.TypeOffer, protocol.SignalPayload{
		Target:      "p2",
		Description: json.RawMessage(`{"type":"offer","sdp":"v=0"}`),
	}))
	var sig protocol.SignalPayload
	expectType(t, c2, protocol.TypeOffer).Decode(&sig)
	if sig.FromPeerID != "p1" {
		t.Fatalf("offer must carry fromPeerId p1, got %q", sig.FromPeerID)
	}

	h.dispatch(c2, protocol.MustMessage(protocol.TypeAnswer, protocol.SignalPayload{
		Target:      "p1",
		Description: json.RawMessage(`{"type":"answer","sdp":"v=0"}`),
	}))
	expectType(t, c1, protocol.TypeAnswer).Decode(&sig)
	if sig.FromPeerID != "p2" {
		t.Fatalf("answer must carry fromPeerId p2, got %q", sig.FromPeerID)
	}

	h.dispatch(c1, protocol.MustMessage(protocol.TypeMutePeer, protocol.MutePeerPayload{
		TargetPeerID: "p2",
		Kind:         protocol.KindVideo,
	}))
	var cmd protocol.MuteCommandPayload
	expectType(t, c2, protocol.TypeMuteCommand).Decode(&cmd)
	if cmd.Kind != protocol.KindVideo || !cmd.Mute {
		t.Fatalf("expected video mute command, got %+v", cmd)
	}
	expectType(t, c1, protocol.TypeMuteUpdate)
	expectType(t, c2, protocol.TypeMuteUpdate)

	h.handleDisconnect(c1)
	var owner protocol.PeerRefPayload
	expectType(t, c2, protocol.TypeNewOwner).Decode(&owner)
	if owner.PeerID != "p2" {
		t.Fatalf("expected new owner p2, got %q", owner.PeerID)
	}
	var left protocol.PeerRefPayload
	expectType(t, c2, protocol.TypePeerLeft).Decode(&left)
	if left.PeerID != "p1" {
		t.Fatalf("expected peer-left p1, got %q", left.PeerID)
	}

	room := h.rooms["room-42"]
	if members := room.Members(); len(members) != 1 || members[0] != "p2" {
		t.Fatalf("expected room to hold only p2, got %v", members)
	}
}
