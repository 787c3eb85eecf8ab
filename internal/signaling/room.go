package signaling

import (
	"strings"

	"github.com/Frogwarg/video-chat/internal/protocol"
)

// trackState holds the authoritative enabled flags for one member's tracks.
// New members start with both kinds enabled.
type trackState struct {
	audioEnabled bool
	videoEnabled bool
}

// Room is a single named room. Member order is join order and drives owner
// succession. A Room is only ever mutated from inside the hub's event loop,
// so it carries no lock.
type Room struct {
	// ID is the caller-supplied room identifier.
	ID string

	members []string
	owner   string
	names   map[string]string
	tracks  map[string]*trackState
}

// NewRoom creates an empty room.
func NewRoom(id string) *Room {
	return &Room{
		ID:     id,
		names:  make(map[string]string),
		tracks: make(map[string]*trackState),
	}
}

// AddMember appends a peer to the member sequence. The first member becomes
// owner. A blank display name falls back to a generated one.
func (r *Room) AddMember(peerID, userName string) {
	if len(r.members) == 0 {
		r.owner = peerID
	}
	r.members = append(r.members, peerID)

	name := strings.TrimSpace(userName)
	if name == "" {
		name = "User " + shortID(peerID)
	}
	r.names[peerID] = name
	r.tracks[peerID] = &trackState{audioEnabled: true, videoEnabled: true}
}

// RemoveMember removes a peer from the member sequence. If the removed peer
// was owner and members remain, ownership passes to the oldest remaining
// member by join order; the new owner and true are returned.
func (r *Room) RemoveMember(peerID string) (newOwner string, ownerChanged bool) {
	idx := -1
	for i, id := range r.members {
		if id == peerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", false
	}

	r.members = append(r.members[:idx], r.members[idx+1:]...)
	delete(r.names, peerID)
	delete(r.tracks, peerID)

	if r.owner == peerID {
		if len(r.members) > 0 {
			r.owner = r.members[0]
			return r.owner, true
		}
		r.owner = ""
	}
	return "", false
}

// HasMember reports whether peerID is currently a member.
func (r *Room) HasMember(peerID string) bool {
	for _, id := range r.members {
		if id == peerID {
			return true
		}
	}
	return false
}

// Members returns the member sequence in join order.
func (r *Room) Members() []string {
	out := make([]string, len(r.members))
	copy(out, r.members)
	return out
}

// Owner returns the current owner, or "" for an empty room.
func (r *Room) Owner() string {
	return r.owner
}

// Empty reports whether the member sequence is empty.
func (r *Room) Empty() bool {
	return len(r.members) == 0
}

// Name returns the display name registered for peerID.
func (r *Room) Name(peerID string) string {
	return r.names[peerID]
}

// MemberInfos lists members with their display names, excluding excludeID.
func (r *Room) MemberInfos(excludeID string) []protocol.PeerInfo {
	infos := make([]protocol.PeerInfo, 0, len(r.members))
	for _, id := range r.members {
		if id == excludeID {
			continue
		}
		infos = append(infos, protocol.PeerInfo{PeerID: id, UserName: r.names[id]})
	}
	return infos
}

// Enabled returns the authoritative enabled flag for one member's track kind.
// Unknown members report false.
func (r *Room) Enabled(peerID string, kind protocol.Kind) bool {
	ts, ok := r.tracks[peerID]
	if !ok {
		return false
	}
	if kind == protocol.KindAudio {
		return ts.audioEnabled
	}
	return ts.videoEnabled
}

// SetEnabled records the enabled flag for one member's track kind.
func (r *Room) SetEnabled(peerID string, kind protocol.Kind, enabled bool) {
	ts, ok := r.tracks[peerID]
	if !ok {
		return
	}
	if kind == protocol.KindAudio {
		ts.audioEnabled = enabled
	} else {
		ts.videoEnabled = enabled
	}
}

// shortID derives the short form of a peer identifier used in generated
// display names.
func shortID(peerID string) string {
	s := strings.TrimPrefix(peerID, "peer-")
	if len(s) > 6 {
		s = s[:6]
	}
	return s
}
