package signaling

// Directory maps peer identifiers to their live connections. Like the room
// table it is owned by the hub's event loop and needs no lock.
type Directory struct {
	peers map[string]*Client
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{peers: make(map[string]*Client)}
}

// Register binds peerID to a connection. Registering an identifier that
// already maps to a live connection fails; callers must reject the join
// rather than overwrite.
func (d *Directory) Register(peerID string, c *Client) error {
	if _, exists := d.peers[peerID]; exists {
		return ErrDuplicateIdentifier
	}
	d.peers[peerID] = c
	return nil
}

// Resolve looks up the connection for peerID.
func (d *Directory) Resolve(peerID string) (*Client, bool) {
	c, ok := d.peers[peerID]
	return c, ok
}

// Remove unbinds peerID. Removing an absent identifier is a no-op.
func (d *Directory) Remove(peerID string) {
	delete(d.peers, peerID)
}
