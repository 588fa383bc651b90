package room

import (
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/antoniostano/roundtable/internal/protocol"
)

var ErrDuplicateSynthetic = errors.New("room already has a synthetic participant")

// LeaveHook is invoked after a connection has been removed from its room.
// The reply pipeline uses it to release an abandoned reply queue when the
// synthetic participant departs.
type LeaveHook func(roomID, connID string, role Role)

// Registry is the authoritative in-process mapping of room membership.
// Rooms are ephemeral: a room exists exactly as long as it has members.
// When the service runs as multiple instances this registry must be
// backed by a shared store; within one instance it is the single owner
// of all connection state.
type Registry struct {
	mu        sync.RWMutex
	conns     map[string]*Conn
	rooms     map[string]map[string]*Conn
	synthetic map[string]string

	leaveHook LeaveHook
}

func NewRegistry() *Registry {
	return &Registry{
		conns:     make(map[string]*Conn),
		rooms:     make(map[string]map[string]*Conn),
		synthetic: make(map[string]string),
	}
}

// SetLeaveHook installs the post-leave callback. Must be called during
// wiring, before the first connection joins.
func (r *Registry) SetLeaveHook(hook LeaveHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveHook = hook
}

// Join registers a connection in a room. Re-joining with the same id is
// a no-op. A human join notifies every other member with peer-joined;
// a synthetic join is silent (the synthetic participant is not a
// negotiation peer). A second synthetic join to an occupied room is
// rejected with ErrDuplicateSynthetic.
func (r *Registry) Join(conn *Conn, roomID string, role Role) error {
	r.mu.Lock()
	if _, ok := r.conns[conn.ID]; ok {
		r.mu.Unlock()
		return nil
	}
	if role == RoleSynthetic {
		if _, ok := r.synthetic[roomID]; ok {
			r.mu.Unlock()
			return ErrDuplicateSynthetic
		}
		r.synthetic[roomID] = conn.ID
	}

	conn.RoomID = roomID
	conn.Role = role
	r.conns[conn.ID] = conn
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]*Conn)
		r.rooms[roomID] = members
	}

	var peers []*Conn
	if role == RoleHuman {
		peers = make([]*Conn, 0, len(members))
		for _, m := range members {
			peers = append(peers, m)
		}
	}
	members[conn.ID] = conn
	r.mu.Unlock()

	for _, peer := range peers {
		if err := peer.TrySend(protocol.PeerJoined{Type: protocol.TypePeerJoined, ConnectionID: conn.ID}); err != nil {
			log.Warn().Str("module", "room.registry").Str("to", peer.ID).Err(err).Msg("peer-joined dropped")
		}
	}

	log.Info().Str("module", "room.registry").
		Str("conn", conn.ID).Str("room", roomID).Str("role", string(role)).Msg("joined room")
	return nil
}

// Leave removes a connection, closes it, and notifies the remaining
// members with peer-left when the departing connection was human.
// Unknown ids are a no-op.
func (r *Registry) Leave(connID string) {
	r.mu.Lock()
	conn, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.conns, connID)
	roomID, role := conn.RoomID, conn.Role

	var remaining []*Conn
	if members, ok := r.rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		} else if role == RoleHuman {
			remaining = make([]*Conn, 0, len(members))
			for _, m := range members {
				remaining = append(remaining, m)
			}
		}
	}
	if role == RoleSynthetic && r.synthetic[roomID] == connID {
		delete(r.synthetic, roomID)
	}
	hook := r.leaveHook
	r.mu.Unlock()

	conn.Close()

	for _, peer := range remaining {
		if err := peer.TrySend(protocol.PeerLeft{Type: protocol.TypePeerLeft, ConnectionID: connID}); err != nil {
			log.Warn().Str("module", "room.registry").Str("to", peer.ID).Err(err).Msg("peer-left dropped")
		}
	}

	if hook != nil {
		hook(roomID, connID, role)
	}

	log.Info().Str("module", "room.registry").
		Str("conn", connID).Str("room", roomID).Str("role", string(role)).Msg("left room")
}

// Get returns a live connection by id.
func (r *Registry) Get(connID string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	return c, ok
}

// MembersOf returns a snapshot of the room's current members.
func (r *Registry) MembersOf(roomID string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[roomID]
	out := make([]*Conn, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

// HumanPeerIDs returns the ids of the room's human members, sorted for
// stable join acknowledgements, excluding the given connection.
func (r *Registry) HumanPeerIDs(roomID, excludeID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.rooms[roomID]))
	for id, c := range r.rooms[roomID] {
		if id == excludeID || c.Role != RoleHuman {
			continue
		}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SyntheticOf returns the room's synthetic participant, if registered.
func (r *Registry) SyntheticOf(roomID string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.synthetic[roomID]
	if !ok {
		return nil, false
	}
	c, ok := r.conns[id]
	return c, ok
}

// ConnCount reports the number of live connections across all rooms.
func (r *Registry) ConnCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
