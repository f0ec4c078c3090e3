package signaling

import (
	"hash/fnv"
	"sort"
	"sync"
)

const defaultShards = 32

// Peer is a registered connection together with the participant it serves.
type Peer struct {
	ParticipantID string
	Conn          Conn
}

type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

// Registry maps room -> participant -> live connection. Rooms are spread
// over independently locked shards so unrelated rooms never contend. No
// lock is held while a connection is closed.
type Registry struct {
	shards []*shard
}

type shard struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Conn
}

func NewRegistry(shards int) *Registry {
	if shards <= 0 {
		shards = defaultShards
	}
	r := &Registry{shards: make([]*shard, shards)}
	for i := range r.shards {
		r.shards[i] = &shard{rooms: make(map[string]map[string]Conn)}
	}
	return r
}

func (r *Registry) shardFor(roomID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(roomID))
	return r.shards[h.Sum32()%uint32(len(r.shards))]
}

// Register binds conn to the participant, closing any connection it
// replaces.
func (r *Registry) Register(roomID, participantID string, conn Conn) {
	s := r.shardFor(roomID)

	s.mu.Lock()
	members, ok := s.rooms[roomID]
	if !ok {
		members = make(map[string]Conn)
		s.rooms[roomID] = members
	}
	prev := members[participantID]
	members[participantID] = conn
	s.mu.Unlock()

	if prev != nil && prev != conn {
		prev.Close()
	}
}

// Unregister removes the participant's connection, whichever it is, and
// returns it.
func (r *Registry) Unregister(roomID, participantID string) (Conn, bool) {
	s := r.shardFor(roomID)

	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.rooms[roomID]
	if !ok {
		return nil, false
	}
	conn, ok := members[participantID]
	if !ok {
		return nil, false
	}
	delete(members, participantID)
	if len(members) == 0 {
		delete(s.rooms, roomID)
	}
	return conn, true
}

// UnregisterConn removes the entry only while it still points at conn. It
// reports false when conn was already replaced or removed.
func (r *Registry) UnregisterConn(roomID, participantID string, conn Conn) bool {
	s := r.shardFor(roomID)

	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	current, ok := members[participantID]
	if !ok || current != conn {
		return false
	}
	delete(members, participantID)
	if len(members) == 0 {
		delete(s.rooms, roomID)
	}
	return true
}

// UnregisterID removes the participant's entry only while its connection
// has the given id.
func (r *Registry) UnregisterID(roomID, participantID, connID string) (Conn, bool) {
	s := r.shardFor(roomID)

	s.mu.Lock()
	defer s.mu.Unlock()

	members, ok := s.rooms[roomID]
	if !ok {
		return nil, false
	}
	conn, ok := members[participantID]
	if !ok || conn.ID() != connID {
		return nil, false
	}
	delete(members, participantID)
	if len(members) == 0 {
		delete(s.rooms, roomID)
	}
	return conn, true
}

func (r *Registry) Get(roomID, participantID string) (Conn, bool) {
	s := r.shardFor(roomID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	conn, ok := s.rooms[roomID][participantID]
	return conn, ok
}

// AllExcept snapshots every peer of the room other than participantID,
// ordered by participant identifier.
func (r *Registry) AllExcept(roomID, participantID string) []Peer {
	s := r.shardFor(roomID)

	s.mu.RLock()
	members := s.rooms[roomID]
	peers := make([]Peer, 0, len(members))
	for id, conn := range members {
		if id == participantID {
			continue
		}
		peers = append(peers, Peer{ParticipantID: id, Conn: conn})
	}
	s.mu.RUnlock()

	sort.Slice(peers, func(i, j int) bool { return peers[i].ParticipantID < peers[j].ParticipantID })
	return peers
}

func (r *Registry) HasRoom(roomID string) bool {
	s := r.shardFor(roomID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.rooms[roomID]
	return ok
}

// CloseRoom drops the room and closes every connection that was in it.
func (r *Registry) CloseRoom(roomID string) int {
	s := r.shardFor(roomID)

	s.mu.Lock()
	members := s.rooms[roomID]
	delete(s.rooms, roomID)
	s.mu.Unlock()

	for _, conn := range members {
		conn.Close()
	}
	return len(members)
}

// Len is the number of rooms with at least one connection.
func (r *Registry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.rooms)
		s.mu.RUnlock()
	}
	return n
}

func (r *Registry) Stats() Stats {
	var st Stats
	for _, s := range r.shards {
		s.mu.RLock()
		st.Rooms += len(s.rooms)
		for _, members := range s.rooms {
			st.Connections += len(members)
		}
		s.mu.RUnlock()
	}
	return st
}
