package status

import (
	"encoding/json"
	"os"
	"strconv"
	"sync"
)

// Store is the durable guild → last announcement message id mapping. The
// whole mapping is rewritten on every update; the file is a cache key, not
// source of truth (the platform's message existence is, re-checked on each
// edit attempt), so a torn write only costs one extra announcement message.
type Store struct {
	path string

	mu  sync.Mutex
	ids map[uint64]uint64
}

// NewStore loads the mapping from path. A missing or malformed file yields
// an empty mapping, never an error.
func NewStore(path string) *Store {
	s := &Store{path: path, ids: make(map[uint64]uint64)}

	raw, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var onDisk map[string]uint64
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		return s
	}
	for key, msgID := range onDisk {
		guildID, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			continue
		}
		s.ids[guildID] = msgID
	}
	return s
}

func (s *Store) Get(guildID uint64) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.ids[guildID]
	return id, ok
}

// Put records the message id and rewrites the file. A write failure leaves
// the in-memory mapping updated; the pointer self-heals on the next
// not-found fallback.
func (s *Store) Put(guildID, messageID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids[guildID] = messageID

	onDisk := make(map[string]uint64, len(s.ids))
	for id, msgID := range s.ids {
		onDisk[strconv.FormatUint(id, 10)] = msgID
	}
	raw, err := json.Marshal(onDisk)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o644)
}

// Snapshot returns a copy of the current mapping.
func (s *Store) Snapshot() map[uint64]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uint64]uint64, len(s.ids))
	for id, msgID := range s.ids {
		out[id] = msgID
	}
	return out
}
