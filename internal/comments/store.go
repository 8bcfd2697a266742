package comments

import "sync"

// Store holds the current forest of one post. Every mutation swaps in a new
// forest and bumps the version, so a snapshot taken earlier stays valid.
type Store struct {
	mu      sync.RWMutex
	forest  Forest
	version uint64
}

// NewStore returns a store seeded with f.
func NewStore(f Forest) *Store {
	if f == nil {
		f = Forest{}
	}
	return &Store{forest: f}
}

// Snapshot returns the current forest and its version.
func (s *Store) Snapshot() (Forest, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.forest, s.version
}

// Version returns the current version.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Replace installs a freshly loaded forest.
func (s *Store) Replace(f Forest) uint64 {
	if f == nil {
		f = Forest{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forest = f
	s.version++
	return s.version
}

// AppendTopLevel appends c to the top-level comments.
func (s *Store) AppendTopLevel(c Comment) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forest = AppendTopLevel(s.forest, c)
	s.version++
	return s.version
}

// InsertReply inserts reply under parentID. An unknown parent leaves the
// store and its version unchanged.
func (s *Store) InsertReply(parentID int64, reply Comment) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, ok := InsertReply(s.forest, parentID, reply)
	if !ok {
		return s.version, false
	}
	s.forest = next
	s.version++
	return s.version, true
}
