package syncloop

import (
	"sync"

	"github.com/roach88/scenesync/internal/model"
)

// Change is an entity whose content differs from what was last committed.
type Change struct {
	Entity model.Entity
	Hash   string
}

// Tracker remembers the content hash of each entity as last committed.
type Tracker struct {
	mu     sync.Mutex
	hashes map[model.Identifier]string
}

// NewTracker creates an empty tracker: every entity counts as changed.
func NewTracker() *Tracker {
	return &Tracker{hashes: make(map[model.Identifier]string)}
}

// Diff returns the entities that are new or changed, in input order. It
// fails on the first entity that does not validate.
func (t *Tracker) Diff(entities []model.Entity) ([]Change, error) {
	var changes []Change
	for _, e := range entities {
		h, err := model.EntityHash(e)
		if err != nil {
			return nil, err
		}
		t.mu.Lock()
		prev, ok := t.hashes[e.EntityID()]
		t.mu.Unlock()
		if ok && prev == h {
			continue
		}
		changes = append(changes, Change{Entity: e, Hash: h})
	}
	return changes, nil
}

// Mark records changes as committed.
func (t *Tracker) Mark(changes []Change) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range changes {
		t.hashes[c.Entity.EntityID()] = c.Hash
	}
}

// Len returns the number of tracked entities.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.hashes)
}
