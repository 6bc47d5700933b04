// Package collection holds the server's in-memory working set of persons.
// It is write-through: every mutation reaches the backing store before it
// is applied in memory, so a store failure never leaves memory ahead of
// disk.
package collection

import (
	"context"
	"sort"
	"sync"

	"github.com/serezk4/collectiond/internal/model"
)

// Store is the subset of the persistence gateway the collection needs.
type Store interface {
	FindAllPersons(ctx context.Context) ([]model.Person, error)
	SavePerson(ctx context.Context, p model.Person) (model.Person, error)
	RemovePersonByID(ctx context.Context, id int64) (bool, error)
}

// Collection is the C5 write-through in-memory Person collection. It is
// safe for concurrent use.
type Collection struct {
	store Store

	mu      sync.RWMutex
	persons map[int64]model.Person
}

// New constructs an empty Collection backed by store.
func New(store Store) *Collection {
	return &Collection{store: store, persons: make(map[int64]model.Person)}
}

// Load replaces the in-memory contents with every person from the store.
// It is intended to run once at startup.
func (c *Collection) Load(ctx context.Context) error {
	all, err := c.store.FindAllPersons(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.persons = make(map[int64]model.Person, len(all))
	for _, p := range all {
		c.persons[p.ID] = p
	}
	return nil
}

// Snapshot returns every person currently held, ordered by ascending id —
// the same insertion order FindAllPersons returns.
func (c *Collection) Snapshot() []model.Person {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Person, 0, len(c.persons))
	for _, p := range c.persons {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SnapshotOwnedBy returns every person owned by ownerID, ordered by
// ascending id.
func (c *Collection) SnapshotOwnedBy(ownerID int64) []model.Person {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Person, 0)
	for _, p := range c.persons {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len reports how many persons are currently held.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.persons)
}

// Get returns the person with the given id.
func (c *Collection) Get(id int64) (model.Person, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.persons[id]
	return p, ok
}

// Add persists p and, only once the store confirms the write, inserts it
// into memory. It returns the stored person with its assigned id.
func (c *Collection) Add(ctx context.Context, p model.Person) (model.Person, error) {
	saved, err := c.store.SavePerson(ctx, p)
	if err != nil {
		return model.Person{}, err
	}

	c.mu.Lock()
	c.persons[saved.ID] = saved
	c.mu.Unlock()

	return saved, nil
}

// RemoveByID deletes the person with the given id from the store and, only
// once the store confirms the delete, from memory. It reports whether a
// person was removed.
func (c *Collection) RemoveByID(ctx context.Context, id int64) (bool, error) {
	removed, err := c.store.RemovePersonByID(ctx, id)
	if err != nil {
		return false, err
	}
	if !removed {
		return false, nil
	}

	c.mu.Lock()
	delete(c.persons, id)
	c.mu.Unlock()

	return true, nil
}

// RemoveWhereAll deletes every person, regardless of owner, for which keep
// returns false. See RemoveWhere for the removal semantics.
func (c *Collection) RemoveWhereAll(ctx context.Context, keep func(model.Person) bool) (int, error) {
	candidates := c.Snapshot()

	removed := 0
	for _, p := range candidates {
		if keep(p) {
			continue
		}
		ok, err := c.RemoveByID(ctx, p.ID)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// RemoveWhere deletes every person owned by ownerID for which keep returns
// false. Each matching removal goes through the store individually; it
// stops and returns the underlying error on the first store failure,
// leaving memory consistent with whatever was actually removed from disk.
// It returns the number of persons removed.
func (c *Collection) RemoveWhere(ctx context.Context, ownerID int64, keep func(model.Person) bool) (int, error) {
	candidates := c.SnapshotOwnedBy(ownerID)

	removed := 0
	for _, p := range candidates {
		if keep(p) {
			continue
		}
		ok, err := c.RemoveByID(ctx, p.ID)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}
