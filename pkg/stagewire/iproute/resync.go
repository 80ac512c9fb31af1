package iproute

import (
	"fmt"

	"github.com/stagewire-net/stagewire/pkg/stagewire/store"
)

// session is the staging set of an open resync: the virtual empty table
// that reads and writes operate on between ResyncInit and ResyncComplete.
// It is never a copy of the real store; callers re-declare every record
// they want to keep.
type session struct {
	routes map[Key]Route
	vias   map[Via]struct{}
}

func newSession() *session {
	return &session{
		routes: make(map[Key]Route),
		vias:   make(map[Via]struct{}),
	}
}

// ResyncInit opens a resync session. From this point every mutating and
// read/existence operation on the manager works against a fresh staging
// set scoped to the current tag; iteration keeps reading the real store.
// Panics with *ReentrantResyncError if a session is already open.
//
// A session that is never completed has no effect on the store.
func (m *Mgr) ResyncInit() {
	if m.session != nil {
		panic(&ReentrantResyncError{Op: "ResyncInit"})
	}
	m.log.Debugf("resync session open (tag %d)", m.tag)
	m.session = newSession()
}

// ResyncComplete closes the session and converges the store: within the
// manager's tag scope, every real record not present in the staging set
// is deleted and every staged record is written, as one tight batch of
// store operations. Records outside the tag scope are untouched.
//
// The batch is uninterrupted from this manager's side only; another
// agent's concurrent write to the same tag partition can still land
// mid-sequence or be clobbered. On a store error the session stays open
// so the commit can be retried.
func (m *Mgr) ResyncComplete() error {
	s := m.session
	if s == nil {
		return nil
	}

	var changes []store.Change

	// Deletions: in-scope real records missing from the staging set.
	routeKeys, err := m.store.Keys(store.RouteTable)
	if err != nil {
		return fmt.Errorf("resync: enumerating routes: %w", err)
	}
	for _, key := range routeKeys {
		fields, ok, err := m.store.Get(store.RouteTable, key)
		if err != nil {
			return fmt.Errorf("resync: reading route %q: %w", key, err)
		}
		if !ok {
			continue
		}
		r, err := decodeRoute(key, fields)
		if err != nil || !m.inScope(r.Tag) {
			continue
		}
		if _, staged := s.routes[r.Key]; !staged {
			changes = append(changes, store.Change{Table: store.RouteTable, Key: key})
		}
	}

	viaKeys, err := m.store.Keys(store.RouteViaTable)
	if err != nil {
		return fmt.Errorf("resync: enumerating vias: %w", err)
	}
	for _, key := range viaKeys {
		fields, ok, err := m.store.Get(store.RouteViaTable, key)
		if err != nil {
			return fmt.Errorf("resync: reading via %q: %w", key, err)
		}
		if !ok {
			continue
		}
		v, tag, err := decodeVia(key, fields)
		if err != nil || !m.inScope(tag) {
			continue
		}
		if _, staged := s.vias[v]; !staged {
			changes = append(changes, store.Change{Table: store.RouteViaTable, Key: key})
		}
	}

	// Writes: the entire staging set.
	for _, r := range s.routes {
		changes = append(changes, store.Change{
			Table:  store.RouteTable,
			Key:    keyString(r.Key),
			Fields: routeFields(r),
		})
	}
	for v := range s.vias {
		// Vias can only be staged under a staged route, so the tag lookup
		// cannot miss.
		tag := s.routes[v.RouteKey].Tag
		changes = append(changes, store.Change{
			Table:  store.RouteViaTable,
			Key:    viaKeyString(v),
			Fields: viaFields(v, tag),
		})
	}

	if err := m.store.Apply(changes); err != nil {
		return fmt.Errorf("resync: applying %d changes: %w", len(changes), err)
	}

	m.log.Infof("resync complete: %d routes, %d vias staged, %d store changes (tag %d)",
		len(s.routes), len(s.vias), len(changes), m.tag)
	m.session = nil
	return nil
}
