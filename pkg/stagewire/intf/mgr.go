package intf

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/stagewire-net/stagewire/pkg/stagewire/store"
	"github.com/stagewire-net/stagewire/pkg/util"
)

// NotFoundError reports a getter or setter applied to an interface that
// does not exist in the store. By policy this is a programming error:
// managers panic with it instead of returning a sentinel. Callers that
// expect absence must use Exists first.
type NotFoundError struct {
	ID ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("interface %s does not exist", e.ID)
}

// attrs is the decoded attribute set of one interface record.
type attrs struct {
	admin bool
	oper  OperStatus
	descr string
}

// Mgr inspects and configures interface attributes held in the entry store
// and notifies registered handlers of changes.
//
// A Mgr assumes a single logical thread of control: its methods and the
// handler callbacks they trigger run on the caller's goroutine, and there
// is no internal locking. The store itself is shared with other agents;
// Refresh picks up their changes and turns them into events.
type Mgr struct {
	store store.Store
	hub   hub
	known map[ID]attrs
	log   *logrus.Entry
}

// NewMgr creates an interface manager over the given store. The current
// store contents are snapshotted without emitting events; only changes
// from this point on are reported to handlers.
func NewMgr(st store.Store) (*Mgr, error) {
	m := &Mgr{
		store: st,
		log:   util.WithManager("intf"),
	}
	known, err := m.snapshot()
	if err != nil {
		return nil, fmt.Errorf("initial interface snapshot: %w", err)
	}
	m.known = known
	return m, nil
}

// WatchAllIntfs toggles delivery of every interface event to h.
func (m *Mgr) WatchAllIntfs(h Handler, enable bool) {
	m.hub.watchAll(h, enable)
}

// WatchIntf toggles delivery of events for the given interface to h.
// Narrow subscriptions add delivery; they never mask an "all" subscription.
func (m *Mgr) WatchIntf(h Handler, id ID, enable bool) {
	m.hub.watchID(h, id, enable)
}

// Detach removes every subscription of h. No callback reaches h after
// Detach returns.
func (m *Mgr) Detach(h Handler) {
	m.hub.detach(h)
}

// Exists reports whether the interface has a record in the store.
func (m *Mgr) Exists(id ID) (bool, error) {
	_, ok, err := m.store.Get(store.IntfTable, id.String())
	return ok, err
}

// AdminEnabled reports whether the interface is configured to be enabled.
// Panics with *NotFoundError if the interface does not exist.
func (m *Mgr) AdminEnabled(id ID) (bool, error) {
	a, err := m.get(id)
	if err != nil {
		return false, err
	}
	return a.admin, nil
}

// SetAdminEnabled configures the enabled status of the interface. Writing
// the current value is suppressed: no store write, no event. Panics with
// *NotFoundError if the interface does not exist.
func (m *Mgr) SetAdminEnabled(id ID, enabled bool) error {
	a, err := m.get(id)
	if err != nil {
		return err
	}
	if a.admin == enabled {
		return nil
	}
	status := "down"
	if enabled {
		status = "up"
	}
	if err := m.store.Put(store.IntfTable, id.String(), map[string]string{"admin_status": status}); err != nil {
		return err
	}
	a.admin = enabled
	m.known[id] = a
	m.log.WithField("intf", id.String()).Debugf("admin_status -> %s", status)
	m.hub.deliver(id, func(h Handler) { h.OnAdminEnabled(id, enabled) })
	return nil
}

// Description returns the interface description. Panics with
// *NotFoundError if the interface does not exist.
func (m *Mgr) Description(id ID) (string, error) {
	a, err := m.get(id)
	if err != nil {
		return "", err
	}
	return a.descr, nil
}

// SetDescription configures the description of the interface. Panics with
// *NotFoundError if the interface does not exist.
func (m *Mgr) SetDescription(id ID, descr string) error {
	a, err := m.get(id)
	if err != nil {
		return err
	}
	if a.descr == descr {
		return nil
	}
	if err := m.store.Put(store.IntfTable, id.String(), map[string]string{"description": descr}); err != nil {
		return err
	}
	a.descr = descr
	m.known[id] = a
	return nil
}

// OperStatus returns the current operational status of the interface.
// Panics with *NotFoundError if the interface does not exist.
func (m *Mgr) OperStatus(id ID) (OperStatus, error) {
	a, err := m.get(id)
	if err != nil {
		return OperNull, err
	}
	return a.oper, nil
}

// SetOperStatus records the operational status of the interface, for
// agents that own oper state. Writing the current value is suppressed.
// Panics with *NotFoundError if the interface does not exist.
func (m *Mgr) SetOperStatus(id ID, status OperStatus) error {
	a, err := m.get(id)
	if err != nil {
		return err
	}
	if a.oper == status {
		return nil
	}
	if err := m.store.Put(store.IntfTable, id.String(), map[string]string{"oper_status": status.String()}); err != nil {
		return err
	}
	a.oper = status
	m.known[id] = a
	m.hub.deliver(id, func(h Handler) { h.OnOperStatus(id, status) })
	return nil
}

// Iter returns an iterator over all interfaces currently present in the
// store. The key set is captured at call time; the iterator is lazy,
// single-pass, and cannot be restarted.
func (m *Mgr) Iter() *Iter {
	keys, err := m.store.Keys(store.IntfTable)
	return &Iter{keys: keys, err: err}
}

// Refresh re-reads the store and reports externally-made changes to
// handlers: creations, deletions, operational-status and admin-enabled
// transitions since the last snapshot. Mutations made through this Mgr
// are already reflected in the snapshot and are not re-reported.
func (m *Mgr) Refresh() error {
	cur, err := m.snapshot()
	if err != nil {
		return err
	}

	for id, a := range cur {
		old, existed := m.known[id]
		if !existed {
			m.hub.deliver(id, func(h Handler) { h.OnIntfCreate(id) })
			continue
		}
		if old.admin != a.admin {
			m.hub.deliver(id, func(h Handler) { h.OnAdminEnabled(id, a.admin) })
		}
		if old.oper != a.oper {
			m.hub.deliver(id, func(h Handler) { h.OnOperStatus(id, a.oper) })
		}
	}
	for id := range m.known {
		if _, still := cur[id]; !still {
			m.hub.deliver(id, func(h Handler) { h.OnIntfDelete(id) })
		}
	}

	m.known = cur
	return nil
}

// get reads and decodes one interface record, panicking on absence.
func (m *Mgr) get(id ID) (attrs, error) {
	fields, ok, err := m.store.Get(store.IntfTable, id.String())
	if err != nil {
		return attrs{}, err
	}
	if !ok {
		panic(&NotFoundError{ID: id})
	}
	return decodeAttrs(fields), nil
}

// snapshot reads every decodable interface record. Records whose names do
// not parse were written by agents with a different naming scheme and are
// skipped.
func (m *Mgr) snapshot() (map[ID]attrs, error) {
	keys, err := m.store.Keys(store.IntfTable)
	if err != nil {
		return nil, err
	}
	cur := make(map[ID]attrs, len(keys))
	for _, name := range keys {
		id, err := Parse(name)
		if err != nil {
			m.log.Debugf("skipping unrecognized interface record %q", name)
			continue
		}
		fields, ok, err := m.store.Get(store.IntfTable, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Deleted between Keys and Get by another agent.
			continue
		}
		cur[id] = decodeAttrs(fields)
	}
	return cur, nil
}

func decodeAttrs(fields map[string]string) attrs {
	return attrs{
		admin: fields["admin_status"] == "up",
		oper:  operStatusOf(fields["oper_status"]),
		descr: fields["description"],
	}
}

// Iter is a lazy, single-pass iterator over interface identifiers.
type Iter struct {
	keys []string
	cur  ID
	err  error
}

// Next advances to the next interface, reporting false when the sequence
// is exhausted or an error occurred.
func (it *Iter) Next() bool {
	if it.err != nil {
		return false
	}
	for len(it.keys) > 0 {
		name := it.keys[0]
		it.keys = it.keys[1:]
		id, err := Parse(name)
		if err != nil {
			continue
		}
		it.cur = id
		return true
	}
	return false
}

// ID returns the identifier at the current position.
func (it *Iter) ID() ID {
	return it.cur
}

// Err returns the store error that stopped iteration, if any.
func (it *Iter) Err() error {
	return it.err
}
