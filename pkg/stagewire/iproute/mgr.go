package iproute

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/stagewire-net/stagewire/pkg/stagewire/store"
	"github.com/stagewire-net/stagewire/pkg/util"
)

// Mgr manages IP static routes and their vias in the entry store.
//
// A Mgr may be scoped to a single non-zero tag with SetTag; while scoped,
// reads, writes, existence checks and resync only touch records of that
// tag. Iteration is the deliberate exception: it always traverses the full
// underlying store, staged or not, scoped or not.
//
// A Mgr assumes a single logical thread of control and has no internal
// locking. The store is shared with other agents; resync correctness is
// scoped to this manager's view converging to its staged set, not to
// excluding concurrent writers.
type Mgr struct {
	store   store.Store
	tag     uint32
	session *session // non-nil while a resync session is open
	log     *logrus.Entry
}

// NewMgr creates a route manager over the given store, unscoped (tag 0).
func NewMgr(st store.Store) *Mgr {
	return &Mgr{
		store: st,
		log:   util.WithManager("iproute"),
	}
}

// Tag returns the current tag scope, or 0 if the manager is unscoped.
func (m *Mgr) Tag() uint32 {
	return m.tag
}

// SetTag scopes the manager to routes with the given tag. A tag of 0
// removes the scope. Panics with *ReentrantResyncError when called while
// a resync session is open: the staging set is scoped to one tag.
func (m *Mgr) SetTag(tag uint32) {
	if m.session != nil {
		panic(&ReentrantResyncError{Op: "SetTag"})
	}
	m.tag = tag
}

// inScope reports whether a record tag falls under the manager's scope.
func (m *Mgr) inScope(tag uint32) bool {
	return m.tag == 0 || tag == m.tag
}

// Exists reports whether the route key exists in the currently-effective
// table: the staging set during a resync session, the real store
// otherwise. A route outside the tag scope reads as absent.
func (m *Mgr) Exists(k Key) (bool, error) {
	if m.session != nil {
		_, ok := m.session.routes[k]
		return ok, nil
	}
	r, ok, err := m.fetch(k)
	if err != nil || !ok {
		return false, err
	}
	return m.inScope(r.Tag), nil
}

// ExistsVia reports whether the via exists in the currently-effective
// table, under the same scoping rules as Exists.
func (m *Mgr) ExistsVia(v Via) (bool, error) {
	if m.session != nil {
		_, ok := m.session.vias[v]
		return ok, nil
	}
	fields, ok, err := m.store.Get(store.RouteViaTable, viaKeyString(v))
	if err != nil || !ok {
		return false, err
	}
	_, tag, err := decodeVia(viaKeyString(v), fields)
	if err != nil {
		return false, err
	}
	return m.inScope(tag), nil
}

// IPRoute returns the route for the key. Panics with *NotFoundError when
// the key is absent from the currently-effective table; check Exists
// first when absence is expected.
func (m *Mgr) IPRoute(k Key) (Route, error) {
	if m.session != nil {
		r, ok := m.session.routes[k]
		if !ok {
			panic(&NotFoundError{Key: k})
		}
		return r, nil
	}
	r, ok, err := m.fetch(k)
	if err != nil {
		return Route{}, err
	}
	if !ok || !m.inScope(r.Tag) {
		panic(&NotFoundError{Key: k})
	}
	return r, nil
}

// IPRouteSet inserts or updates a route. During a resync session the
// route goes to the staging set only. Panics with *TagMismatchError when
// the manager is scoped and the route carries a different tag.
func (m *Mgr) IPRouteSet(r Route) error {
	if !m.inScope(r.Tag) {
		panic(&TagMismatchError{Key: r.Key, Tag: r.Tag, Scope: m.tag})
	}
	if m.session != nil {
		m.session.routes[r.Key] = r
		return nil
	}
	m.log.Debugf("route set %s tag=%d", keyString(r.Key), r.Tag)
	return m.store.Put(store.RouteTable, keyString(r.Key), routeFields(r))
}

// IPRouteDel removes the route and all its vias. Deleting an absent or
// out-of-scope route is a no-op.
func (m *Mgr) IPRouteDel(k Key) error {
	if m.session != nil {
		delete(m.session.routes, k)
		for v := range m.session.vias {
			if v.RouteKey == k {
				delete(m.session.vias, v)
			}
		}
		return nil
	}

	r, ok, err := m.fetch(k)
	if err != nil {
		return err
	}
	if !ok || !m.inScope(r.Tag) {
		return nil
	}

	changes := []store.Change{{Table: store.RouteTable, Key: keyString(k)}}
	viaKeys, err := m.viaKeysFor(k)
	if err != nil {
		return err
	}
	for _, vk := range viaKeys {
		changes = append(changes, store.Change{Table: store.RouteViaTable, Key: vk})
	}
	m.log.Debugf("route del %s (%d vias)", keyString(k), len(viaKeys))
	return m.store.Apply(changes)
}

// IPRouteViaSet adds a via to a route. The via is validated before any
// store mutation; invalid vias return *InvalidArgumentError. The route
// must already exist in the currently-effective table (panic
// *NotFoundError) and match the scoped tag (panic *TagMismatchError).
func (m *Mgr) IPRouteViaSet(v Via) error {
	if err := v.Validate(); err != nil {
		return err
	}

	if m.session != nil {
		if _, ok := m.session.routes[v.RouteKey]; !ok {
			panic(&NotFoundError{Key: v.RouteKey})
		}
		m.session.vias[v] = struct{}{}
		return nil
	}

	r, ok, err := m.fetch(v.RouteKey)
	if err != nil {
		return err
	}
	if !ok {
		panic(&NotFoundError{Key: v.RouteKey})
	}
	if !m.inScope(r.Tag) {
		panic(&TagMismatchError{Key: v.RouteKey, Tag: r.Tag, Scope: m.tag})
	}
	return m.store.Put(store.RouteViaTable, viaKeyString(v), viaFields(v, r.Tag))
}

// IPRouteViaDel removes one via. The route itself persists, pathless if
// this was its last via; only IPRouteDel removes a route. Deleting an
// absent or out-of-scope via is a no-op.
func (m *Mgr) IPRouteViaDel(v Via) error {
	if m.session != nil {
		delete(m.session.vias, v)
		return nil
	}

	key := viaKeyString(v)
	fields, ok, err := m.store.Get(store.RouteViaTable, key)
	if err != nil || !ok {
		return err
	}
	if _, tag, err := decodeVia(key, fields); err == nil && !m.inScope(tag) {
		return nil
	}
	return m.store.Delete(store.RouteViaTable, key)
}

// fetch reads and decodes one route record from the real store.
func (m *Mgr) fetch(k Key) (Route, bool, error) {
	fields, ok, err := m.store.Get(store.RouteTable, keyString(k))
	if err != nil || !ok {
		return Route{}, false, err
	}
	r, err := decodeRoute(keyString(k), fields)
	if err != nil {
		return Route{}, false, err
	}
	return r, true, nil
}

// viaKeysFor lists the store keys of every via attached to k.
func (m *Mgr) viaKeysFor(k Key) ([]string, error) {
	keys, err := m.store.Keys(store.RouteViaTable)
	if err != nil {
		return nil, err
	}
	prefix := keyString(k) + "|"
	var out []string
	for _, vk := range keys {
		if strings.HasPrefix(vk, prefix) {
			out = append(out, vk)
		}
	}
	return out, nil
}

// Iter returns an iterator over all routes in the real store, regardless
// of tag scope and of any open resync session. The key set is captured at
// call time; the iterator is lazy, single-pass, and cannot be restarted.
func (m *Mgr) Iter() *RouteIter {
	keys, err := m.store.Keys(store.RouteTable)
	return &RouteIter{m: m, keys: keys, err: err}
}

// ViaIter returns an iterator over the vias of one route key, with the
// same real-store, scope-exempt semantics as Iter.
func (m *Mgr) ViaIter(k Key) *ViaIter {
	keys, err := m.viaKeysFor(k)
	return &ViaIter{m: m, keys: keys, err: err}
}

// RouteIter is a lazy, single-pass iterator over route records.
type RouteIter struct {
	m    *Mgr
	keys []string
	cur  Route
	err  error
}

// Next advances to the next route, reporting false when the sequence is
// exhausted or a store error occurred. Records deleted since the iterator
// was created, or undecodable ones written by foreign agents, are skipped.
func (it *RouteIter) Next() bool {
	for it.err == nil && len(it.keys) > 0 {
		key := it.keys[0]
		it.keys = it.keys[1:]

		fields, ok, err := it.m.store.Get(store.RouteTable, key)
		if err != nil {
			it.err = err
			return false
		}
		if !ok {
			continue
		}
		r, err := decodeRoute(key, fields)
		if err != nil {
			it.m.log.Debugf("skipping undecodable route record %q: %v", key, err)
			continue
		}
		it.cur = r
		return true
	}
	return false
}

// Route returns the record at the current position.
func (it *RouteIter) Route() Route {
	return it.cur
}

// Err returns the store error that stopped iteration, if any.
func (it *RouteIter) Err() error {
	return it.err
}

// ViaIter is a lazy, single-pass iterator over the vias of one route key.
type ViaIter struct {
	m    *Mgr
	keys []string
	cur  Via
	err  error
}

// Next advances to the next via, with the same skip rules as RouteIter.
func (it *ViaIter) Next() bool {
	for it.err == nil && len(it.keys) > 0 {
		key := it.keys[0]
		it.keys = it.keys[1:]

		fields, ok, err := it.m.store.Get(store.RouteViaTable, key)
		if err != nil {
			it.err = err
			return false
		}
		if !ok {
			continue
		}
		v, _, err := decodeVia(key, fields)
		if err != nil {
			it.m.log.Debugf("skipping undecodable via record %q: %v", key, err)
			continue
		}
		it.cur = v
		return true
	}
	return false
}

// Via returns the record at the current position.
func (it *ViaIter) Via() Via {
	return it.cur
}

// Err returns the store error that stopped iteration, if any.
func (it *ViaIter) Err() error {
	return it.err
}
