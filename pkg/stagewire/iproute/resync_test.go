package iproute

import (
	"net/netip"
	"testing"

	"github.com/stagewire-net/stagewire/pkg/stagewire/store"
)

func routeKeys(t *testing.T, m *Mgr) map[Key]Route {
	t.Helper()
	got := make(map[Key]Route)
	it := m.Iter()
	for it.Next() {
		r := it.Route()
		got[r.Key] = r
	}
	if err := it.Err(); err != nil {
		t.Fatalf("route iteration error: %v", err)
	}
	return got
}

func TestResyncConvergesTagPartition(t *testing.T) {
	st := store.NewMemStore()
	m := NewMgr(st)

	a := Route{Key: key(t, "10.1.0.0/24"), Tag: 7}
	b := Route{Key: key(t, "10.2.0.0/24"), Tag: 7, Metric: 5}
	c := Route{Key: key(t, "10.3.0.0/24"), Tag: 7}
	foreign := Route{Key: key(t, "10.9.0.0/24"), Tag: 9}
	for _, r := range []Route{a, b, c, foreign} {
		if err := m.IPRouteSet(r); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.IPRouteViaSet(HopVia(foreign.Key, netip.MustParseAddr("10.9.0.1"))); err != nil {
		t.Fatal(err)
	}

	// Re-declare the tag-7 partition as {a with a new metric, d}.
	m.SetTag(7)
	m.ResyncInit()
	a2 := Route{Key: a.Key, Tag: 7, Metric: 20}
	d := Route{Key: key(t, "10.4.0.0/24"), Tag: 7}
	if err := m.IPRouteSet(a2); err != nil {
		t.Fatal(err)
	}
	if err := m.IPRouteSet(d); err != nil {
		t.Fatal(err)
	}
	if err := m.ResyncComplete(); err != nil {
		t.Fatalf("ResyncComplete() error: %v", err)
	}

	got := routeKeys(t, m)
	want := map[Key]Route{a2.Key: a2, d.Key: d, foreign.Key: foreign}
	if len(got) != len(want) {
		t.Fatalf("store holds %d routes after resync, want %d: %v", len(got), len(want), got)
	}
	for k, r := range want {
		if got[k] != r {
			t.Errorf("route %v = %+v, want %+v", k, got[k], r)
		}
	}

	// The other tag's via is untouched.
	if _, ok, err := st.Get(store.RouteViaTable, viaKeyString(HopVia(foreign.Key, netip.MustParseAddr("10.9.0.1")))); err != nil || !ok {
		t.Error("resync removed a via outside its tag scope")
	}
}

func TestResyncIdempotent(t *testing.T) {
	m := NewMgr(store.NewMemStore())
	r := NewRoute(key(t, "10.0.0.0/24"))
	v := HopVia(r.Key, netip.MustParseAddr("10.0.0.1"))

	declare := func() {
		m.ResyncInit()
		if err := m.IPRouteSet(r); err != nil {
			t.Fatal(err)
		}
		if err := m.IPRouteViaSet(v); err != nil {
			t.Fatal(err)
		}
		if err := m.ResyncComplete(); err != nil {
			t.Fatalf("ResyncComplete() error: %v", err)
		}
	}

	declare()
	first := routeKeys(t, m)
	declare()
	second := routeKeys(t, m)

	if len(first) != len(second) {
		t.Fatalf("second resync changed route count: %d -> %d", len(first), len(second))
	}
	for k, got := range second {
		if first[k] != got {
			t.Errorf("route %v changed across identical resyncs: %+v -> %+v", k, first[k], got)
		}
	}
	if ok, _ := m.ExistsVia(v); !ok {
		t.Error("via absent after repeated identical resync")
	}
}

func TestResyncSessionIsVirtualEmptyTable(t *testing.T) {
	m := NewMgr(store.NewMemStore())
	old := NewRoute(key(t, "10.1.0.0/24"))
	if err := m.IPRouteSet(old); err != nil {
		t.Fatal(err)
	}

	m.ResyncInit()

	// Existing records read as absent inside the session.
	if ok, _ := m.Exists(old.Key); ok {
		t.Error("pre-existing route visible through staged existence check")
	}
	expectPanic(t, &NotFoundError{}, func() {
		m.IPRoute(old.Key)
	})

	// Staged records read back before commit.
	staged := NewRoute(key(t, "10.2.0.0/24"))
	if err := m.IPRouteSet(staged); err != nil {
		t.Fatal(err)
	}
	if ok, _ := m.Exists(staged.Key); !ok {
		t.Error("staged route invisible within its own session")
	}

	// Iteration keeps reading the real store.
	got := routeKeys(t, m)
	if len(got) != 1 || got[old.Key] != old {
		t.Errorf("mid-session iteration = %v, want only the committed route %+v", got, old)
	}
}

func TestResyncReentrantInitPanics(t *testing.T) {
	m := NewMgr(store.NewMemStore())
	m.ResyncInit()

	expectPanic(t, &ReentrantResyncError{}, func() {
		m.ResyncInit()
	})
}

func TestResyncSetTagMidSessionPanics(t *testing.T) {
	m := NewMgr(store.NewMemStore())
	m.ResyncInit()

	expectPanic(t, &ReentrantResyncError{}, func() {
		m.SetTag(3)
	})
}

func TestResyncAbandonedSessionHasNoEffect(t *testing.T) {
	st := store.NewMemStore()
	m := NewMgr(st)
	committed := NewRoute(key(t, "10.1.0.0/24"))
	if err := m.IPRouteSet(committed); err != nil {
		t.Fatal(err)
	}

	m.ResyncInit()
	if err := m.IPRouteSet(NewRoute(key(t, "10.2.0.0/24"))); err != nil {
		t.Fatal(err)
	}
	// Session dropped without completion.

	fresh := NewMgr(st)
	got := routeKeys(t, fresh)
	if len(got) != 1 || got[committed.Key] != committed {
		t.Errorf("abandoned session leaked into the store: %v", got)
	}
}

func TestResyncCompleteWithoutSessionIsNoop(t *testing.T) {
	m := NewMgr(store.NewMemStore())
	r := NewRoute(key(t, "10.0.0.0/24"))
	if err := m.IPRouteSet(r); err != nil {
		t.Fatal(err)
	}

	if err := m.ResyncComplete(); err != nil {
		t.Fatalf("ResyncComplete() without session: %v", err)
	}
	if ok, _ := m.Exists(r.Key); !ok {
		t.Error("no-op ResyncComplete disturbed the store")
	}
}

// The end-to-end shape of a provisioning pass: declare one route with one
// nexthop on an untagged manager and read it all back.
func TestResyncDeclareRouteWithNexthop(t *testing.T) {
	m := NewMgr(store.NewMemStore())
	k := key(t, "10.0.0.0/24")
	hop := netip.MustParseAddr("10.0.0.1")

	m.ResyncInit()
	if err := m.IPRouteSet(NewRoute(k)); err != nil {
		t.Fatal(err)
	}
	if err := m.IPRouteViaSet(HopVia(k, hop)); err != nil {
		t.Fatal(err)
	}
	if err := m.ResyncComplete(); err != nil {
		t.Fatalf("ResyncComplete() error: %v", err)
	}

	if ok, err := m.Exists(k); err != nil || !ok {
		t.Fatalf("Exists() = %v, %v after commit", ok, err)
	}
	var vias []Via
	it := m.ViaIter(k)
	for it.Next() {
		vias = append(vias, it.Via())
	}
	if err := it.Err(); err != nil {
		t.Fatal(err)
	}
	if len(vias) != 1 || vias[0].Hop != hop {
		t.Errorf("ViaIter = %v, want exactly one via through %v", vias, hop)
	}
}
