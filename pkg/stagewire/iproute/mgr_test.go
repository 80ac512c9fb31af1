package iproute

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/stagewire-net/stagewire/pkg/stagewire/intf"
	"github.com/stagewire-net/stagewire/pkg/stagewire/store"
)

func key(t *testing.T, prefix string) Key {
	t.Helper()
	return NewKey(mustPrefix(t, prefix))
}

// expectPanic runs fn and asserts it panics with a value assignable to want.
func expectPanic(t *testing.T, want interface{}, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic with %T, got none", want)
		}
		switch want.(type) {
		case *NotFoundError:
			if _, ok := r.(*NotFoundError); !ok {
				t.Fatalf("panicked with %v (%T), want *NotFoundError", r, r)
			}
		case *TagMismatchError:
			if _, ok := r.(*TagMismatchError); !ok {
				t.Fatalf("panicked with %v (%T), want *TagMismatchError", r, r)
			}
		case *ReentrantResyncError:
			if _, ok := r.(*ReentrantResyncError); !ok {
				t.Fatalf("panicked with %v (%T), want *ReentrantResyncError", r, r)
			}
		}
	}()
	fn()
}

func TestRoutePutGetRoundTrip(t *testing.T) {
	m := NewMgr(store.NewMemStore())
	k := key(t, "10.0.0.0/24")
	r := Route{Key: k, Tag: 42, Persistent: true, Metric: 10}

	// Unscoped manager accepts any tag.
	if err := m.IPRouteSet(r); err != nil {
		t.Fatalf("IPRouteSet() error: %v", err)
	}

	got, err := m.IPRoute(k)
	if err != nil {
		t.Fatalf("IPRoute() error: %v", err)
	}
	if got != r {
		t.Errorf("IPRoute() = %+v, want %+v", got, r)
	}
}

func TestRouteGetterPanicsOnMissing(t *testing.T) {
	m := NewMgr(store.NewMemStore())

	expectPanic(t, &NotFoundError{}, func() {
		m.IPRoute(key(t, "10.9.9.0/24"))
	})
}

func TestRouteDelRemovesVias(t *testing.T) {
	m := NewMgr(store.NewMemStore())
	k := key(t, "10.0.0.0/24")

	if err := m.IPRouteSet(NewRoute(k)); err != nil {
		t.Fatal(err)
	}
	if err := m.IPRouteViaSet(HopVia(k, netip.MustParseAddr("10.0.0.1"))); err != nil {
		t.Fatal(err)
	}
	if err := m.IPRouteViaSet(HopVia(k, netip.MustParseAddr("10.0.0.2"))); err != nil {
		t.Fatal(err)
	}

	if err := m.IPRouteDel(k); err != nil {
		t.Fatalf("IPRouteDel() error: %v", err)
	}

	if ok, _ := m.Exists(k); ok {
		t.Error("route still exists after IPRouteDel")
	}
	it := m.ViaIter(k)
	if it.Next() {
		t.Errorf("via %v survived IPRouteDel", it.Via())
	}

	// Idempotent.
	if err := m.IPRouteDel(k); err != nil {
		t.Errorf("second IPRouteDel() error: %v", err)
	}
}

func TestViaDelLeavesRoutePathless(t *testing.T) {
	m := NewMgr(store.NewMemStore())
	k := key(t, "10.0.0.0/24")
	v := HopVia(k, netip.MustParseAddr("10.0.0.1"))

	if err := m.IPRouteSet(NewRoute(k)); err != nil {
		t.Fatal(err)
	}
	if err := m.IPRouteViaSet(v); err != nil {
		t.Fatal(err)
	}
	if err := m.IPRouteViaDel(v); err != nil {
		t.Fatalf("IPRouteViaDel() error: %v", err)
	}

	if ok, _ := m.Exists(k); !ok {
		t.Error("route deleted when its last via was removed; must persist pathless")
	}
	if ok, _ := m.ExistsVia(v); ok {
		t.Error("via still exists after IPRouteViaDel")
	}
}

func TestViaSetValidatesBeforeMutation(t *testing.T) {
	st := store.NewMemStore()
	m := NewMgr(st)
	k := key(t, "10.0.0.0/24")
	if err := m.IPRouteSet(NewRoute(k)); err != nil {
		t.Fatal(err)
	}

	bad := Via{RouteKey: k, Group: "nhg", Intf: intf.MustParse("Ethernet0")}
	err := m.IPRouteViaSet(bad)
	var invalid *InvalidArgumentError
	if !errors.As(err, &invalid) {
		t.Fatalf("IPRouteViaSet(bad) = %v, want *InvalidArgumentError", err)
	}

	// Nothing may have reached the store.
	keys, _ := st.Keys(store.RouteViaTable)
	if len(keys) != 0 {
		t.Errorf("rejected via left records behind: %v", keys)
	}
}

func TestViaSetToMissingRoutePanics(t *testing.T) {
	m := NewMgr(store.NewMemStore())

	expectPanic(t, &NotFoundError{}, func() {
		m.IPRouteViaSet(HopVia(key(t, "10.0.0.0/24"), netip.MustParseAddr("10.0.0.1")))
	})
}

func TestViaSetTagMismatchPanics(t *testing.T) {
	m := NewMgr(store.NewMemStore())
	k := key(t, "10.0.0.0/24")
	if err := m.IPRouteSet(Route{Key: k, Tag: 7}); err != nil {
		t.Fatal(err)
	}

	m.SetTag(9)
	expectPanic(t, &TagMismatchError{}, func() {
		m.IPRouteViaSet(HopVia(k, netip.MustParseAddr("10.0.0.1")))
	})
}

func TestTagScopedReads(t *testing.T) {
	m := NewMgr(store.NewMemStore())
	tagged := Route{Key: key(t, "10.1.0.0/24"), Tag: 7}
	other := Route{Key: key(t, "10.2.0.0/24"), Tag: 9}
	if err := m.IPRouteSet(tagged); err != nil {
		t.Fatal(err)
	}
	if err := m.IPRouteSet(other); err != nil {
		t.Fatal(err)
	}

	m.SetTag(7)

	if ok, _ := m.Exists(tagged.Key); !ok {
		t.Error("in-scope route reads as absent")
	}
	if ok, _ := m.Exists(other.Key); ok {
		t.Error("out-of-scope route visible through scoped existence check")
	}
	expectPanic(t, &NotFoundError{}, func() {
		m.IPRoute(other.Key)
	})
}

func TestIterationIgnoresTagScope(t *testing.T) {
	m := NewMgr(store.NewMemStore())
	if err := m.IPRouteSet(Route{Key: key(t, "10.1.0.0/24"), Tag: 7}); err != nil {
		t.Fatal(err)
	}
	if err := m.IPRouteSet(Route{Key: key(t, "10.2.0.0/24"), Tag: 9}); err != nil {
		t.Fatal(err)
	}

	m.SetTag(7)

	var n int
	for it := m.Iter(); it.Next(); {
		n++
	}
	if n != 2 {
		t.Errorf("scoped manager iterated %d routes, want all 2 (iteration is never tag-filtered)", n)
	}
}

func TestScopedSetWithForeignTagPanics(t *testing.T) {
	m := NewMgr(store.NewMemStore())
	m.SetTag(7)

	expectPanic(t, &TagMismatchError{}, func() {
		m.IPRouteSet(Route{Key: key(t, "10.0.0.0/24"), Tag: 9})
	})
}

func TestScopedDelIgnoresForeignRoutes(t *testing.T) {
	m := NewMgr(store.NewMemStore())
	foreign := Route{Key: key(t, "10.2.0.0/24"), Tag: 9}
	if err := m.IPRouteSet(foreign); err != nil {
		t.Fatal(err)
	}

	m.SetTag(7)
	if err := m.IPRouteDel(foreign.Key); err != nil {
		t.Fatalf("IPRouteDel() error: %v", err)
	}

	m.SetTag(0)
	if ok, _ := m.Exists(foreign.Key); !ok {
		t.Error("scoped delete removed a route of another tag")
	}
}

func TestViaIterYieldsOnlyMatchingRouteKey(t *testing.T) {
	m := NewMgr(store.NewMemStore())
	k1 := key(t, "10.1.0.0/24")
	k2 := key(t, "10.2.0.0/24")
	for _, k := range []Key{k1, k2} {
		if err := m.IPRouteSet(NewRoute(k)); err != nil {
			t.Fatal(err)
		}
		if err := m.IPRouteViaSet(HopVia(k, netip.MustParseAddr("192.168.0.1"))); err != nil {
			t.Fatal(err)
		}
	}

	var got []Via
	for it := m.ViaIter(k1); it.Next(); {
		got = append(got, it.Via())
	}
	if len(got) != 1 || got[0].RouteKey != k1 {
		t.Errorf("ViaIter(k1) = %v, want exactly one via for k1", got)
	}
}
