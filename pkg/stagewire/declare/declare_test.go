package declare

import (
	"net/netip"
	"testing"

	"github.com/stagewire-net/stagewire/pkg/stagewire/intf"
	"github.com/stagewire-net/stagewire/pkg/stagewire/iproute"
	"github.com/stagewire-net/stagewire/pkg/stagewire/store"
)

const sampleDoc = `
tag: 7
interfaces:
  - name: Ethernet0
    admin: up
    description: uplink to spine1
routes:
  - prefix: 10.0.0.0/24
    vias:
      - nexthop: 10.0.0.1
  - prefix: 192.168.5.0/24
    preference: 3
    metric: 20
    persistent: true
    vias:
      - interface: Null0
      - group: nhg-edge
        mpls_label: 100
`

func seedIntf(t *testing.T, st store.Store, name string) {
	t.Helper()
	err := st.Put(store.IntfTable, name, map[string]string{
		"admin_status": "down",
		"oper_status":  "down",
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestParseAndCompile(t *testing.T) {
	f, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if f.Tag != 7 {
		t.Errorf("Tag = %d, want 7", f.Tag)
	}

	p, err := Compile(f)
	if err != nil {
		t.Fatalf("Compile() error: %v", err)
	}
	routes, vias := p.Routes()
	if routes != 2 || vias != 3 {
		t.Errorf("plan declares %d routes, %d vias; want 2, 3", routes, vias)
	}

	// Unset preference defaults; explicit preference sticks.
	if p.routes[0].Key.Preference != iproute.DefaultPreference {
		t.Errorf("routes[0] preference = %d, want default %d", p.routes[0].Key.Preference, iproute.DefaultPreference)
	}
	if p.routes[1].Key.Preference != 3 {
		t.Errorf("routes[1] preference = %d, want 3", p.routes[1].Key.Preference)
	}
	if !p.routes[1].Persistent || p.routes[1].Metric != 20 {
		t.Errorf("routes[1] = %+v, want persistent with metric 20", p.routes[1])
	}
	for _, r := range p.routes {
		if r.Tag != 7 {
			t.Errorf("route %v compiled with tag %d, want the file tag 7", r.Key, r.Tag)
		}
	}
}

func TestCompileRejectsBadFiles(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"bad interface name", "interfaces:\n  - name: eth0\n"},
		{"bad admin word", "interfaces:\n  - name: Ethernet0\n    admin: enabled\n"},
		{"missing interface name", "interfaces:\n  - admin: up\n"},
		{"bad prefix", "routes:\n  - prefix: 10.0.0.0\n"},
		{"duplicate route", "routes:\n  - prefix: 10.0.0.0/24\n  - prefix: 10.0.0.0/24\n"},
		{"via with two mechanisms", "routes:\n  - prefix: 10.0.0.0/24\n    vias:\n      - nexthop: 10.0.0.1\n        group: nhg\n"},
		{"via with no mechanism", "routes:\n  - prefix: 10.0.0.0/24\n    vias:\n      - mpls_label: 5\n"},
		{"bad nexthop address", "routes:\n  - prefix: 10.0.0.0/24\n    vias:\n      - nexthop: not-an-ip\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := Parse([]byte(tc.doc))
			if err != nil {
				t.Fatalf("Parse() error: %v", err)
			}
			if _, err := Compile(f); err == nil {
				t.Error("Compile() accepted an invalid declaration")
			}
		})
	}
}

func TestApplyConvergesStore(t *testing.T) {
	st := store.NewMemStore()
	seedIntf(t, st, "Ethernet0")

	// A stale route in the same tag partition, and one in another.
	rm := iproute.NewMgr(st)
	stale := iproute.Route{Key: iproute.NewKey(netip.MustParsePrefix("172.16.0.0/16")), Tag: 7}
	foreign := iproute.Route{Key: iproute.NewKey(netip.MustParsePrefix("172.17.0.0/16")), Tag: 9}
	if err := rm.IPRouteSet(stale); err != nil {
		t.Fatal(err)
	}
	if err := rm.IPRouteSet(foreign); err != nil {
		t.Fatal(err)
	}

	f, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatal(err)
	}
	p, err := Compile(f)
	if err != nil {
		t.Fatal(err)
	}

	im, err := intf.NewMgr(st)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Apply(im, rm); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	// Interface attributes landed.
	eth0 := intf.MustParse("Ethernet0")
	if up, _ := im.AdminEnabled(eth0); !up {
		t.Error("Ethernet0 not admin-enabled after apply")
	}
	if descr, _ := im.Description(eth0); descr != "uplink to spine1" {
		t.Errorf("Ethernet0 description = %q", descr)
	}

	// The tag-7 partition is exactly the declared routes; tag 9 survives.
	got := make(map[iproute.Key]iproute.Route)
	for it := rm.Iter(); it.Next(); {
		r := it.Route()
		got[r.Key] = r
	}
	if _, ok := got[stale.Key]; ok {
		t.Error("stale tag-7 route survived apply")
	}
	if _, ok := got[foreign.Key]; !ok {
		t.Error("apply disturbed a route outside its tag")
	}
	if len(got) != 3 {
		t.Errorf("store holds %d routes, want 3: %v", len(got), got)
	}

	declared := iproute.NewKey(netip.MustParsePrefix("10.0.0.0/24"))
	var vias []iproute.Via
	for it := rm.ViaIter(declared); it.Next(); {
		vias = append(vias, it.Via())
	}
	if len(vias) != 1 || vias[0].Hop != netip.MustParseAddr("10.0.0.1") {
		t.Errorf("vias for %v = %v, want one via 10.0.0.1", declared, vias)
	}
}

func TestApplyRejectsUnknownInterfaceUntouched(t *testing.T) {
	st := store.NewMemStore()
	seedIntf(t, st, "Ethernet0")

	f, err := Parse([]byte(`
interfaces:
  - name: Ethernet0
    admin: up
  - name: Ethernet4
    admin: up
`))
	if err != nil {
		t.Fatal(err)
	}
	p, err := Compile(f)
	if err != nil {
		t.Fatal(err)
	}

	im, err := intf.NewMgr(st)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Apply(im, iproute.NewMgr(st)); err == nil {
		t.Fatal("Apply() succeeded with an undeclared interface missing")
	}

	// The existing interface was not half-applied.
	if up, _ := im.AdminEnabled(intf.MustParse("Ethernet0")); up {
		t.Error("apply touched Ethernet0 before failing the presence check")
	}
}
