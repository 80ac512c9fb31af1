// Package declare converges the store onto a YAML-declared state: the
// file names one tag partition and the interfaces and routes it should
// hold, and Apply replaces that partition in a single resync pass.
package declare

import (
	"fmt"
	"net/netip"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stagewire-net/stagewire/pkg/stagewire/intf"
	"github.com/stagewire-net/stagewire/pkg/stagewire/iproute"
)

// File is the top-level declaration document.
type File struct {
	Tag        uint32      `yaml:"tag"`
	Interfaces []IntfDecl  `yaml:"interfaces,omitempty"`
	Routes     []RouteDecl `yaml:"routes,omitempty"`
}

// IntfDecl declares attributes on an existing interface. Interfaces are
// owned by the platform agent; a declaration for an unknown interface is
// a file error, never a create.
type IntfDecl struct {
	Name        string `yaml:"name"`
	Admin       string `yaml:"admin,omitempty"` // "up", "down", or empty to leave alone
	Description string `yaml:"description,omitempty"`
}

// RouteDecl declares one route and its nexthops.
type RouteDecl struct {
	Prefix     string    `yaml:"prefix"`
	Preference *uint8    `yaml:"preference,omitempty"` // nil means DefaultPreference
	Metric     uint32    `yaml:"metric,omitempty"`
	Persistent bool      `yaml:"persistent,omitempty"`
	Vias       []ViaDecl `yaml:"vias,omitempty"`
}

// ViaDecl declares a single nexthop. Exactly one of Nexthop, Interface,
// Group must be set.
type ViaDecl struct {
	Nexthop   string `yaml:"nexthop,omitempty"`
	Interface string `yaml:"interface,omitempty"`
	Group     string `yaml:"group,omitempty"`
	MPLSLabel uint32 `yaml:"mpls_label,omitempty"`
}

// Load reads and parses a declaration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading declaration file: %w", err)
	}
	return Parse(data)
}

// Parse parses declaration YAML.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing declaration YAML: %w", err)
	}
	return &f, nil
}

// intfChange is a compiled interface attribute update.
type intfChange struct {
	id       intf.ID
	admin    string // "up", "down", or ""
	describe string
}

// Plan is a fully validated declaration, ready to apply. Compilation
// resolves every name and prefix up front so a bad file is rejected
// before anything reaches the store.
type Plan struct {
	tag    uint32
	intfs  []intfChange
	routes []iproute.Route
	vias   []iproute.Via
}

// Compile validates f and resolves it into store-ready values.
func Compile(f *File) (*Plan, error) {
	p := &Plan{tag: f.Tag}

	for i, d := range f.Interfaces {
		if d.Name == "" {
			return nil, fmt.Errorf("interfaces[%d]: name is required", i)
		}
		id, err := intf.Parse(d.Name)
		if err != nil {
			return nil, fmt.Errorf("interfaces[%d]: %w", i, err)
		}
		switch d.Admin {
		case "", "up", "down":
		default:
			return nil, fmt.Errorf("interfaces[%d] (%s): admin must be \"up\" or \"down\", got %q", i, d.Name, d.Admin)
		}
		p.intfs = append(p.intfs, intfChange{id: id, admin: d.Admin, describe: d.Description})
	}

	seen := make(map[iproute.Key]bool)
	for i, d := range f.Routes {
		prefix, err := netip.ParsePrefix(d.Prefix)
		if err != nil {
			return nil, fmt.Errorf("routes[%d]: invalid prefix %q: %w", i, d.Prefix, err)
		}
		key := iproute.NewKey(prefix)
		if d.Preference != nil {
			key.Preference = *d.Preference
		}
		if seen[key] {
			return nil, fmt.Errorf("routes[%d]: duplicate route %s preference %d", i, d.Prefix, key.Preference)
		}
		seen[key] = true

		p.routes = append(p.routes, iproute.Route{
			Key:        key,
			Tag:        f.Tag,
			Metric:     d.Metric,
			Persistent: d.Persistent,
		})

		for j, vd := range d.Vias {
			via, err := compileVia(key, vd)
			if err != nil {
				return nil, fmt.Errorf("routes[%d].vias[%d]: %w", i, j, err)
			}
			p.vias = append(p.vias, via)
		}
	}

	return p, nil
}

func compileVia(key iproute.Key, d ViaDecl) (iproute.Via, error) {
	v := iproute.Via{RouteKey: key, Group: d.Group, MPLSLabel: d.MPLSLabel}
	if d.Nexthop != "" {
		hop, err := netip.ParseAddr(d.Nexthop)
		if err != nil {
			return iproute.Via{}, fmt.Errorf("invalid nexthop %q: %w", d.Nexthop, err)
		}
		v.Hop = hop
	}
	if d.Interface != "" {
		id, err := intf.Parse(d.Interface)
		if err != nil {
			return iproute.Via{}, err
		}
		v.Intf = id
	}
	if err := v.Validate(); err != nil {
		return iproute.Via{}, err
	}
	return v, nil
}

// Routes reports how many routes and vias the plan declares.
func (p *Plan) Routes() (routes, vias int) {
	return len(p.routes), len(p.vias)
}

// Apply converges the store onto the plan: interface attributes are
// updated in place, and the plan's tag partition of the route tables is
// replaced with exactly the declared routes in one resync.
//
// Every declared interface must already exist; absence is reported as an
// error before any interface attribute is touched.
func (p *Plan) Apply(im *intf.Mgr, rm *iproute.Mgr) error {
	for _, c := range p.intfs {
		ok, err := im.Exists(c.id)
		if err != nil {
			return fmt.Errorf("checking interface %s: %w", c.id, err)
		}
		if !ok {
			return fmt.Errorf("interface %s is not present on the device", c.id)
		}
	}

	for _, c := range p.intfs {
		if c.admin != "" {
			if err := im.SetAdminEnabled(c.id, c.admin == "up"); err != nil {
				return fmt.Errorf("setting admin state on %s: %w", c.id, err)
			}
		}
		if c.describe != "" {
			if err := im.SetDescription(c.id, c.describe); err != nil {
				return fmt.Errorf("setting description on %s: %w", c.id, err)
			}
		}
	}

	rm.SetTag(p.tag)
	rm.ResyncInit()
	for _, r := range p.routes {
		if err := rm.IPRouteSet(r); err != nil {
			return fmt.Errorf("declaring route %s: %w", r.Key.Prefix, err)
		}
	}
	for _, v := range p.vias {
		if err := rm.IPRouteViaSet(v); err != nil {
			return fmt.Errorf("declaring via for %s: %w", v.RouteKey.Prefix, err)
		}
	}
	return rm.ResyncComplete()
}
