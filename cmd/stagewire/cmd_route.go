package main

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/stagewire-net/stagewire/pkg/cli"
	"github.com/stagewire-net/stagewire/pkg/stagewire/intf"
	"github.com/stagewire-net/stagewire/pkg/stagewire/iproute"
)

var (
	routePref       uint8
	routeMetric     uint32
	routePersistent bool

	viaNexthop string
	viaIntf    string
	viaGroup   string
	viaLabel   uint32
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Manage static routes",
	Long: `Manage static routes in the entry store.

Writes are scoped by --tag: a non-zero tag only touches routes carrying
that tag, and "route set" stamps it on the route. Listing always shows
every tag.

Examples:
  stagewire route list
  stagewire route set 10.0.0.0/24 --tag 7
  stagewire route via add 10.0.0.0/24 --nexthop 10.0.0.1 --tag 7
  stagewire route via add 10.0.0.0/24 --interface Null0
  stagewire route del 10.0.0.0/24 --tag 7`,
}

// parseRouteKey resolves a "prefix" or "prefix,preference" argument.
func parseRouteKey(arg string) (iproute.Key, error) {
	prefix, pref := arg, ""
	for i := range arg {
		if arg[i] == ',' {
			prefix, pref = arg[:i], arg[i+1:]
			break
		}
	}

	p, err := netip.ParsePrefix(prefix)
	if err != nil {
		return iproute.Key{}, fmt.Errorf("invalid prefix %q: %w", prefix, err)
	}
	k := iproute.NewKey(p)
	if pref != "" {
		n, err := strconv.ParseUint(pref, 10, 8)
		if err != nil {
			return iproute.Key{}, fmt.Errorf("invalid preference %q: %w", pref, err)
		}
		k.Preference = uint8(n)
	} else if routePref != 0 {
		k.Preference = routePref
	}
	return k, nil
}

func buildVia(k iproute.Key) (iproute.Via, error) {
	v := iproute.Via{RouteKey: k, Group: viaGroup, MPLSLabel: viaLabel}
	if viaNexthop != "" {
		hop, err := netip.ParseAddr(viaNexthop)
		if err != nil {
			return iproute.Via{}, fmt.Errorf("invalid nexthop %q: %w", viaNexthop, err)
		}
		v.Hop = hop
	}
	if viaIntf != "" {
		id, err := intf.Parse(viaIntf)
		if err != nil {
			return iproute.Via{}, err
		}
		v.Intf = id
	}
	return v, nil
}

type routeRecord struct {
	Prefix     string      `json:"prefix"`
	Preference uint8       `json:"preference"`
	Tag        uint32      `json:"tag"`
	Metric     uint32      `json:"metric"`
	Persistent bool        `json:"persistent"`
	Vias       []viaRecord `json:"vias,omitempty"`
}

type viaRecord struct {
	Nexthop   string `json:"nexthop,omitempty"`
	Interface string `json:"interface,omitempty"`
	Group     string `json:"group,omitempty"`
	MPLSLabel uint32 `json:"mpls_label,omitempty"`
}

func viaRecordOf(v iproute.Via) viaRecord {
	rec := viaRecord{Group: v.Group, MPLSLabel: v.MPLSLabel}
	if v.Hop.IsValid() {
		rec.Nexthop = v.Hop.String()
	}
	if v.Intf.IsSet() {
		rec.Interface = v.Intf.String()
	}
	return rec
}

func (r viaRecord) String() string {
	var s string
	switch {
	case r.Nexthop != "":
		s = r.Nexthop
	case r.Interface != "":
		s = r.Interface
	default:
		s = "group:" + r.Group
	}
	if r.MPLSLabel != 0 {
		s += fmt.Sprintf(" label %d", r.MPLSLabel)
	}
	return s
}

var routeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all routes (every tag)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func() error {
			m, st, err := openRouteMgr()
			if err != nil {
				return err
			}
			defer st.Close()

			var records []routeRecord
			it := m.Iter()
			for it.Next() {
				r := it.Route()
				rec := routeRecord{
					Prefix:     r.Key.Prefix.String(),
					Preference: r.Key.Preference,
					Tag:        r.Tag,
					Metric:     r.Metric,
					Persistent: r.Persistent,
				}
				vit := m.ViaIter(r.Key)
				for vit.Next() {
					rec.Vias = append(rec.Vias, viaRecordOf(vit.Via()))
				}
				if err := vit.Err(); err != nil {
					return err
				}
				records = append(records, rec)
			}
			if err := it.Err(); err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(records)
			}
			if len(records) == 0 {
				fmt.Println("No routes found")
				return nil
			}

			t := cli.NewTable("PREFIX", "PREF", "TAG", "METRIC", "VIA")
			for _, rec := range records {
				via := cli.Dim("(no path)")
				if len(rec.Vias) > 0 {
					via = rec.Vias[0].String()
				}
				t.Row(rec.Prefix, strconv.Itoa(int(rec.Preference)), strconv.Itoa(int(rec.Tag)),
					strconv.Itoa(int(rec.Metric)), via)
				for i := 1; i < len(rec.Vias); i++ {
					t.Row("", "", "", "", rec.Vias[i].String())
				}
			}
			t.Flush()
			return nil
		})
	},
}

var routeSetCmd = &cobra.Command{
	Use:   "set <prefix>[,<preference>]",
	Short: "Create or update a route",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func() error {
			k, err := parseRouteKey(args[0])
			if err != nil {
				return err
			}

			m, st, err := openRouteMgr()
			if err != nil {
				return err
			}
			defer st.Close()

			r := iproute.Route{Key: k, Tag: tagFlag, Metric: routeMetric, Persistent: routePersistent}
			if err := m.IPRouteSet(r); err != nil {
				return err
			}

			// Convenience: --nexthop/--interface/--group on "route set"
			// declares the first via in the same command.
			if viaNexthop != "" || viaIntf != "" || viaGroup != "" {
				v, err := buildVia(k)
				if err != nil {
					return err
				}
				if err := m.IPRouteViaSet(v); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var routeDelCmd = &cobra.Command{
	Use:   "del <prefix>[,<preference>]",
	Short: "Delete a route and its vias",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func() error {
			k, err := parseRouteKey(args[0])
			if err != nil {
				return err
			}

			m, st, err := openRouteMgr()
			if err != nil {
				return err
			}
			defer st.Close()

			return m.IPRouteDel(k)
		})
	},
}

var routeViaCmd = &cobra.Command{
	Use:   "via",
	Short: "Manage route nexthops",
}

var routeViaAddCmd = &cobra.Command{
	Use:   "add <prefix>[,<preference>]",
	Short: "Add a nexthop to an existing route",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func() error {
			k, err := parseRouteKey(args[0])
			if err != nil {
				return err
			}
			v, err := buildVia(k)
			if err != nil {
				return err
			}

			m, st, err := openRouteMgr()
			if err != nil {
				return err
			}
			defer st.Close()

			ok, err := m.Exists(k)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("route %s preference %d not found", k.Prefix, k.Preference)
			}
			return m.IPRouteViaSet(v)
		})
	},
}

var routeViaDelCmd = &cobra.Command{
	Use:   "del <prefix>[,<preference>]",
	Short: "Remove a nexthop from a route",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(func() error {
			k, err := parseRouteKey(args[0])
			if err != nil {
				return err
			}
			v, err := buildVia(k)
			if err != nil {
				return err
			}

			m, st, err := openRouteMgr()
			if err != nil {
				return err
			}
			defer st.Close()

			return m.IPRouteViaDel(v)
		})
	},
}

func addViaFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&viaNexthop, "nexthop", "", "Nexthop IP address")
	cmd.Flags().StringVar(&viaIntf, "interface", "", "Egress interface (Null0 drops)")
	cmd.Flags().StringVar(&viaGroup, "group", "", "Nexthop group name")
	cmd.Flags().Uint32Var(&viaLabel, "label", 0, "MPLS label to push")
}

func init() {
	routeSetCmd.Flags().Uint8Var(&routePref, "pref", 0, "Route preference (default 1)")
	routeSetCmd.Flags().Uint32Var(&routeMetric, "metric", 0, "Route metric")
	routeSetCmd.Flags().BoolVar(&routePersistent, "persistent", false, "Survive agent restart")
	addViaFlags(routeSetCmd)
	addViaFlags(routeViaAddCmd)
	addViaFlags(routeViaDelCmd)

	routeViaCmd.AddCommand(routeViaAddCmd, routeViaDelCmd)
	routeCmd.AddCommand(routeListCmd, routeSetCmd, routeDelCmd, routeViaCmd)
}
