package iproute

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/stagewire-net/stagewire/pkg/stagewire/intf"
)

// Store encoding. Route records live at "ROUTE_TABLE|<prefix>|<pref>" with
// payload fields; via records live at
// "ROUTE_VIA_TABLE|<prefix>|<pref>|<mech>|<value>[|label|<n>]" so that via
// identity is fully carried by the key. Both record kinds carry a "tag"
// field, which is what the resync engine filters deletions on.

func keyString(k Key) string {
	return k.Prefix.String() + "|" + strconv.Itoa(int(k.Preference))
}

func parseKey(prefix, pref string) (Key, error) {
	p, err := netip.ParsePrefix(prefix)
	if err != nil {
		return Key{}, fmt.Errorf("route prefix %q: %w", prefix, err)
	}
	n, err := strconv.ParseUint(pref, 10, 8)
	if err != nil {
		return Key{}, fmt.Errorf("route preference %q: %w", pref, err)
	}
	return Key{Prefix: p.Masked(), Preference: uint8(n)}, nil
}

func routeFields(r Route) map[string]string {
	return map[string]string{
		"tag":        strconv.FormatUint(uint64(r.Tag), 10),
		"persistent": strconv.FormatBool(r.Persistent),
		"metric":     strconv.FormatUint(uint64(r.Metric), 10),
	}
}

func decodeRoute(key string, fields map[string]string) (Route, error) {
	parts := strings.Split(key, "|")
	if len(parts) != 2 {
		return Route{}, fmt.Errorf("route key %q: want <prefix>|<pref>", key)
	}
	k, err := parseKey(parts[0], parts[1])
	if err != nil {
		return Route{}, err
	}

	r := Route{Key: k}
	if tag, err := strconv.ParseUint(fields["tag"], 10, 32); err == nil {
		r.Tag = uint32(tag)
	}
	if metric, err := strconv.ParseUint(fields["metric"], 10, 32); err == nil {
		r.Metric = uint32(metric)
	}
	r.Persistent = fields["persistent"] == "true"
	return r, nil
}

const (
	mechHop   = "hop"
	mechIntf  = "intf"
	mechGroup = "group"
)

func viaKeyString(v Via) string {
	var b strings.Builder
	b.WriteString(keyString(v.RouteKey))
	b.WriteByte('|')
	switch {
	case v.Hop.IsValid():
		b.WriteString(mechHop + "|" + v.Hop.String())
	case v.Intf.IsSet():
		b.WriteString(mechIntf + "|" + v.Intf.String())
	default:
		b.WriteString(mechGroup + "|" + v.Group)
	}
	if v.MPLSLabel != 0 {
		b.WriteString("|label|" + strconv.FormatUint(uint64(v.MPLSLabel), 10))
	}
	return b.String()
}

// viaFields carries the route's tag for resync filtering plus readable
// copies of the nexthop data for humans inspecting the store.
func viaFields(v Via, tag uint32) map[string]string {
	fields := map[string]string{
		"tag": strconv.FormatUint(uint64(tag), 10),
	}
	switch {
	case v.Hop.IsValid():
		fields["nexthop"] = v.Hop.String()
	case v.Intf.IsSet():
		fields["ifname"] = v.Intf.String()
	default:
		fields["nexthop_group"] = v.Group
	}
	if v.MPLSLabel != 0 {
		fields["mpls_label"] = strconv.FormatUint(uint64(v.MPLSLabel), 10)
	}
	return fields
}

func decodeVia(key string, fields map[string]string) (Via, uint32, error) {
	parts := strings.Split(key, "|")
	if len(parts) != 4 && len(parts) != 6 {
		return Via{}, 0, fmt.Errorf("via key %q: want <prefix>|<pref>|<mech>|<value>[|label|<n>]", key)
	}
	k, err := parseKey(parts[0], parts[1])
	if err != nil {
		return Via{}, 0, err
	}

	v := Via{RouteKey: k}
	switch parts[2] {
	case mechHop:
		hop, err := netip.ParseAddr(parts[3])
		if err != nil {
			return Via{}, 0, fmt.Errorf("via nexthop %q: %w", parts[3], err)
		}
		v.Hop = hop
	case mechIntf:
		id, err := intf.Parse(parts[3])
		if err != nil {
			return Via{}, 0, fmt.Errorf("via interface: %w", err)
		}
		v.Intf = id
	case mechGroup:
		if parts[3] == "" {
			return Via{}, 0, fmt.Errorf("via key %q: empty nexthop group", key)
		}
		v.Group = parts[3]
	default:
		return Via{}, 0, fmt.Errorf("via key %q: unknown mechanism %q", key, parts[2])
	}

	if len(parts) == 6 {
		if parts[4] != "label" {
			return Via{}, 0, fmt.Errorf("via key %q: unexpected suffix %q", key, parts[4])
		}
		label, err := strconv.ParseUint(parts[5], 10, 32)
		if err != nil || label > MaxMPLSLabel {
			return Via{}, 0, fmt.Errorf("via key %q: bad MPLS label", key)
		}
		v.MPLSLabel = uint32(label)
	}

	var tag uint32
	if n, err := strconv.ParseUint(fields["tag"], 10, 32); err == nil {
		tag = uint32(n)
	}
	return v, tag, nil
}
