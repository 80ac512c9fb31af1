// Package iproute implements the IP static route manager: route and via
// value types, tag-scoped CRUD against the entry store, and the staged
// resync engine that converges a tag partition to a declared set.
package iproute

import (
	"net/netip"
	"strings"

	"github.com/stagewire-net/stagewire/pkg/stagewire/intf"
	"github.com/stagewire-net/stagewire/pkg/stagewire/store"
)

// DefaultPreference is the route preference used when none is given.
const DefaultPreference = 1

// MaxMPLSLabel is the largest 20-bit MPLS label value.
const MaxMPLSLabel = 1<<20 - 1

// Key identifies a route: an IP v4/v6 prefix plus a preference used for
// tie-breaking among routes to the same prefix. Metric is not part of key
// identity; it is mutable payload on the Route. Keys are value types with
// field-wise equality, usable as map keys.
type Key struct {
	Prefix     netip.Prefix
	Preference uint8
}

// NewKey builds a route key with the default preference. The prefix is
// canonicalized to its network address, so "10.0.0.1/24" and
// "10.0.0.0/24" form the same key.
func NewKey(prefix netip.Prefix) Key {
	return Key{Prefix: prefix.Masked(), Preference: DefaultPreference}
}

// Route is an IP static route record. Vias are stored separately and
// associated by Key; a Route may exist with zero vias (configured but
// pathless).
type Route struct {
	Key Key

	// Tag is a caller-chosen partition id; 0 means untagged. Managers
	// scoped to a non-zero tag only touch records of that tag.
	Tag uint32

	// Persistent routes survive config lifecycle; ephemeral ones do not.
	Persistent bool

	Metric uint32
}

// NewRoute builds a route for the given key with default payload.
func NewRoute(key Key) Route {
	return Route{Key: key}
}

// Via describes one nexthop mechanism for a route: a nexthop IP address,
// an egress interface (Null0 marks a discard route), or a named
// nexthop-group indirection. Exactly one of the three must be set; an
// MPLS label to push is optional. A route key may have zero, one, or many
// vias (ECMP).
//
// Via is comparable; the full value is its identity.
type Via struct {
	RouteKey Key

	Hop   netip.Addr // nexthop IP address
	Intf  intf.ID    // egress interface
	Group string     // nexthop-group name

	MPLSLabel uint32 // 0 = no label
}

// HopVia builds a via forwarding to a nexthop address.
func HopVia(key Key, hop netip.Addr) Via {
	return Via{RouteKey: key, Hop: hop}
}

// IntfVia builds a via forwarding out an interface. Use the Null0
// interface for a drop route.
func IntfVia(key Key, id intf.ID) Via {
	return Via{RouteKey: key, Intf: id}
}

// GroupVia builds a via indirecting through a named nexthop group.
func GroupVia(key Key, group string) Via {
	return Via{RouteKey: key, Group: group}
}

// WithLabel returns a copy of the via that pushes the given MPLS label.
func (v Via) WithLabel(label uint32) Via {
	v.MPLSLabel = label
	return v
}

// IsDrop reports whether the via discards traffic (egress Null0).
func (v Via) IsDrop() bool {
	return v.Intf.IsNull0()
}

// Validate checks the via before any store mutation. Exactly one nexthop
// mechanism must be set; in particular a nexthop-group via must leave the
// address and interface at their zero values.
func (v Via) Validate() error {
	if !v.RouteKey.Prefix.IsValid() {
		return &InvalidArgumentError{Reason: "via has no route key prefix"}
	}

	set := 0
	if v.Hop.IsValid() {
		set++
	}
	if v.Intf.IsSet() {
		set++
	}
	if v.Group != "" {
		set++
	}
	switch {
	case set == 0:
		return &InvalidArgumentError{Reason: "via has no nexthop address, interface or group"}
	case set > 1:
		return &InvalidArgumentError{Reason: "via nexthop mechanisms are mutually exclusive"}
	}

	// Group names become part of the store key.
	if strings.Contains(v.Group, store.KeySeparator) {
		return &InvalidArgumentError{Reason: "nexthop group name must not contain " + store.KeySeparator}
	}

	if v.MPLSLabel > MaxMPLSLabel {
		return &InvalidArgumentError{Reason: "MPLS label out of range"}
	}
	return nil
}
