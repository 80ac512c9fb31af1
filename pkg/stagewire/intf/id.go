// Package intf implements the interface manager: the interface identifier
// model, attribute accessors over the entry store, and the change
// notification hub that delivers interface events to registered handlers.
package intf

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Type classifies an interface identifier.
type Type uint8

const (
	TypeNull Type = iota // the unset identifier
	TypeOther
	TypeEth
	TypeVlan
	TypeManagement
	TypeLoopback
	TypeLag
	TypeNull0
	TypeCPU
)

// String returns the lowercase type name.
func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeOther:
		return "other"
	case TypeEth:
		return "ethernet"
	case TypeVlan:
		return "vlan"
	case TypeManagement:
		return "management"
	case TypeLoopback:
		return "loopback"
	case TypeLag:
		return "lag"
	case TypeNull0:
		return "null0"
	case TypeCPU:
		return "cpu"
	}
	return "unknown"
}

// ID uniquely identifies an interface of any type. It is an opaque 64-bit
// encoding of the interface type and up to three numeric name components
// ("Ethernet3/1" has components 3 and 1). The zero value is the
// distinguished "no interface" sentinel: it is the only ID for which
// IsSet reports false, and it compares unequal to every real identifier.
//
// IDs are immutable, totally ordered by their numeric value, and usable
// as map keys.
type ID uint64

// Encoding layout, high to low:
//
//	bits 56..63  type
//	bits 48..51  component count (0..3)
//	bits 32..47  component 0
//	bits 16..31  component 1
//	bits  0..15  component 2
const (
	typeShift  = 56
	countShift = 48
	maxComps   = 3
	compBits   = 16
)

// MalformedNameError reports an interface name that does not match any
// recognized interface-name grammar.
type MalformedNameError struct {
	Name   string
	Reason string
}

func (e *MalformedNameError) Error() string {
	return fmt.Sprintf("malformed interface name %q: %s", e.Name, e.Reason)
}

var nameRegexp = regexp.MustCompile(`^([A-Za-z]+?)(\d+(?:/\d+)*)$`)

var nameTypes = map[string]Type{
	"Ethernet":    TypeEth,
	"Vlan":        TypeVlan,
	"Management":  TypeManagement,
	"Loopback":    TypeLoopback,
	"PortChannel": TypeLag,
	"Null":        TypeNull0,
}

var typeNames = map[Type]string{
	TypeEth:        "Ethernet",
	TypeVlan:       "Vlan",
	TypeManagement: "Management",
	TypeLoopback:   "Loopback",
	TypeLag:        "PortChannel",
	TypeNull0:      "Null",
}

// Parse constructs an ID from a well-formed interface name such as
// "Ethernet3/1", "Management1", "Vlan100", "PortChannel100", "Null0" or
// "CPU". Names are canonical: no leading zeros, '/'-separated numeric
// components. Unrecognized names fail with *MalformedNameError.
func Parse(name string) (ID, error) {
	if name == "CPU" {
		return makeID(TypeCPU, nil), nil
	}

	m := nameRegexp.FindStringSubmatch(name)
	if m == nil {
		return 0, &MalformedNameError{Name: name, Reason: "want <type><number>[/<number>...]"}
	}
	typ, ok := nameTypes[m[1]]
	if !ok {
		return 0, &MalformedNameError{Name: name, Reason: fmt.Sprintf("unknown interface type %q", m[1])}
	}

	parts := strings.Split(m[2], "/")
	if len(parts) > maxComps {
		return 0, &MalformedNameError{Name: name, Reason: "too many name components"}
	}
	if typ != TypeEth && len(parts) != 1 {
		return 0, &MalformedNameError{Name: name, Reason: "type takes a single number"}
	}

	comps := make([]uint16, len(parts))
	for i, p := range parts {
		if len(p) > 1 && p[0] == '0' {
			return 0, &MalformedNameError{Name: name, Reason: "leading zero in component"}
		}
		n, err := strconv.ParseUint(p, 10, compBits)
		if err != nil {
			return 0, &MalformedNameError{Name: name, Reason: "component out of range"}
		}
		comps[i] = uint16(n)
	}

	switch typ {
	case TypeNull0:
		if comps[0] != 0 {
			return 0, &MalformedNameError{Name: name, Reason: "only Null0 is recognized"}
		}
	case TypeVlan:
		if comps[0] < 1 || comps[0] > 4094 {
			return 0, &MalformedNameError{Name: name, Reason: "VLAN id out of range 1-4094"}
		}
	}

	return makeID(typ, comps), nil
}

// MustParse is Parse for names known to be well-formed; it panics otherwise.
func MustParse(name string) ID {
	id, err := Parse(name)
	if err != nil {
		panic(err)
	}
	return id
}

func makeID(typ Type, comps []uint16) ID {
	v := uint64(typ)<<typeShift | uint64(len(comps))<<countShift
	for i, c := range comps {
		v |= uint64(c) << (compBits * (maxComps - 1 - i))
	}
	return ID(v)
}

// IsSet reports whether the ID identifies a real interface. Only the zero
// ID reports false.
func (id ID) IsSet() bool {
	return id != 0
}

// Type returns the interface's type in O(1) from the encoded value.
func (id ID) Type() Type {
	return Type(id >> typeShift)
}

// IsNull0 reports whether the ID is the reserved Null0 discard interface.
func (id ID) IsNull0() bool {
	return id.Type() == TypeNull0
}

func (id ID) components() []uint16 {
	n := int(id>>countShift) & 0xf
	comps := make([]uint16, 0, n)
	for i := 0; i < n; i++ {
		comps = append(comps, uint16(id>>(compBits*(maxComps-1-i))))
	}
	return comps
}

// String formats the ID back to its canonical name ("Ethernet3/1").
// The unset ID formats as the empty string.
func (id ID) String() string {
	if !id.IsSet() {
		return ""
	}
	if id.Type() == TypeCPU {
		return "CPU"
	}
	prefix, ok := typeNames[id.Type()]
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString(prefix)
	for i, c := range id.components() {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(strconv.FormatUint(uint64(c), 10))
	}
	return b.String()
}

// OperStatus is the operational status of an interface.
type OperStatus uint8

const (
	OperNull OperStatus = iota // status unknown or not reported
	OperUp
	OperDown
)

// String returns the status as stored in the oper_status field.
func (s OperStatus) String() string {
	switch s {
	case OperUp:
		return "up"
	case OperDown:
		return "down"
	}
	return "unknown"
}

func operStatusOf(field string) OperStatus {
	switch field {
	case "up":
		return OperUp
	case "down":
		return OperDown
	}
	return OperNull
}
