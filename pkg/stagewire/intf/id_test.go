package intf

import (
	"errors"
	"testing"
)

func TestParseRoundTrip(t *testing.T) {
	names := []string{
		"Ethernet0",
		"Ethernet3/1",
		"Ethernet1/2/3",
		"Vlan100",
		"Management1",
		"Loopback0",
		"PortChannel100",
		"Null0",
		"CPU",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			id, err := Parse(name)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", name, err)
			}
			if !id.IsSet() {
				t.Errorf("Parse(%q).IsSet() = false, want true", name)
			}
			if got := id.String(); got != name {
				t.Errorf("String() = %q, want %q", got, name)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	names := []string{
		"",
		"Ethernet",       // no number
		"ethernet0",      // wrong case
		"Ethernet07",     // leading zero
		"Ethernet1/2/3/4",// too many components
		"Vlan0",          // out of VLAN range
		"Vlan4095",       // out of VLAN range
		"Vlan1/2",        // single component only
		"Null1",          // only Null0 exists
		"Bridge0",        // unknown type
		"CPU0",           // CPU takes no number
		"Ethernet99999",  // component overflow
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(name)
			var malformed *MalformedNameError
			if !errors.As(err, &malformed) {
				t.Errorf("Parse(%q) error = %v, want *MalformedNameError", name, err)
			}
		})
	}
}

func TestZeroID(t *testing.T) {
	var zero ID
	if zero.IsSet() {
		t.Error("zero ID reports IsSet")
	}
	if zero.Type() != TypeNull {
		t.Errorf("zero ID type = %v, want TypeNull", zero.Type())
	}
	if zero.String() != "" {
		t.Errorf("zero ID String() = %q, want empty", zero.String())
	}

	eth := MustParse("Ethernet0")
	if zero == eth {
		t.Error("zero ID compares equal to a real identifier")
	}
}

func TestTypeAndNull0(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		isNull0 bool
	}{
		{"Ethernet3/1", TypeEth, false},
		{"Vlan200", TypeVlan, false},
		{"Management1", TypeManagement, false},
		{"Loopback0", TypeLoopback, false},
		{"PortChannel5", TypeLag, false},
		{"Null0", TypeNull0, true},
		{"CPU", TypeCPU, false},
	}
	for _, tt := range tests {
		id := MustParse(tt.name)
		if id.Type() != tt.typ {
			t.Errorf("%s: Type() = %v, want %v", tt.name, id.Type(), tt.typ)
		}
		if id.IsNull0() != tt.isNull0 {
			t.Errorf("%s: IsNull0() = %v, want %v", tt.name, id.IsNull0(), tt.isNull0)
		}
	}
}

func TestIDOrdering(t *testing.T) {
	// Same type orders by components; distinct IDs never collide.
	a := MustParse("Ethernet3/1")
	b := MustParse("Ethernet3/2")
	if !(a < b) {
		t.Errorf("Ethernet3/1 should order before Ethernet3/2")
	}

	seen := map[ID]string{}
	for _, name := range []string{"Ethernet1", "Ethernet1/1", "Vlan1", "Management1", "Loopback1", "PortChannel1"} {
		id := MustParse(name)
		if prev, dup := seen[id]; dup {
			t.Errorf("%s and %s encode to the same ID", prev, name)
		}
		seen[id] = name
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse on malformed name did not panic")
		}
	}()
	MustParse("bogus")
}
