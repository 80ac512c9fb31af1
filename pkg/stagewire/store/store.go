// Package store defines the entry store adapter: the boundary to the
// external system-of-record holding interface and route records.
//
// Records are flat field maps grouped into tables, mirroring how network
// state databases (SONiC CONFIG_DB/APPL_DB and similar) lay out entries as
// Redis hashes keyed "TABLE|key". The store is shared with other, unrelated
// agents; nothing here provides cross-process isolation.
package store

// Tables holding stagewire-managed entries.
const (
	IntfTable     = "INTF_TABLE"
	RouteTable    = "ROUTE_TABLE"
	RouteViaTable = "ROUTE_VIA_TABLE"
)

// KeySeparator joins table and entry key in the underlying store.
const KeySeparator = "|"

// Change is one element of a batched write: Fields nil means delete,
// otherwise insert-or-update.
type Change struct {
	Table  string
	Key    string
	Fields map[string]string
}

// Store is the entry store adapter consumed by the managers.
//
// Get reports absence via the second return value; a present record may
// still have an empty field map. Keys enumerates the current keys of a
// table and always reflects the real, non-staged store. Apply issues a
// batch of deletes and writes as one tight, uninterrupted sequence; see
// the resync engine for what that does and does not guarantee.
type Store interface {
	Get(table, key string) (map[string]string, bool, error)
	Put(table, key string, fields map[string]string) error
	Delete(table, key string) error
	Keys(table string) ([]string, error)
	Apply(changes []Change) error
	Close() error
}
