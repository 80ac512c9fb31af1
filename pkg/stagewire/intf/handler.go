package intf

// Handler receives change events for interface entries. Implementations
// register through Mgr.WatchAllIntfs and Mgr.WatchIntf; delivery is
// synchronous with the mutation that caused the event and follows
// registration order when several handlers match.
type Handler interface {
	// OnIntfCreate is called when a new interface appears.
	OnIntfCreate(ID)
	// OnIntfDelete is called when an interface has been removed.
	OnIntfDelete(ID)
	// OnOperStatus is called when an interface's operational status changes.
	OnOperStatus(ID, OperStatus)
	// OnAdminEnabled is called after an interface's admin-enabled flag changes.
	OnAdminEnabled(ID, bool)
}

// NopHandler is an embeddable Handler with no-op methods, for handlers
// that care about a subset of the events.
type NopHandler struct{}

func (NopHandler) OnIntfCreate(ID)             {}
func (NopHandler) OnIntfDelete(ID)             {}
func (NopHandler) OnOperStatus(ID, OperStatus) {}
func (NopHandler) OnAdminEnabled(ID, bool)     {}
