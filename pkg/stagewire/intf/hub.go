package intf

// hub is the registry of watch subscriptions and the delivery order rules.
//
// Each handler gets one record holding two independent scopes: an "all
// interfaces" flag and a per-ID map. Scopes are soft toggles — disabling
// one leaves the record in place so registration order is stable across
// toggles. A disabled per-ID scope never suppresses an enabled "all"
// scope; narrow subscriptions only add delivery.
type hub struct {
	watches []*watch
}

type watch struct {
	handler Handler
	all     bool
	ids     map[ID]bool
}

// watchFor returns the record for h, appending a new one (in registration
// order) when h has never been seen.
func (hb *hub) watchFor(h Handler) *watch {
	for _, w := range hb.watches {
		if w.handler == h {
			return w
		}
	}
	w := &watch{handler: h, ids: make(map[ID]bool)}
	hb.watches = append(hb.watches, w)
	return w
}

// watchAll toggles delivery of every interface event to h.
func (hb *hub) watchAll(h Handler, enable bool) {
	hb.watchFor(h).all = enable
}

// watchID toggles delivery of events for one identifier to h.
func (hb *hub) watchID(h Handler, id ID, enable bool) {
	hb.watchFor(h).ids[id] = enable
}

// detach removes every scope for h. Delivery is synchronous, so no
// callback can reach h after detach returns.
func (hb *hub) detach(h Handler) {
	for i, w := range hb.watches {
		if w.handler == h {
			hb.watches = append(hb.watches[:i], hb.watches[i+1:]...)
			return
		}
	}
}

// deliver invokes fn once per matching enabled handler, in registration
// order. A handler matching on both scopes is still invoked once.
//
// A callback may detach its own or another handler; delivery walks a
// snapshot of the registration list and re-checks each record against the
// live list before invoking, so a handler detached mid-delivery receives
// nothing further and no handler is invoked twice for one event.
func (hb *hub) deliver(id ID, fn func(Handler)) {
	snap := make([]*watch, len(hb.watches))
	copy(snap, hb.watches)
	for _, w := range snap {
		if !hb.attached(w) {
			continue
		}
		if w.all || w.ids[id] {
			fn(w.handler)
		}
	}
}

func (hb *hub) attached(w *watch) bool {
	for _, cur := range hb.watches {
		if cur == w {
			return true
		}
	}
	return false
}
