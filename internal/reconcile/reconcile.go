// Package reconcile merges a client's optimistic order list with server
// confirmations and change feed events into one consistent view.
//
// All operations are pure: a View is never mutated, every operation
// returns a new one. Applying the same event twice, or applying a set of
// events in any order, yields the same final View, which makes the feed's
// at-least-once unordered delivery safe.
package reconcile

import (
	"sort"

	"github.com/campuseats/canteen/internal/models"
	"github.com/google/uuid"
)

// PlaceholderToken marks an optimistic entry whose real pickup token is
// still being assigned by the server.
const PlaceholderToken = "pending assignment"

// Entry is one row of the client's order list
type Entry struct {
	Order models.Order
	// Pending marks an optimistic entry not yet confirmed by the server
	Pending bool
}

// View is the client's local order list
type View struct {
	entries []Entry
}

// NewView returns an empty view
func NewView() View {
	return View{}
}

// Len returns the number of entries in the view
func (v View) Len() int {
	return len(v.entries)
}

// Entries returns the view rows, pending entries first, confirmed orders
// newest first
func (v View) Entries() []Entry {
	out := make([]Entry, len(v.entries))
	copy(out, v.entries)
	return out
}

// Get returns the entry holding the order with the given client ref, if any
func (v View) Get(ref string) (Entry, bool) {
	for _, e := range v.entries {
		if e.Order.ClientRef == ref {
			return e, true
		}
	}
	return Entry{}, false
}

// Submit inserts an optimistic entry for a draft order the client is about
// to send. The draft must carry the idempotency key in ClientRef; its
// token shows as PlaceholderToken until the server assigns the real one.
func (v View) Submit(draft models.Order) View {
	if _, ok := v.Get(draft.ClientRef); ok {
		// the submission is already tracked; resubmitting must not
		// create a second row
		return v
	}

	if draft.TokenNumber == "" {
		draft.TokenNumber = PlaceholderToken
	}
	if draft.Status == "" {
		draft.Status = models.OrderStatusPending
	}

	return v.with(Entry{Order: draft, Pending: true})
}

// Confirm replaces the optimistic entry matched by idempotency key with
// the server-confirmed order. It also serves timeout recovery: an unknown
// outcome is resolved by calling Confirm once the real record is known.
// If a feed event already delivered the order, Confirm degrades to a
// merge and never duplicates the row.
func (v View) Confirm(ref string, confirmed models.Order) View {
	return v.upsert(ref, confirmed)
}

// Fail removes the optimistic entry for a definitively failed submission.
// No ghost order stays behind. Confirmed entries are never removed.
func (v View) Fail(ref string) View {
	out := View{}
	for _, e := range v.entries {
		if e.Pending && e.Order.ClientRef == ref {
			continue
		}
		out.entries = append(out.entries, e)
	}
	return out
}

// Apply merges one change feed event into the view. Inserts and updates
// are handled identically: the snapshot is upserted by order id, adopting
// a matching optimistic entry if one exists.
func (v View) Apply(event models.OrderEvent) View {
	return v.upsert(event.Order.ClientRef, event.Order)
}

func (v View) upsert(ref string, incoming models.Order) View {
	out := View{entries: make([]Entry, 0, len(v.entries)+1)}
	merged := false

	idKnown := false
	for _, e := range v.entries {
		if e.Order.ID == incoming.ID {
			idKnown = true
			break
		}
	}

	for _, e := range v.entries {
		switch {
		case e.Order.ID == incoming.ID:
			// already known by final id, merge in place
			e = Entry{Order: mergeOrders(e.Order, incoming)}
			merged = true
		case e.Pending && ref != "" && e.Order.ClientRef == ref:
			if idKnown {
				// the confirmed order is present already, drop the
				// optimistic duplicate
				continue
			}
			e = Entry{Order: mergeOrders(e.Order, incoming)}
			merged = true
		}
		out.entries = append(out.entries, e)
	}

	if !merged {
		out.entries = append(out.entries, Entry{Order: incoming})
	}

	out.sortEntries()
	return out
}

func (v View) with(e Entry) View {
	out := View{entries: make([]Entry, len(v.entries), len(v.entries)+1)}
	copy(out.entries, v.entries)
	out.entries = append(out.entries, e)
	out.sortEntries()
	return out
}

// sortEntries keeps the row order canonical so that the view is
// independent of event arrival order: pending entries first, then newest
// first, ties broken by id.
func (v *View) sortEntries() {
	sort.SliceStable(v.entries, func(i, j int) bool {
		a, b := v.entries[i], v.entries[j]
		if a.Pending != b.Pending {
			return a.Pending
		}
		if !a.Order.CreatedAt.Equal(b.Order.CreatedAt) {
			return a.Order.CreatedAt.After(b.Order.CreatedAt)
		}
		return a.Order.ID.String() < b.Order.ID.String()
	})
}

// mergeOrders combines a local record with an incoming snapshot of the
// same order. Non-null fields are unioned and status never moves
// backward, so a stale event cannot undo a later state.
func mergeOrders(local, incoming models.Order) models.Order {
	merged := incoming

	if merged.ID == uuid.Nil {
		merged.ID = local.ID
	}
	if merged.ClientRef == "" {
		merged.ClientRef = local.ClientRef
	}
	if merged.TokenNumber == "" || merged.TokenNumber == PlaceholderToken {
		merged.TokenNumber = local.TokenNumber
	}
	if merged.TokenDate == "" {
		merged.TokenDate = local.TokenDate
	}
	if merged.UserID == nil {
		merged.UserID = local.UserID
	}
	if len(merged.Items) == 0 {
		merged.Items = local.Items
	}
	if merged.PaymentMethod == "" {
		merged.PaymentMethod = local.PaymentMethod
	}
	if merged.CreatedAt.IsZero() {
		merged.CreatedAt = local.CreatedAt
	}

	if models.StatusRank(local.Status) > models.StatusRank(merged.Status) {
		// stale snapshot, keep the later state
		merged.Status = local.Status
		merged.CompletedAt = local.CompletedAt
	}
	if local.CompletedAt != nil {
		// completed_at is stamped once and never changes afterwards
		merged.CompletedAt = local.CompletedAt
	}

	return merged
}
