package dialog

import (
	"context"

	"github.com/mansourkira/evoluflow/core/resource"
)

// ViewDialog shows one record read-only.
// With Refresh set, opening it fetches fresh detail by Reference instead of trusting the row snapshot.
type ViewDialog[T resource.Record] struct {
	store   Store[T]
	Refresh bool

	state  State
	record T
	stale  bool
}

func NewViewDialog[T resource.Record](store Store[T], refresh bool) *ViewDialog[T] {
	return &ViewDialog[T]{store: store, Refresh: refresh}
}

// Open shows rec, or its fresh copy when Refresh is set and the fetch succeeds.
func (d *ViewDialog[T]) Open(ctx context.Context, rec T) {
	d.record = rec
	d.stale = false
	if d.Refresh {
		if fresh := d.store.GetByReference(ctx, rec.GetReference()); fresh != nil {
			d.record = *fresh
		} else {
			d.stale = true
		}
	}
	d.state = Viewing
}

func (d *ViewDialog[T]) State() State { return d.state }

func (d *ViewDialog[T]) Record() T { return d.record }

// Stale reports that the refresh failed and the row snapshot is shown.
func (d *ViewDialog[T]) Stale() bool { return d.stale }

func (d *ViewDialog[T]) Close() {
	var zero T
	d.state = Closed
	d.record = zero
	d.stale = false
}
