package dialog

import (
	"context"
	"time"

	"github.com/mansourkira/evoluflow/core/resource"
)

// AddDialog creates a record, proposing its Reference from the currently loaded list.
type AddDialog[T resource.Record, P resource.RecordPtr[T]] struct {
	form[T]

	res    resource.Resource
	store  Store[T]
	schema Schema

	Now       func() time.Time
	OnSuccess func(rec T)
}

func NewAddDialog[T resource.Record, P resource.RecordPtr[T]](res resource.Resource, store Store[T], schema Schema) *AddDialog[T, P] {
	return &AddDialog[T, P]{
		res:    res,
		store:  store,
		schema: schema,
		Now:    time.Now,
	}
}

// Open seeds an empty form with a proposed Reference.
func (d *AddDialog[T, P]) Open() {
	var values T
	P(&values).SetReference(resource.NewReference(d.res, d.Now(), d.store.References()))
	d.values = values
	d.fieldErrs = nil
	d.notice = ""
	d.state = Editing
}

// Submit validates then adds the values; true means the dialog closed.
func (d *AddDialog[T, P]) Submit(ctx context.Context) bool {
	if !d.begin(d.schema) {
		return false
	}
	rec := d.values
	ok := d.store.Add(ctx, rec)
	d.end(ok, d.store.Err())
	if ok {
		var zero T
		d.values = zero
		if d.OnSuccess != nil {
			d.OnSuccess(rec)
		}
	}
	return ok
}
