package dialog

import (
	"context"

	"github.com/mansourkira/evoluflow/core/resource"
)

// UpdateDialog edits the selected record; its Reference is held constant.
type UpdateDialog[T resource.Record, P resource.RecordPtr[T]] struct {
	form[T]

	store    Store[T]
	schema   Schema
	selected string

	OnSuccess func(rec T)
}

func NewUpdateDialog[T resource.Record, P resource.RecordPtr[T]](store Store[T], schema Schema) *UpdateDialog[T, P] {
	return &UpdateDialog[T, P]{
		store:  store,
		schema: schema,
	}
}

// Select points the dialog at rec. The form is reset only when the record identity changes,
// so reselecting the same row keeps the pending edits.
func (d *UpdateDialog[T, P]) Select(rec T) {
	if ref := rec.GetReference(); ref != d.selected || d.state == Closed {
		d.selected = ref
		d.values = ResetDefaults[T, P](rec)
		d.fieldErrs = nil
		d.notice = ""
	}
}

// Selected is the Reference of the selected record.
func (d *UpdateDialog[T, P]) Selected() string { return d.selected }

// Open starts editing the selected record; false when nothing is selected.
func (d *UpdateDialog[T, P]) Open() bool {
	if d.selected == "" {
		return false
	}
	d.state = Editing
	return true
}

// Submit validates then sends the full record; true means the dialog closed.
func (d *UpdateDialog[T, P]) Submit(ctx context.Context) bool {
	if d.state == Editing {
		P(&d.values).SetReference(d.selected)
	}
	if !d.begin(d.schema) {
		return false
	}
	rec := d.values
	ok := d.store.Update(ctx, rec)
	d.end(ok, d.store.Err())
	if ok && d.OnSuccess != nil {
		d.OnSuccess(rec)
	}
	return ok
}

// Cancel closes the dialog and forgets the selection.
func (d *UpdateDialog[T, P]) Cancel() {
	d.form.Cancel()
	d.selected = ""
}
