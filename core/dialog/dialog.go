// Package dialog implements the add / update / view forms shared by every catalog entity.
//
// A dialog moves Closed -> Editing -> Submitting and back to Closed on success, or to
// Editing (values intact) on a validation or server failure. Cancel always closes and
// discards the edits. The server message shown by a dialog is the store's Err(), never
// a text of its own.
package dialog

import (
	"context"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/mansourkira/evoluflow/core"
	"github.com/mansourkira/evoluflow/core/resource"
)

type State int

const (
	Closed State = iota
	Editing
	Submitting
	Viewing
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	case Viewing:
		return "viewing"
	default:
		return "closed"
	}
}

// Store is the part of resource.Client the dialogs rely on.
type Store[T resource.Record] interface {
	Add(ctx context.Context, rec T) bool
	Update(ctx context.Context, rec T) bool
	GetByReference(ctx context.Context, ref string) *T
	References() []string
	Err() string
}

var _ Store[resource.Record] = (*resource.Client[resource.Record])(nil)

// Schema validates form values against their `validate` struct tags.
type Schema struct {
	Validate   *validator.Validate
	Translator ut.Translator
}

// Check returns the translated message of each invalid field, or nil when v is valid.
func (s Schema) Check(v interface{}) map[string]string {
	err := s.Validate.Struct(v)
	if err == nil {
		return nil
	}
	if msgs, ok := core.FieldMessages(err, s.Translator); ok {
		return msgs
	}
	return map[string]string{"": err.Error()}
}

type form[T any] struct {
	state     State
	values    T
	fieldErrs map[string]string
	notice    string
}

func (f *form[T]) State() State { return f.state }

// Values returns the current form values.
func (f *form[T]) Values() T { return f.values }

// FieldErrors returns the per-field validation messages of the last submit.
func (f *form[T]) FieldErrors() map[string]string { return f.fieldErrs }

// Notice is the top-level failure message of the last submit.
func (f *form[T]) Notice() string { return f.notice }

// SetValues replaces the form values; ignored unless the dialog is editing.
func (f *form[T]) SetValues(values T) {
	if f.state == Editing {
		f.values = values
	}
}

// Cancel closes the dialog, discarding edits.
func (f *form[T]) Cancel() {
	var zero T
	f.state = Closed
	f.values = zero
	f.fieldErrs = nil
	f.notice = ""
}

// begin validates the values and moves to Submitting; false leaves the dialog editing.
func (f *form[T]) begin(schema Schema) bool {
	if f.state != Editing {
		return false
	}
	f.notice = ""
	if f.fieldErrs = schema.Check(f.values); f.fieldErrs != nil {
		return false
	}
	f.state = Submitting
	return true
}

// end closes the dialog on success or goes back to editing with the store message.
func (f *form[T]) end(ok bool, notice string) {
	if ok {
		f.state = Closed
		f.fieldErrs = nil
		f.notice = ""
		return
	}
	f.state = Editing
	f.notice = notice
}

// ResetDefaults derives the update form values from a selected record: a copy without the server-owned fields.
func ResetDefaults[T resource.Record, P resource.RecordPtr[T]](rec T) T {
	values := rec
	P(&values).ClearAudit()
	return values
}
