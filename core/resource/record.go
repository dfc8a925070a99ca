package resource

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Record is any entity identified by a Reference.
type Record interface {
	GetReference() string
}

// RecordPtr is the pointer side of a Record: the forms need to write through it.
type RecordPtr[T any] interface {
	*T
	Record
	SetReference(ref string)
	// ClearAudit drops the server-owned fields (Utilisateur, Heure).
	ClearAudit()
}

// Resource describes one backend collection.
type Resource struct {
	Name       string // path segment, e.g. "salles"
	Label      string // display name, e.g. "Salle"
	Prefix     string // reference prefix, e.g. "SAL"
	Sequential bool   // sequential reference counter instead of a random suffix
}

// Kind of a form field.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	default:
		return "string"
	}
}

// Field is one row of an entity's descriptor table.
type Field struct {
	Key      string // JSON key, e.g. "Nombre_Candidat_Max"
	Label    string
	Kind     Kind
	Required bool
	ReadOnly bool // server-owned, never sent from a form

	index []int
}

var timeType = reflect.TypeOf(time.Time{})

// FieldsOf derives the descriptor table of T from its `json`, `label`, `validate` and `readonly` tags.
// Embedded structs are flattened, in declaration order.
func FieldsOf[T any]() []Field {
	var zero T
	return fieldsOf(reflect.TypeOf(zero), nil)
}

func fieldsOf(typ reflect.Type, parent []int) []Field {
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	fields := make([]Field, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		index := append(append([]int{}, parent...), i)
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct {
			fields = append(fields, fieldsOf(sf.Type, index)...)
			continue
		}
		if !sf.IsExported() {
			continue
		}
		key := strings.SplitN(sf.Tag.Get("json"), ",", 2)[0]
		if key == "-" {
			continue
		}
		if key == "" {
			key = sf.Name
		}
		label := sf.Tag.Get("label")
		if label == "" {
			label = strings.ReplaceAll(key, "_", " ")
		}
		fields = append(fields, Field{
			Key:      key,
			Label:    label,
			Kind:     kindOf(sf.Type),
			Required: hasRule(sf.Tag.Get("validate"), "required"),
			ReadOnly: sf.Tag.Get("readonly") == "true",
			index:    index,
		})
	}
	return fields
}

func kindOf(typ reflect.Type) Kind {
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt
	case reflect.Float32, reflect.Float64:
		return KindFloat
	case reflect.Bool:
		return KindBool
	}
	if typ == timeType {
		return KindTime
	}
	return KindString
}

func hasRule(tag, rule string) bool {
	for _, r := range strings.Split(tag, ",") {
		if r == rule {
			return true
		}
	}
	return false
}

// FieldByKey looks a field up by its JSON key.
func FieldByKey(fields []Field, key string) (Field, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Assign parses raw according to the field kind and stores it into the record pointed to by ptr.
func Assign(ptr interface{}, fields []Field, key, raw string) error {
	fld, ok := FieldByKey(fields, key)
	if !ok {
		return errors.Errorf("unknown field %q", key)
	}
	if fld.ReadOnly {
		return errors.Errorf("field %q is read-only", key)
	}

	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return errors.Errorf("expected a pointer to struct, got %T", ptr)
	}
	fv := rv.Elem().FieldByIndex(fld.index)
	if fv.Kind() == reflect.Pointer {
		if raw == "" {
			fv.Set(reflect.Zero(fv.Type()))
			return nil
		}
		fv.Set(reflect.New(fv.Type().Elem()))
		fv = fv.Elem()
	}

	raw = strings.TrimSpace(raw)
	switch fld.Kind {
	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return errors.Errorf("%s: nombre entier attendu", key)
		}
		if fv.CanUint() {
			fv.SetUint(uint64(n))
		} else {
			fv.SetInt(n)
		}
	case KindFloat:
		f, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil {
			return errors.Errorf("%s: nombre attendu", key)
		}
		fv.SetFloat(f)
	case KindBool:
		b, err := parseBool(raw)
		if err != nil {
			return errors.Errorf("%s: oui/non attendu", key)
		}
		fv.SetBool(b)
	case KindTime:
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return errors.Errorf("%s: date RFC3339 attendue", key)
		}
		fv.Set(reflect.ValueOf(t))
	default:
		fv.SetString(raw)
	}
	return nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "oui", "o", "yes", "y":
		return true, nil
	case "non", "n", "no":
		return false, nil
	}
	return strconv.ParseBool(raw)
}

// Values renders rec as one string per field, in descriptor order.
func Values(rec interface{}, fields []Field) []string {
	rv := reflect.ValueOf(rec)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	out := make([]string, len(fields))
	for i, fld := range fields {
		fv := rv.FieldByIndex(fld.index)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		switch fld.Kind {
		case KindBool:
			if fv.Bool() {
				out[i] = "oui"
			} else {
				out[i] = "non"
			}
		case KindTime:
			if t := fv.Interface().(time.Time); !t.IsZero() {
				out[i] = t.Format("2006-01-02 15:04")
			}
		default:
			out[i] = fmt.Sprint(fv.Interface())
		}
	}
	return out
}
