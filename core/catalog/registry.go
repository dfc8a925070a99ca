package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/mansourkira/evoluflow/core/dialog"
	"github.com/mansourkira/evoluflow/core/resource"
)

// ErrNotFound is returned when a Reference is not part of the loaded list.
var ErrNotFound = errors.New("enregistrement introuvable")

// Entry is one registered entity.
type Entry struct {
	Resource resource.Resource
	Fields   []resource.Field

	bind func(tr *resource.Transport, schema dialog.Schema) Handle
}

// Bind instantiates the entity's client and dialogs over tr.
func (e Entry) Bind(tr *resource.Transport, schema dialog.Schema) Handle {
	return e.bind(tr, schema)
}

// Outcome reports a submitted form.
type Outcome struct {
	Record      interface{}
	FieldErrors map[string]string
	Notice      string
	OK          bool
}

// Handle drives one entity through its client and dialog triad without knowing its Go type.
type Handle interface {
	Resource() resource.Resource
	Fields() []resource.Field
	// List refreshes the cache and returns it, with the client's error message.
	List(ctx context.Context) ([]interface{}, string)
	// View opens the view dialog on the cached record ref.
	View(ctx context.Context, ref string) (rec interface{}, stale bool, err error)
	// Add opens the add dialog, applies the assignments and submits.
	Add(ctx context.Context, assignments map[string]string) Outcome
	// Update selects ref, applies the assignments and submits.
	Update(ctx context.Context, ref string, assignments map[string]string) Outcome
	// Delete removes ref; the message is the client's error on failure.
	Delete(ctx context.Context, ref string) (bool, string)
}

func register[T resource.Record, P resource.RecordPtr[T]](res resource.Resource, refresh bool) Entry {
	return Entry{
		Resource: res,
		Fields:   resource.FieldsOf[T](),
		bind: func(tr *resource.Transport, schema dialog.Schema) Handle {
			client := resource.NewClient[T](res, tr)
			return &binding[T, P]{
				client: client,
				add:    dialog.NewAddDialog[T, P](res, client, schema),
				update: dialog.NewUpdateDialog[T, P](client, schema),
				view:   dialog.NewViewDialog[T](client, refresh),
			}
		},
	}
}

var entries = []Entry{
	register[Site](resource.Resource{Name: "sites", Label: "Site", Prefix: "SIT", Sequential: true}, false),
	register[Filiere](resource.Resource{Name: "filieres", Label: "Filière", Prefix: "FIL", Sequential: true}, false),
	register[Salle](resource.Resource{Name: "salles", Label: "Salle", Prefix: "SAL", Sequential: true}, true),
	register[RegimeTVA](resource.Resource{Name: "regimes-tva", Label: "Régime TVA", Prefix: "TVA"}, true),
	register[ModePaiement](resource.Resource{Name: "modes-paiement", Label: "Mode de paiement", Prefix: "MP"}, false),
	register[TypeDocument](resource.Resource{Name: "types-document", Label: "Type de document", Prefix: "DOC"}, true),
	register[SuiviProspect](resource.Resource{Name: "suivis-prospect", Label: "Suivi prospect", Prefix: "SP", Sequential: true}, false),
	register[NiveauLangue](resource.Resource{Name: "niveaux-langue", Label: "Niveau de langue", Prefix: "NL", Sequential: true}, false),
	register[UrgenceTache](resource.Resource{Name: "urgences-tache", Label: "Urgence de tâche", Prefix: "URG"}, false),
	register[ObjetTache](resource.Resource{Name: "objets-tache", Label: "Objet de tâche", Prefix: "OBJ"}, false),
	register[Banque](resource.Resource{Name: "banques", Label: "Banque", Prefix: "BQ"}, true),
	register[Nationalite](resource.Resource{Name: "nationalites", Label: "Nationalité", Prefix: "NAT", Sequential: true}, false),
}

// Entries lists the registered entities, sorted by name.
func Entries() []Entry {
	all := make([]Entry, len(entries))
	copy(all, entries)
	sort.Slice(all, func(i, j int) bool { return all[i].Resource.Name < all[j].Resource.Name })
	return all
}

// Lookup finds an entity by its collection path.
func Lookup(name string) (Entry, bool) {
	for _, e := range entries {
		if e.Resource.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

type binding[T resource.Record, P resource.RecordPtr[T]] struct {
	client *resource.Client[T]
	add    *dialog.AddDialog[T, P]
	update *dialog.UpdateDialog[T, P]
	view   *dialog.ViewDialog[T]
}

func (b *binding[T, P]) Resource() resource.Resource { return b.client.Resource }

func (b *binding[T, P]) Fields() []resource.Field { return b.client.Fields }

func (b *binding[T, P]) List(ctx context.Context) ([]interface{}, string) {
	b.client.FetchAll(ctx)
	items := b.client.Items()
	recs := make([]interface{}, len(items))
	for i, it := range items {
		recs[i] = it
	}
	return recs, b.client.Err()
}

func (b *binding[T, P]) find(ref string) (T, bool) {
	for _, it := range b.client.Items() {
		if it.GetReference() == ref {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func (b *binding[T, P]) View(ctx context.Context, ref string) (interface{}, bool, error) {
	rec, ok := b.find(ref)
	if !ok {
		// not in the list: the detail fetch is the only source left
		fresh := b.client.GetByReference(ctx, ref)
		if fresh == nil {
			return nil, false, ErrNotFound
		}
		rec = *fresh
	}
	b.view.Open(ctx, rec)
	defer b.view.Close()
	return b.view.Record(), b.view.Stale(), nil
}

func (b *binding[T, P]) Add(ctx context.Context, assignments map[string]string) Outcome {
	b.add.Now = time.Now
	b.add.Open()
	defer b.add.Cancel()

	values := b.add.Values()
	if errs := assign(P(&values), b.client.Fields, assignments); errs != nil {
		return Outcome{Record: values, FieldErrors: errs}
	}
	b.add.SetValues(values)
	ok := b.add.Submit(ctx)
	return Outcome{Record: values, FieldErrors: b.add.FieldErrors(), Notice: b.add.Notice(), OK: ok}
}

func (b *binding[T, P]) Update(ctx context.Context, ref string, assignments map[string]string) Outcome {
	rec, ok := b.find(ref)
	if !ok {
		return Outcome{Notice: ErrNotFound.Error()}
	}
	b.update.Select(rec)
	b.update.Open()
	defer b.update.Cancel()

	values := b.update.Values()
	if errs := assign(P(&values), b.client.Fields, assignments, "Reference"); errs != nil {
		return Outcome{Record: values, FieldErrors: errs}
	}
	b.update.SetValues(values)
	ok = b.update.Submit(ctx)
	return Outcome{Record: b.update.Values(), FieldErrors: b.update.FieldErrors(), Notice: b.update.Notice(), OK: ok}
}

func (b *binding[T, P]) Delete(ctx context.Context, ref string) (bool, string) {
	if ok := b.client.Delete(ctx, ref); !ok {
		return false, b.client.Err()
	}
	return true, ""
}

// assign sets each assigned field on ptr; keys listed in immutable are skipped.
func assign(ptr interface{}, fields []resource.Field, assignments map[string]string, immutable ...string) map[string]string {
	var errs map[string]string
	for key, raw := range assignments {
		if contains(immutable, key) {
			continue
		}
		if err := resource.Assign(ptr, fields, key, raw); err != nil {
			if errs == nil {
				errs = make(map[string]string)
			}
			errs[key] = err.Error()
		}
	}
	return errs
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
