// Package catalog declares the reference data entities of the admission back office.
//
// Every entity embeds Base and is registered with its collection path, reference prefix
// and generator variant. Form fields are derived from the struct tags.
package catalog

import "time"

// Base holds the fields shared by every entity.
type Base struct {
	Reference   string     `json:"Reference" label:"Référence" validate:"required,notblank,max=30"`
	Libelle     string     `json:"Libelle" label:"Libellé" validate:"required,notblank,max=100"`
	Utilisateur string     `json:"Utilisateur,omitempty" label:"Utilisateur" readonly:"true"`
	Heure       *time.Time `json:"Heure,omitempty" label:"Heure" readonly:"true"`
}

func (b Base) GetReference() string { return b.Reference }

func (b *Base) SetReference(ref string) { b.Reference = ref }

func (b *Base) ClearAudit() {
	b.Utilisateur = ""
	b.Heure = nil
}
