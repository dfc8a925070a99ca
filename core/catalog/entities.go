package catalog

type (
	Site struct {
		Base
		Adresse   string `json:"Adresse" label:"Adresse" validate:"max=200"`
		Telephone string `json:"Telephone" label:"Téléphone" validate:"omitempty,max=20"`
	}

	Filiere struct {
		Base
		ReferenceSite string `json:"Reference_Site" label:"Site" validate:"required,notblank"`
	}

	Salle struct {
		Base
		ReferenceSite     string `json:"Reference_Site" label:"Site" validate:"required,notblank"`
		NombreCandidatMax int    `json:"Nombre_Candidat_Max" label:"Nombre de candidats max" validate:"gte=0"`
	}

	RegimeTVA struct {
		Base
		Taux float64 `json:"Taux" label:"Taux (%)" validate:"gte=0,lte=100"`
	}

	ModePaiement struct {
		Base
		NecessiteBanque bool `json:"Necessite_Banque" label:"Nécessite une banque"`
	}

	TypeDocument struct {
		Base
		Obligatoire bool `json:"Obligatoire" label:"Obligatoire"`
	}

	SuiviProspect struct {
		Base
		Ordre int `json:"Ordre" label:"Ordre" validate:"gte=0"`
	}

	NiveauLangue struct {
		Base
		Ordre int `json:"Ordre" label:"Ordre" validate:"gte=0"`
	}

	UrgenceTache struct {
		Base
		DelaiJours int    `json:"Delai_Jours" label:"Délai (jours)" validate:"gte=0"`
		Couleur    string `json:"Couleur" label:"Couleur" validate:"omitempty,hexcolor"`
	}

	ObjetTache struct {
		Base
	}

	Banque struct {
		Base
		CodeSwift string `json:"Code_Swift" label:"Code SWIFT" validate:"omitempty,min=8,max=11,alphanum"`
	}

	Nationalite struct {
		Base
		CodePays string `json:"Code_Pays" label:"Code pays" validate:"omitempty,iso3166_1_alpha2"`
	}
)
