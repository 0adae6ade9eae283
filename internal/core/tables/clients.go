package tables

import "github.com/JonMunkholm/hrm/internal/core"

func init() {
	registerClients()
}

func registerClients() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:   "clients",
			Group: "Clients",
			Label: "Clients",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "client_code", Type: core.FieldText, Required: true, Normalizer: NormalizeCode},
			{Name: "name", Type: core.FieldText, Required: true},
			{Name: "contact_name", Type: core.FieldText},
			{Name: "contact_email", Type: core.FieldEmail},
			{Name: "phone", Type: core.FieldText, Normalizer: NormalizePhone},
			{Name: "country", Type: core.FieldText},
			{Name: "industry", Type: core.FieldText},
		},
	})
}
