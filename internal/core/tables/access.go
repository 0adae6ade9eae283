package tables

import "github.com/JonMunkholm/hrm/internal/core"

func init() {
	registerGroups()
}

func registerGroups() {
	core.Register(core.EntityDefinition{
		Info: core.EntityInfo{
			Key:   "groups",
			Group: "Access",
			Label: "Groups",
			Table: "user_groups",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "group_code", Type: core.FieldText, Required: true, Normalizer: NormalizeCode},
			{Name: "name", Type: core.FieldText, Required: true},
			{Name: "description", Type: core.FieldText},
			{Name: "parent_code", Type: core.FieldText, Normalizer: NormalizeCode},
		},
	})
}
