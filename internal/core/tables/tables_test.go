package tables

import (
	"testing"

	"github.com/JonMunkholm/hrm/internal/core"
)

func TestEntitiesRegistered(t *testing.T) {
	want := map[string]string{
		"employees":         "employee_id",
		"attendance":        "employee_id",
		"clients":           "client_code",
		"projects":          "project_code",
		"project_files":     "file_code",
		"project_tasks":     "task_code",
		"project_followers": "project_code",
		"groups":            "group_code",
	}

	for key, keyCol := range want {
		def, ok := core.Get(key)
		if !ok {
			t.Errorf("entity %q not registered", key)
			continue
		}
		if def.Info.KeyColumn != keyCol {
			t.Errorf("%s: KeyColumn = %q, want %q", key, def.Info.KeyColumn, keyCol)
		}
		if len(def.Headers()) != len(def.FieldSpecs) {
			t.Errorf("%s: %d headers for %d field specs", key, len(def.Headers()), len(def.FieldSpecs))
		}
		if def.Info.Table == "" {
			t.Errorf("%s: empty table", key)
		}
	}

	if n := core.EntityCount(); n != len(want) {
		t.Errorf("EntityCount() = %d, want %d", n, len(want))
	}
}

func TestHeadersAreUnique(t *testing.T) {
	for _, def := range core.All() {
		seen := make(map[string]bool)
		for _, h := range def.Headers() {
			if seen[h] {
				t.Errorf("%s: duplicate header %q", def.Info.Key, h)
			}
			seen[h] = true
		}
	}
}

func TestCompositeUniqueKeys(t *testing.T) {
	def, _ := core.Get("attendance")
	if len(def.Info.UniqueKey) != 2 {
		t.Fatalf("attendance UniqueKey = %v", def.Info.UniqueKey)
	}

	def, _ = core.Get("groups")
	if def.Info.Table != "user_groups" {
		t.Errorf("groups table = %q, want user_groups", def.Info.Table)
	}
	if len(def.Info.UniqueKey) != 1 || def.Info.UniqueKey[0] != "group_code" {
		t.Errorf("groups UniqueKey = %v", def.Info.UniqueKey)
	}
}
