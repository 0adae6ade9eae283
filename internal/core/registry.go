package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/JonMunkholm/hrm/internal/importer"
)

var (
	registry   = make(map[string]EntityDefinition)
	registryMu sync.RWMutex
)

// Register adds an entity definition to the registry.
// Panics if an entity with the same key is already registered.
func Register(def EntityDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("entity already registered: %s", def.Info.Key))
	}

	// Populate Columns from FieldSpecs if not set
	if len(def.Info.Columns) == 0 && len(def.FieldSpecs) > 0 {
		def.Info.Columns = make([]string, len(def.FieldSpecs))
		for i, spec := range def.FieldSpecs {
			def.Info.Columns[i] = spec.Name
		}
	}
	if def.Info.KeyColumn == "" && len(def.Info.Columns) > 0 {
		def.Info.KeyColumn = def.Info.Columns[0]
	}
	if len(def.Info.UniqueKey) == 0 && def.Info.KeyColumn != "" {
		def.Info.UniqueKey = []string{def.Info.KeyColumn}
	}
	if def.Info.Table == "" {
		def.Info.Table = def.Info.Key
	}
	if err := checkDefinition(def); err != nil {
		panic(fmt.Sprintf("entity %s: %v", def.Info.Key, err))
	}

	registry[def.Info.Key] = def
}

// Get returns an entity definition by key.
// Returns false if not found.
func Get(key string) (EntityDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// All returns all registered entity definitions.
// Sorted by group then by key for consistent ordering.
func All() []EntityDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]EntityDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Info.Group != result[j].Info.Group {
			return result[i].Info.Group < result[j].Info.Group
		}
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// ByGroup returns all entity definitions for a specific group.
// Sorted by key for consistent ordering.
func ByGroup(group string) []EntityDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var result []EntityDefinition
	for _, def := range registry {
		if def.Info.Group == group {
			result = append(result, def)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// Groups returns all unique group names, sorted alphabetically.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, def := range registry {
		seen[def.Info.Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}

	sort.Strings(groups)
	return groups
}

// EntityCount returns the number of registered entities.
func EntityCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered entities.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]EntityDefinition)
}

// checkDefinition rejects header lists the importer cannot serve.
func checkDefinition(def EntityDefinition) error {
	if len(def.Info.Columns) == 0 {
		return fmt.Errorf("no columns declared")
	}

	perms := importer.DefaultPermissionColumns()
	seen := make(map[string]bool, len(def.Info.Columns))
	for _, col := range def.Info.Columns {
		lower := strings.ToLower(col)
		if seen[lower] {
			return fmt.Errorf("duplicate column %q", col)
		}
		if lower == perms.Subject || lower == perms.Codes {
			return fmt.Errorf("column %q is reserved for permissions", col)
		}
		seen[lower] = true
	}

	for _, col := range append([]string{def.Info.KeyColumn}, def.Info.UniqueKey...) {
		if !seen[strings.ToLower(col)] {
			return fmt.Errorf("key column %q is not declared", col)
		}
	}
	return nil
}
