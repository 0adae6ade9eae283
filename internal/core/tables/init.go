// Package tables registers the HR entity definitions with the core registry.
// Import this package for its side effects.
package tables

// Each file registers its entities from init().
