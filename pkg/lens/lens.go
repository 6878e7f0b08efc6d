// Package lens selects and compares views of the include graph.
package lens

// Focus selects the part of the include graph around a set of files
type Focus struct {
	Selected     []string `json:"selected"`               // file identities or directories
	Depth        int      `json:"depth"`                  // include hops in either direction; 0 keeps only the selection
	HideExternal bool     `json:"hideExternal,omitempty"` // drop external nodes that were not selected
}
