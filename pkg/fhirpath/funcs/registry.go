// Package funcs provides the FHIRPath function kernel. Every function
// registers itself into the package registry at init time; the
// registry is sealed before it is first shared.
package funcs

import (
	"sync"

	"github.com/robertoaraneda/fhirpath/pkg/fhirpath/eval"
)

// FuncDef is an alias for eval.FuncDef.
type FuncDef = eval.FuncDef

var (
	defaultRegistry = eval.NewRegistry()
	sealOnce        sync.Once
)

// Register adds a function to the package registry. Only init
// functions in this package call it; the registry seals on first use.
func Register(def eval.FuncDef) {
	defaultRegistry.Register(def)
}

// GetRegistry returns the sealed package registry.
func GetRegistry() *eval.Registry {
	sealOnce.Do(defaultRegistry.Seal)
	return defaultRegistry
}

// Get retrieves a function from the package registry.
func Get(name string) (eval.FuncDef, bool) {
	return GetRegistry().Get(name)
}

// Has checks if a function exists in the package registry.
func Has(name string) bool {
	return GetRegistry().Has(name)
}

// List returns all function names from the package registry.
func List() []string {
	return GetRegistry().List()
}
