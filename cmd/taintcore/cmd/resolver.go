package cmd

import (
	"github.com/coldtrace/taintcore/internal/pkg/ir"
	"github.com/coldtrace/taintcore/internal/pkg/resolver"
)

// cliResolver is the demonstration CLI's external collaborator. The CLI
// has no AST/CFG front end of its own, so it never verifies a
// model-source document against a real program: every existence check
// and reference parse reports "found", arity is left unverified, and
// type, class and signature lookups report nothing found.
type cliResolver struct{}

func (cliResolver) ResolveType(ir.Expr) (resolver.Type, bool)        { return "", false }
func (cliResolver) ClassDefinition(string) (resolver.ClassDef, bool) { return resolver.ClassDef{}, false }
func (cliResolver) LessOrEqual(resolver.Type, resolver.Type) bool    { return false }
func (cliResolver) ParseReference(ref string) (string, bool)        { return ref, true }
func (cliResolver) IsGlobal(string) bool                            { return false }
func (cliResolver) IsProperty(string) bool                          { return false }
func (cliResolver) Exists(string) bool                              { return true }
func (cliResolver) Arity(string) (int, bool)                        { return 0, false }
func (cliResolver) Signature(string) (resolver.FunctionSignature, bool) {
	return resolver.FunctionSignature{}, false
}
func (cliResolver) TypeBreadcrumb(string) string { return "" }
