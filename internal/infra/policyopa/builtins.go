package policyopa

import "github.com/open-policy-agent/opa/ast"

// allowedBuiltins is everything a signing policy may call. Time, network
// and randomness builtins are left out so decisions depend only on input.
var allowedBuiltins = map[string]struct{}{
	"and":         {},
	"concat":      {},
	"contains":    {},
	"count":       {},
	"endswith":    {},
	"eq":          {},
	"equal":       {},
	"gt":          {},
	"gte":         {},
	"lower":       {},
	"lt":          {},
	"lte":         {},
	"max":         {},
	"min":         {},
	"neq":         {},
	"object.get":  {},
	"or":          {},
	"regex.match": {},
	"sprintf":     {},
	"startswith":  {},
	"trim":        {},
	"trim_space":  {},
	"upper":       {},
}

func filterBuiltins(builtins []*ast.Builtin) []*ast.Builtin {
	allowed := make([]*ast.Builtin, 0, len(allowedBuiltins))
	for _, builtin := range builtins {
		if _, ok := allowedBuiltins[builtin.Name]; ok {
			allowed = append(allowed, builtin)
		}
	}
	return allowed
}
