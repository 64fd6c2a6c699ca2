package rbac

import "github.com/open-policy-agent/opa/ast"

// Builtins a role policy may call. Network and time builtins are excluded.
var allowedBuiltins = map[string]struct{}{
	"and":               {},
	"concat":            {},
	"contains":          {},
	"count":             {},
	"endswith":          {},
	"eq":                {},
	"equal":             {},
	"internal.member_2": {},
	"lower":             {},
	"neq":               {},
	"object.get":        {},
	"or":                {},
	"split":             {},
	"startswith":        {},
	"trim":              {},
	"upper":             {},
}

func filterBuiltins(builtins []*ast.Builtin) []*ast.Builtin {
	allowed := make([]*ast.Builtin, 0, len(builtins))
	for _, builtin := range builtins {
		if _, ok := allowedBuiltins[builtin.Name]; !ok {
			continue
		}
		allowed = append(allowed, builtin)
	}
	return allowed
}
