package rbac

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"notifications/internal/domain"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
)

const (
	decisionQuery = "data.notifications.authz.allow"
	adminPolicy   = "admin"
)

//go:embed authz.rego
var defaultModule string

type AuthzError struct {
	Code string
	Err  error
}

func (e *AuthzError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code
}

func (e *AuthzError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Authorizer decides role-gated access with a prepared rego query. The
// embedded module grants the admin policy to the ADMIN role only.
type Authorizer struct {
	query rego.PreparedEvalQuery
}

// NewAuthorizer prepares the decision query from policyPath, or from the
// embedded module when policyPath is empty.
func NewAuthorizer(ctx context.Context, policyPath string) (*Authorizer, error) {
	capabilities := ast.CapabilitiesForThisVersion()
	capabilities.Builtins = filterBuiltins(capabilities.Builtins)
	compiler := ast.NewCompiler().WithCapabilities(capabilities)

	opts := []func(*rego.Rego){
		rego.Query(decisionQuery),
		rego.Compiler(compiler),
		rego.StrictBuiltinErrors(true),
	}
	if strings.TrimSpace(policyPath) != "" {
		opts = append(opts, rego.Load([]string{policyPath}, nil))
	} else {
		opts = append(opts, rego.Module("authz.rego", defaultModule))
	}
	prepared, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare role policy: %w", err)
	}
	if err := assertNoForbiddenBuiltins(compiler); err != nil {
		return nil, err
	}
	return &Authorizer{query: prepared}, nil
}

func (a *Authorizer) RequireAdmin(ctx context.Context, identity domain.Identity) error {
	if a == nil {
		return errors.New("role authorizer is nil")
	}
	allowed, err := a.allowed(ctx, adminPolicy, identity)
	if err != nil {
		return err
	}
	if !allowed {
		return &AuthzError{Code: "MISSING_ROLE", Err: domain.ErrForbidden}
	}
	return nil
}

func (a *Authorizer) allowed(ctx context.Context, policy string, identity domain.Identity) (bool, error) {
	input := map[string]any{
		"policy": policy,
		"identity": map[string]any{
			"id":   identity.ID,
			"role": identity.Role,
		},
	}
	results, err := a.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("evaluate role policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, nil
	}
	allowed, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		return false, errors.New("role policy returned a non-boolean decision")
	}
	return allowed, nil
}

func IsAuthzError(err error) (*AuthzError, bool) {
	var authz *AuthzError
	if errors.As(err, &authz) {
		return authz, true
	}
	return nil, false
}

func assertNoForbiddenBuiltins(compiler *ast.Compiler) error {
	if compiler == nil {
		return errors.New("policy compiler is nil")
	}
	forbidden := make(map[string]struct{})
	for _, module := range compiler.Modules {
		ast.WalkTerms(module, func(term *ast.Term) bool {
			call, ok := term.Value.(ast.Call)
			if !ok || len(call) == 0 || call[0] == nil {
				return false
			}
			name := call[0].Value.String()
			if _, ok := ast.BuiltinMap[name]; !ok {
				return false
			}
			if _, ok := allowedBuiltins[name]; ok {
				return false
			}
			forbidden[name] = struct{}{}
			return false
		})
	}
	if len(forbidden) == 0 {
		return nil
	}
	names := make([]string, 0, len(forbidden))
	for name := range forbidden {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("forbidden builtins: %s", strings.Join(names, ", "))
}
