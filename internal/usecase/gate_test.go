package usecase

import (
	"context"
	"errors"
	"testing"

	"notifications/internal/domain"
)

type stubVerifier struct {
	err   error
	calls int
}

func (s *stubVerifier) Decode(token string) (domain.Claims, error) {
	s.calls++
	if s.err != nil {
		return domain.Claims{}, s.err
	}
	return domain.Claims{Subject: "42"}, nil
}

type countingResolver struct {
	identity domain.Identity
	err      error
	calls    int
	tokens   []string
}

func (r *countingResolver) Resolve(ctx context.Context, token string) (domain.Identity, error) {
	r.calls++
	r.tokens = append(r.tokens, token)
	if r.err != nil {
		return domain.Identity{}, r.err
	}
	return r.identity, nil
}

type recordingGateMetrics struct {
	decisions []string
}

func (m *recordingGateMetrics) ObserveGateDecision(policy, outcome string) {
	m.decisions = append(m.decisions, policy+":"+outcome)
}

func TestAuthorize_BadHeaderNeverCallsRemote(t *testing.T) {
	headers := map[string]error{
		"":                       domain.ErrTokenMissing,
		"Bearer":                 domain.ErrTokenMalformed,
		"bearer abc":             domain.ErrTokenMalformed,
		"Token abc":              domain.ErrTokenMalformed,
		"Bearer a b":             domain.ErrTokenMalformed,
		"Bearer  abc":            domain.ErrTokenMalformed,
		"JWT":                    domain.ErrTokenMalformed,
		"Basic dXNlcjpwYXNzd28=": domain.ErrTokenMalformed,
	}
	for header, want := range headers {
		verifier := &stubVerifier{}
		resolver := &countingResolver{identity: domain.Identity{ID: "1", Role: domain.RoleAdmin}}
		gate := &AuthorizationGate{Tokens: verifier, Identities: resolver}

		_, err := gate.Authorize(context.Background(), PolicyUser, header)
		if !errors.Is(err, want) {
			t.Fatalf("%q: expected %v, got %v", header, want, err)
		}
		if verifier.calls != 0 || resolver.calls != 0 {
			t.Fatalf("%q: expected no decode or remote call, got decode=%d remote=%d", header, verifier.calls, resolver.calls)
		}
	}
}

func TestAuthorize_LocalVerificationFailureNeverCallsRemote(t *testing.T) {
	cases := map[string]struct {
		decodeErr error
		want      error
	}{
		"expired": {decodeErr: domain.ErrTokenExpired, want: domain.ErrTokenExpired},
		"invalid": {decodeErr: domain.ErrTokenInvalid, want: domain.ErrTokenInvalid},
		"untyped": {decodeErr: errors.New("boom"), want: domain.ErrTokenInvalid},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resolver := &countingResolver{}
			gate := &AuthorizationGate{Tokens: &stubVerifier{err: tc.decodeErr}, Identities: resolver}
			_, err := gate.Authorize(context.Background(), PolicyAdmin, "Bearer abc")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if resolver.calls != 0 {
				t.Fatalf("expected no remote call, got %d", resolver.calls)
			}
		})
	}
}

func TestAuthorize_AdminPolicy(t *testing.T) {
	cases := []struct {
		role string
		want error
	}{
		{role: domain.RoleAdmin},
		{role: "USER", want: domain.ErrForbidden},
		{role: "admin", want: domain.ErrForbidden},
		{role: "", want: domain.ErrForbidden},
	}
	for _, tc := range cases {
		resolver := &countingResolver{identity: domain.Identity{ID: "7", Role: tc.role}}
		metrics := &recordingGateMetrics{}
		gate := &AuthorizationGate{Tokens: &stubVerifier{}, Identities: resolver, Metrics: metrics}

		identity, err := gate.Authorize(context.Background(), PolicyAdmin, "JWT abc")
		if tc.want == nil {
			if err != nil {
				t.Fatalf("role %q: expected allowed, got %v", tc.role, err)
			}
			if identity.ID != "7" {
				t.Fatalf("role %q: unexpected identity %+v", tc.role, identity)
			}
		} else if !errors.Is(err, tc.want) {
			t.Fatalf("role %q: expected %v, got %v", tc.role, tc.want, err)
		}
		if resolver.calls != 1 || resolver.tokens[0] != "abc" {
			t.Fatalf("role %q: expected one remote call with the raw token, got %v", tc.role, resolver.tokens)
		}
		if len(metrics.decisions) != 1 || metrics.decisions[0] != "admin:"+Outcome(err) {
			t.Fatalf("role %q: unexpected metrics %v", tc.role, metrics.decisions)
		}
	}
}

type denyAllRoles struct{ calls int }

func (d *denyAllRoles) RequireAdmin(ctx context.Context, identity domain.Identity) error {
	d.calls++
	return domain.ErrForbidden
}

func TestAuthorize_AdminPolicyUsesRoleAuthorizer(t *testing.T) {
	roles := &denyAllRoles{}
	gate := &AuthorizationGate{
		Tokens:     &stubVerifier{},
		Identities: &countingResolver{identity: domain.Identity{ID: "1", Role: domain.RoleAdmin}},
		Roles:      roles,
	}
	if _, err := gate.Authorize(context.Background(), PolicyAdmin, "Bearer abc"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if roles.calls != 1 {
		t.Fatalf("expected role authorizer to be consulted once, got %d", roles.calls)
	}

	if _, err := gate.Authorize(context.Background(), PolicyUser, "Bearer abc"); err != nil {
		t.Fatalf("user policy must not apply the role rule, got %v", err)
	}
	if roles.calls != 1 {
		t.Fatalf("role authorizer consulted for user policy")
	}
}

func TestAuthorize_RemoteFailuresPassThrough(t *testing.T) {
	for _, remoteErr := range []error{domain.ErrRemoteServiceUnreachable, domain.ErrRemoteServiceError} {
		gate := &AuthorizationGate{Tokens: &stubVerifier{}, Identities: &countingResolver{err: remoteErr}}
		_, err := gate.Authorize(context.Background(), PolicyUser, "Bearer abc")
		if !errors.Is(err, remoteErr) {
			t.Fatalf("expected %v, got %v", remoteErr, err)
		}
		if errors.Is(err, domain.ErrTokenInvalid) || errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("remote failure must not look like an auth failure: %v", err)
		}
	}
}

func TestAuthorize_UnknownPolicy(t *testing.T) {
	gate := &AuthorizationGate{Tokens: &stubVerifier{}, Identities: &countingResolver{}}
	_, err := gate.Authorize(context.Background(), Policy("superuser"), "Bearer abc")
	if err == nil || Outcome(err) != OutcomeInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestParseAuthorizationHeader(t *testing.T) {
	for _, header := range []string{"Bearer abc.def.ghi", "JWT abc.def.ghi"} {
		token, err := ParseAuthorizationHeader(header)
		if err != nil || token != "abc.def.ghi" {
			t.Fatalf("%q: unexpected result %q, %v", header, token, err)
		}
	}
}

func TestOutcome(t *testing.T) {
	cases := map[error]string{
		nil:                                OutcomeAllowed,
		domain.ErrTokenMissing:             OutcomeTokenMissing,
		domain.ErrTokenMalformed:           OutcomeTokenMalformed,
		domain.ErrTokenExpired:             OutcomeTokenExpired,
		domain.ErrTokenInvalid:             OutcomeTokenInvalid,
		domain.ErrRemoteServiceUnreachable: OutcomeRemoteUnreachable,
		domain.ErrRemoteServiceError:       OutcomeRemoteError,
		domain.ErrForbidden:                OutcomeForbidden,
		errors.New("surprise"):             OutcomeInternal,
	}
	for err, want := range cases {
		if got := Outcome(err); got != want {
			t.Fatalf("Outcome(%v) = %s, want %s", err, got, want)
		}
	}
}

func TestIdentityContext(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Fatal("expected no identity on empty context")
	}
	ctx := WithIdentity(context.Background(), domain.Identity{ID: "9"})
	identity, ok := IdentityFromContext(ctx)
	if !ok || identity.ID != "9" {
		t.Fatalf("unexpected identity: %+v %v", identity, ok)
	}
}
