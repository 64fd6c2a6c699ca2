package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func setTokenEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("CONFIG_DIR", t.TempDir())
	t.Setenv("ENVIRONMENT", "local")
	t.Setenv("SERVICES_JWT_SECRET", "cli-secret")
}

func TestRun_Usage(t *testing.T) {
	var stderr bytes.Buffer
	if code := run([]string{"notificationsctl"}, io.Discard, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "token mint") {
		t.Fatalf("expected usage, got %q", stderr.String())
	}
	if code := run([]string{"notificationsctl", "token", "burn"}, io.Discard, io.Discard); code != 1 {
		t.Fatalf("expected exit 1 for unknown subcommand, got %d", code)
	}
}

func TestTokenMintThenDecode(t *testing.T) {
	setTokenEnv(t)
	var minted bytes.Buffer
	if code := run([]string{"notificationsctl", "token", "mint"}, &minted, io.Discard); code != 0 {
		t.Fatalf("mint exited %d", code)
	}

	var decoded, stderr bytes.Buffer
	code := run([]string{"notificationsctl", "token", "decode", "--token", strings.TrimSpace(minted.String())}, &decoded, &stderr)
	if code != 0 {
		t.Fatalf("decode exited %d: %s", code, stderr.String())
	}
	var claims claimsOutput
	if err := json.Unmarshal(decoded.Bytes(), &claims); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if claims.Type != "service" || claims.ServiceID != "notifications" || claims.Issuer != "notifications_service" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenDecode_Invalid(t *testing.T) {
	setTokenEnv(t)
	var stderr bytes.Buffer
	if code := run([]string{"notificationsctl", "token", "decode", "--token", "a.b.c"}, io.Discard, &stderr); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
	if strings.TrimSpace(stderr.String()) != "invalid token" {
		t.Fatalf("unexpected stderr: %q", stderr.String())
	}
}

func TestTokenMint_RequiresSecret(t *testing.T) {
	setTokenEnv(t)
	t.Setenv("SERVICES_JWT_SECRET", "")
	if code := run([]string{"notificationsctl", "token", "mint"}, io.Discard, io.Discard); code != 1 {
		t.Fatalf("expected exit 1 without secret, got %d", code)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health/":
			_, _ = io.WriteString(w, `{"status":"healthy"}`)
		case "/health/detailed/":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"status":"unhealthy"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	var out bytes.Buffer
	if code := run([]string{"notificationsctl", "health", "--url", srv.URL}, &out, io.Discard); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if !strings.Contains(out.String(), "healthy") {
		t.Fatalf("expected body on stdout, got %q", out.String())
	}
	if code := run([]string{"notificationsctl", "health", "--url", srv.URL, "--detailed"}, io.Discard, io.Discard); code != 2 {
		t.Fatalf("expected exit 2 for unhealthy service, got %d", code)
	}
}
