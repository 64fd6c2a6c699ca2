package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"notifications/internal/config"
	"notifications/internal/domain"
	"notifications/internal/infra/auth/token"
)

type claimsOutput struct {
	Issuer    string     `json:"iss,omitempty"`
	Audience  []string   `json:"aud,omitempty"`
	Subject   string     `json:"sub,omitempty"`
	IssuedAt  *time.Time `json:"iat,omitempty"`
	ExpiresAt *time.Time `json:"exp,omitempty"`
	Type      string     `json:"type,omitempty"`
	ServiceID string     `json:"service_id,omitempty"`
}

func runTokenMint(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token mint", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	codec, err := codecFromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	signed, err := codec.MintServiceToken()
	if err != nil {
		fmt.Fprintf(stderr, "mint service token: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, signed)
	return 0
}

func runTokenDecode(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token decode", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var raw string
	fs.StringVar(&raw, "token", "", "token to verify (default stdin)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if raw == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			fmt.Fprintf(stderr, "read token: %v\n", err)
			return 1
		}
		raw = line
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		fmt.Fprintln(stderr, "token decode requires --token or a token on stdin")
		return 1
	}

	codec, err := codecFromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	claims, err := codec.Decode(raw)
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		fmt.Fprintln(stderr, "token has expired")
		return 2
	case err != nil:
		fmt.Fprintln(stderr, "invalid token")
		return 2
	}

	out := claimsOutput{
		Issuer:    claims.Issuer,
		Audience:  claims.Audience,
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt,
		Type:      claims.Type,
		ServiceID: claims.ServiceID,
	}
	if !claims.IssuedAt.IsZero() {
		iat := claims.IssuedAt
		out.IssuedAt = &iat
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "encode claims: %v\n", err)
		return 1
	}
	return 0
}

func codecFromEnv() (*token.Codec, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	codec, err := token.NewCodec(cfg)
	if err != nil {
		return nil, fmt.Errorf("init token codec: %w", err)
	}
	return codec, nil
}
