package token

import (
	"errors"
	"fmt"
	"net/http"
)

type ServiceTokenMinter interface {
	MintServiceToken() (string, error)
}

// Transport attaches a freshly minted service token to every outbound request.
type Transport struct {
	Minter ServiceTokenMinter
	Base   http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Minter == nil {
		return nil, errors.New("service token minter is nil")
	}
	signed, err := t.Minter.MintServiceToken()
	if err != nil {
		return nil, fmt.Errorf("mint service token: %w", err)
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+signed)
	return base.RoundTrip(out)
}
