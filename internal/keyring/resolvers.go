package keyring

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"fedchat/internal/entity"
	"fedchat/internal/signature"
)

// CredentialSource is the slice of registration storage the local resolver
// needs.
type CredentialSource interface {
	PublicKeyFor(name string) ([]byte, error)
}

// LocalResolver serves identities registered on this host without a network
// round trip.
type LocalResolver struct {
	creds CredentialSource
}

func NewLocalResolver(creds CredentialSource) *LocalResolver {
	return &LocalResolver{creds: creds}
}

func (r *LocalResolver) Resolve(_ context.Context, id entity.Identity) (ed25519.PublicKey, error) {
	raw, err := r.creds.PublicKeyFor(id.Name)
	if err != nil {
		return nil, err
	}
	return signature.PublicKeyFromBytes(raw)
}

// HTTPResolver queries the directory endpoint of the host that owns the
// identity. The full (name, host) pair travels on the wire; surrogate ids are
// host-local and meaningless elsewhere.
type HTTPResolver struct {
	client *http.Client
	scheme string
}

func NewHTTPResolver(client *http.Client) *HTTPResolver {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPResolver{client: client, scheme: "http"}
}

type keyResponse struct {
	PublicKey string `json:"public-key"`
}

func (r *HTTPResolver) Resolve(ctx context.Context, id entity.Identity) (ed25519.PublicKey, error) {
	u := url.URL{
		Scheme: r.scheme,
		Host:   id.Host,
		Path:   "/v1/directory/key",
	}
	q := u.Query()
	q.Set("name", id.Name)
	q.Set("host", id.Host)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory lookup on %s: %w", id.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory lookup on %s: status %d", id.Host, resp.StatusCode)
	}

	var body keyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding directory response: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(body.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("decoding directory response: %w", err)
	}
	return signature.PublicKeyFromBytes(raw)
}
