package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// minRefreshInterval keeps an attacker sending unknown kids from turning the
// key set into a request amplifier against the identity provider.
const minRefreshInterval = time.Minute

// KeySet caches the identity provider's JSON Web Key Set. Keys are fetched
// at most once per TTL; an unknown kid triggers one early refresh to pick up
// a rotated key. Staleness within the TTL window is accepted.
type KeySet struct {
	endpoint   string
	ttl        time.Duration
	httpClient *http.Client
	logger     *zap.Logger

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewKeySet creates a key set cache for the given JWKS endpoint.
func NewKeySet(endpoint string, ttl time.Duration, logger *zap.Logger) *KeySet {
	return &KeySet{
		endpoint:   endpoint,
		ttl:        ttl,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Key returns the RSA public key for kid, refreshing the cache when it is
// stale or the kid is unknown.
func (ks *KeySet) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if ks.keys != nil && time.Since(ks.fetchedAt) < ks.ttl {
		if key, ok := ks.keys[kid]; ok {
			return key, nil
		}
		// Unknown kid inside the TTL window: the provider may have rotated.
		if time.Since(ks.fetchedAt) < minRefreshInterval {
			return nil, fmt.Errorf("unknown signing key %q", kid)
		}
	}

	if err := ks.refresh(ctx); err != nil {
		return nil, err
	}
	key, ok := ks.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

// jwk is the subset of an RFC 7517 key this service understands.
type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (ks *KeySet) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ks.endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build key set request: %w", err)
	}

	resp, err := ks.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch key set: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("key set fetch returned status %d", resp.StatusCode)
	}

	var doc struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode key set: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		key, err := parseRSAKey(k)
		if err != nil {
			ks.logger.Warn("skipping unparsable key in key set",
				zap.String("kid", k.Kid),
				zap.Error(err),
			)
			continue
		}
		keys[k.Kid] = key
	}
	if len(keys) == 0 {
		return errors.New("key set contains no usable RSA keys")
	}

	ks.keys = keys
	ks.fetchedAt = time.Now()
	ks.logger.Debug("key set refreshed", zap.Int("keys", len(keys)))
	return nil
}

func parseRSAKey(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}

	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e <= 0 {
		return nil, errors.New("non-positive exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}
