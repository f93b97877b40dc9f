package push

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"fmt"
	"math/big"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// vapidSigner mints the self-identification JWTs from RFC 8292. Tokens are
// cached per push-service origin until shortly before expiry.
type vapidSigner struct {
	privateKey *ecdsa.PrivateKey
	publicB64  string // base64url uncompressed point, sent as the k parameter
	subject    string

	mu     sync.Mutex
	tokens map[string]cachedToken
}

type cachedToken struct {
	header  string
	expires time.Time
}

func newVAPIDSigner(publicKey, privateKey, subject string) (*vapidSigner, error) {
	pubBytes, err := b64Decode(publicKey)
	if err != nil {
		return nil, fmt.Errorf("invalid VAPID public key: %w", err)
	}
	privBytes, err := b64Decode(privateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid VAPID private key: %w", err)
	}
	if len(pubBytes) != 65 || pubBytes[0] != 0x04 {
		return nil, fmt.Errorf("VAPID public key must be an uncompressed P-256 point")
	}
	if len(privBytes) != 32 {
		return nil, fmt.Errorf("VAPID private key must be a 32-byte P-256 scalar")
	}

	key := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(pubBytes[1:33]),
			Y:     new(big.Int).SetBytes(pubBytes[33:]),
		},
		D: new(big.Int).SetBytes(privBytes),
	}

	return &vapidSigner{
		privateKey: key,
		publicB64:  base64.RawURLEncoding.EncodeToString(pubBytes),
		subject:    subject,
		tokens:     make(map[string]cachedToken),
	}, nil
}

// authorizationHeader returns the "vapid t=..., k=..." value for the push
// service that owns the endpoint. The JWT audience is the endpoint's origin.
func (v *vapidSigner) authorizationHeader(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid push endpoint: %w", err)
	}
	audience := u.Scheme + "://" + u.Host

	v.mu.Lock()
	defer v.mu.Unlock()
	if cached, ok := v.tokens[audience]; ok && time.Now().Before(cached.expires) {
		return cached.header, nil
	}

	// RFC 8292 caps token lifetime at 24h; stay well under it.
	expiry := time.Now().Add(12 * time.Hour)
	claims := jwt.MapClaims{
		"aud": audience,
		"exp": expiry.Unix(),
		"sub": v.subject,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(v.privateKey)
	if err != nil {
		return "", err
	}

	header := fmt.Sprintf("vapid t=%s, k=%s", token, v.publicB64)
	v.tokens[audience] = cachedToken{header: header, expires: expiry.Add(-time.Hour)}
	return header, nil
}
