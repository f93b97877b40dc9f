// Package push delivers Web Push notifications. Payloads are encrypted with
// the aes128gcm content coding from RFC 8291 (ECDH over P-256, HKDF-SHA-256,
// AES-128-GCM) and requests are authenticated with VAPID (RFC 8292).
package push

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MeechYourGoals/chravel-server/internal/core/notify"
	"github.com/MeechYourGoals/chravel-server/internal/store"
	"golang.org/x/crypto/hkdf"
)

const (
	recordSize     = 4096
	maxPlaintext   = recordSize - 16 /* GCM tag */ - 1 /* delimiter */ - 86 /* header block */
	defaultPushTTL = 60 * 60                                                // seconds the push service may hold the message
)

type Service struct {
	vapid  *vapidSigner
	client *http.Client
}

func NewService(vapidPublic, vapidPrivate, subject string) (*Service, error) {
	signer, err := newVAPIDSigner(vapidPublic, vapidPrivate, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to load VAPID keys: %w", err)
	}
	return &Service{
		vapid:  signer,
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Send encrypts the payload for one subscription and posts it to the
// subscription's push service endpoint.
func (s *Service) Send(ctx context.Context, sub store.PushSubscription, payload []byte) error {
	body, err := Encrypt(payload, sub.P256dh, sub.Auth)
	if err != nil {
		return fmt.Errorf("failed to encrypt push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Encoding", "aes128gcm")
	req.Header.Set("TTL", fmt.Sprintf("%d", defaultPushTTL))

	authz, err := s.vapid.authorizationHeader(sub.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to build VAPID header: %w", err)
	}
	req.Header.Set("Authorization", authz)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return notify.ErrSubscriptionGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

// Encrypt implements the aes128gcm content coding from RFC 8291 for a single
// record. p256dh is the browser's public key, auth its 16-byte auth secret,
// both base64url as delivered by PushSubscription.getKey.
func Encrypt(plaintext []byte, p256dh, auth string) ([]byte, error) {
	if len(plaintext) > maxPlaintext {
		return nil, fmt.Errorf("payload of %d bytes exceeds single-record limit", len(plaintext))
	}

	uaPublicBytes, err := b64Decode(p256dh)
	if err != nil {
		return nil, fmt.Errorf("invalid p256dh key: %w", err)
	}
	authSecret, err := b64Decode(auth)
	if err != nil {
		return nil, fmt.Errorf("invalid auth secret: %w", err)
	}

	curve := ecdh.P256()
	uaPublic, err := curve.NewPublicKey(uaPublicBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid subscription public key: %w", err)
	}
	asKey, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	sharedSecret, err := asKey.ECDH(uaPublic)
	if err != nil {
		return nil, fmt.Errorf("ECDH agreement failed: %w", err)
	}
	asPublicBytes := asKey.PublicKey().Bytes()

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	cek, nonce, err := deriveKeys(sharedSecret, authSecret, uaPublicBytes, asPublicBytes, salt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	// Single record: plaintext, then the 0x02 last-record delimiter.
	record := append(append([]byte{}, plaintext...), 0x02)
	ciphertext := gcm.Seal(nil, nonce, record, nil)

	// Header block: salt(16) | rs(4) | idlen(1) | keyid(65).
	out := make([]byte, 0, 16+4+1+len(asPublicBytes)+len(ciphertext))
	out = append(out, salt...)
	out = binary.BigEndian.AppendUint32(out, recordSize)
	out = append(out, byte(len(asPublicBytes)))
	out = append(out, asPublicBytes...)
	out = append(out, ciphertext...)
	return out, nil
}

// deriveKeys runs the RFC 8291 HKDF schedule: the ECDH secret is extracted
// with the auth secret, expanded with the "WebPush: info" binding of both
// public keys, then salt-extracted and expanded into the content key and nonce.
func deriveKeys(sharedSecret, authSecret, uaPublic, asPublic, salt []byte) (cek, nonce []byte, err error) {
	keyInfo := append(append([]byte("WebPush: info\x00"), uaPublic...), asPublic...)
	prkKey := hkdf.Extract(sha256.New, sharedSecret, authSecret)
	ikm := make([]byte, 32)
	if _, err = io.ReadFull(hkdf.Expand(sha256.New, prkKey, keyInfo), ikm); err != nil {
		return nil, nil, err
	}

	prk := hkdf.Extract(sha256.New, ikm, salt)
	cek = make([]byte, 16)
	if _, err = io.ReadFull(hkdf.Expand(sha256.New, prk, []byte("Content-Encoding: aes128gcm\x00")), cek); err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, 12)
	if _, err = io.ReadFull(hkdf.Expand(sha256.New, prk, []byte("Content-Encoding: nonce\x00")), nonce); err != nil {
		return nil, nil, err
	}
	return cek, nonce, nil
}

// b64Decode accepts both padded and unpadded base64url, which browsers vary on.
func b64Decode(s string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.URLEncoding.DecodeString(s)
}
