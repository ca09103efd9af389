package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DownloadSigner mints and checks expiring download tokens for stored exports.
type DownloadSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewDownloadSigner builds a signer with the given secret and token TTL.
func NewDownloadSigner(secret string, ttl time.Duration) *DownloadSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DownloadSigner{secret: []byte(secret), ttl: ttl}
}

// Sign returns a token granting download access to the named file until
// the TTL lapses.
func (s *DownloadSigner) Sign(name string) (string, time.Time, error) {
	if name == "" {
		return "", time.Time{}, fmt.Errorf("file name required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := time.Now().Add(s.ttl)
	encoded := base64.RawURLEncoding.EncodeToString([]byte(name))
	token := strings.Join([]string{
		strconv.FormatInt(expiresAt.Unix(), 10),
		encoded,
		s.signature(expiresAt.Unix(), encoded),
	}, ".")
	return token, expiresAt, nil
}

// Verify checks a token's signature and expiry and returns the file name
// it grants access to.
func (s *DownloadSigner) Verify(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("invalid token format")
	}

	expUnix, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid token timestamp")
	}

	expected := s.signature(expUnix, parts[1])
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return "", fmt.Errorf("invalid token signature")
	}
	if time.Now().After(time.Unix(expUnix, 0)) {
		return "", fmt.Errorf("token expired")
	}

	name, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("decode file name: %w", err)
	}
	return string(name), nil
}

func (s *DownloadSigner) signature(expUnix int64, encodedName string) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%d|%s", expUnix, encodedName)
	return hex.EncodeToString(mac.Sum(nil))
}
