package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignerRoundTrip(t *testing.T) {
	signer := NewDownloadSigner("test-secret", time.Hour)

	token, expiresAt, err := signer.Sign("ledger_consultant-1.csv")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	name, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "ledger_consultant-1.csv", name)
}

func TestSignerRejectsTamperedToken(t *testing.T) {
	signer := NewDownloadSigner("test-secret", time.Hour)

	token, _, err := signer.Sign("ledger.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	// Swapping the file name without re-signing must fail.
	forged := strings.Join([]string{parts[0], "b3RoZXIuY3N2", parts[2]}, ".")
	_, err = signer.Verify(forged)
	assert.Error(t, err)

	// Tokens signed under another secret must fail too.
	other := NewDownloadSigner("another-secret", time.Hour)
	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestSignerRejectsExpiredToken(t *testing.T) {
	signer := NewDownloadSigner("test-secret", time.Hour)
	signer.ttl = -time.Minute

	token, _, err := signer.Sign("ledger.csv")
	require.NoError(t, err)

	_, err = signer.Verify(token)
	assert.ErrorContains(t, err, "expired")
}

func TestSignerRejectsMalformedToken(t *testing.T) {
	signer := NewDownloadSigner("test-secret", time.Hour)

	for _, token := range []string{"", "just-one-part", "a.b", "a.b.c.d"} {
		_, err := signer.Verify(token)
		assert.Error(t, err, "token %q", token)
	}
}
