package storage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerSignAndVerify(t *testing.T) {
	now := time.Date(2020, 2, 10, 9, 0, 0, 0, time.UTC)
	signer := NewSignedURLSigner("secret", time.Hour).WithClock(func() time.Time { return now })

	token, expiresAt, err := signer.Sign("2020SP", "risks/2020SP_20200210_090000.csv")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), expiresAt)

	file, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "2020SP", file.Key)
	assert.Equal(t, "risks/2020SP_20200210_090000.csv", file.Path)
	assert.True(t, expiresAt.Equal(file.ExpiresAt))
}

func TestSignedURLSignerExpired(t *testing.T) {
	now := time.Date(2020, 2, 10, 9, 0, 0, 0, time.UTC)
	signer := NewSignedURLSigner("secret", time.Minute).WithClock(func() time.Time { return now })
	token, _, err := signer.Sign("2020SP", "risks/a.csv")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = signer.Verify(token)
	assert.True(t, errors.Is(err, ErrTokenExpired))
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Sign("2020SP", "risks/a.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "2020FA"
	_, err = signer.Verify(strings.Join(parts, "."))
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = NewSignedURLSigner("other", time.Hour).Verify(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))

	_, err = signer.Verify("garbage")
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestSignedURLSignerValidatesInput(t *testing.T) {
	_, _, err := NewSignedURLSigner("secret", time.Hour).Sign("a.b", "risks/a.csv")
	assert.Error(t, err)
	_, _, err = NewSignedURLSigner("", time.Hour).Sign("2020SP", "risks/a.csv")
	assert.Error(t, err)
}
