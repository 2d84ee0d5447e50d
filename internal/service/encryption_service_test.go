package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAESKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func newTestCipher(t *testing.T) *AESEncryptionService {
	t.Helper()
	svc, err := NewAESEncryptionService(testAESKey, "kyc-document")
	require.NoError(t, err)
	return svc
}

func TestAESEncryptionService_RejectsBadKeys(t *testing.T) {
	_, err := NewAESEncryptionService("zz", "kyc-document")
	assert.Error(t, err)

	_, err = NewAESEncryptionService("0123456789abcdef", "kyc-document")
	assert.ErrorContains(t, err, "32 bytes")
}

func TestAESEncryptionService_RoundTrip(t *testing.T) {
	svc := newTestCipher(t)

	sealed, err := svc.Encrypt("A1234567")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sealed, "v1."))
	assert.NotContains(t, sealed, "A1234567")

	plain, err := svc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, "A1234567", plain)
}

func TestAESEncryptionService_FreshNoncePerCall(t *testing.T) {
	svc := newTestCipher(t)

	a, err := svc.Encrypt("same")
	require.NoError(t, err)
	b, err := svc.Encrypt("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestAESEncryptionService_PurposeIsBound(t *testing.T) {
	kyc := newTestCipher(t)
	other, err := NewAESEncryptionService(testAESKey, "something-else")
	require.NoError(t, err)

	sealed, err := kyc.Encrypt("P-998877")
	require.NoError(t, err)

	_, err = other.Decrypt(sealed)
	assert.Error(t, err)
}

func TestAESEncryptionService_RejectsTampering(t *testing.T) {
	svc := newTestCipher(t)

	sealed, err := svc.Encrypt("P-998877")
	require.NoError(t, err)

	flipped := []byte(sealed)
	last := len(flipped) - 1
	if flipped[last] == 'A' {
		flipped[last] = 'B'
	} else {
		flipped[last] = 'A'
	}
	_, err = svc.Decrypt(string(flipped))
	assert.Error(t, err)
}

func TestAESEncryptionService_RejectsMalformedInput(t *testing.T) {
	svc := newTestCipher(t)

	for _, in := range []string{"", "v2.abcd", "v1.!!!", "v1.AAAA"} {
		_, err := svc.Decrypt(in)
		assert.Error(t, err, in)
	}
}
