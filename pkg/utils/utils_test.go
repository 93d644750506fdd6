package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestEncryptDecrypt(t *testing.T) {
	sealed, err := Encrypt([]byte("act.tiktok-token"), []byte(testKey))
	require.NoError(t, err)
	assert.NotContains(t, sealed, "tiktok")

	plain, err := Decrypt(sealed, []byte(testKey))
	require.NoError(t, err)
	assert.Equal(t, "act.tiktok-token", plain)
}

func TestDecrypt_WrongKey(t *testing.T) {
	sealed, err := Encrypt([]byte("secret"), []byte(testKey))
	require.NoError(t, err)

	_, err = Decrypt(sealed, []byte("fedcba9876543210fedcba9876543210"))
	assert.Error(t, err)
}

func TestDecrypt_TooShort(t *testing.T) {
	_, err := Decrypt("AAAA", []byte(testKey))
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestValidateToken(t *testing.T) {
	token, err := GenerateToken("jwt-secret", "5b1c7a0e-8d43-4a53-9a51-2f6f1f6b0c11", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken("jwt-secret", token)
	require.NoError(t, err)
	assert.Equal(t, "5b1c7a0e-8d43-4a53-9a51-2f6f1f6b0c11", claims.Subject)
	assert.Equal(t, "authenticated", claims.Role)

	_, err = ValidateToken("other-secret", token)
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	token, err := GenerateToken("jwt-secret", "user", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken("jwt-secret", token)
	assert.Error(t, err)
}

func TestGenerateRandomKey(t *testing.T) {
	a, err := GenerateRandomKey(24)
	require.NoError(t, err)
	b, err := GenerateRandomKey(24)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
