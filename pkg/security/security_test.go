package security

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Small parameters keep the suite fast.
var testParams = HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestPasswordHasher_Argon2RoundTrip(t *testing.T) {
	h := NewPasswordHasher(testParams)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := h.Matches("correct horse", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Matches("battery staple", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasher_SaltsDiffer(t *testing.T) {
	h := NewPasswordHasher(testParams)
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPasswordHasher_LegacyBcrypt(t *testing.T) {
	h := NewPasswordHasher(testParams)
	legacy, err := bcrypt.GenerateFromPassword([]byte("imported-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := h.Matches("imported-pass", string(legacy))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Matches("wrong", string(legacy))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasher_MalformedHash(t *testing.T) {
	h := NewPasswordHasher(testParams)
	ok, err := h.Matches("x", "$argon2id$broken")
	assert.ErrorIs(t, err, ErrInvalidHash)
	assert.False(t, ok)
}

func TestTOTP_GenerateAndVerify(t *testing.T) {
	key, err := GenerateTOTPKey("SentinelTrust", "user@example.com")
	require.NoError(t, err)
	assert.Contains(t, key.URL, "otpauth://totp/")

	code, err := totp.GenerateCode(key.Secret, time.Now())
	require.NoError(t, err)
	assert.True(t, VerifyTOTPCode(code, key.Secret))
	assert.False(t, VerifyTOTPCode("000000x", key.Secret))
}

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(6)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9')
	}

	_, err = GenerateNumericCode(0)
	assert.Error(t, err)
}
