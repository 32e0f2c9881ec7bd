package security

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/pquerna/otp/totp"
)

// TOTPKey is what an authenticator app needs to enrol.
type TOTPKey struct {
	Secret string // Base32, compatible with Google Authenticator
	URL    string // otpauth:// URI for QR code generation
}

// GenerateTOTPKey creates a new TOTP secret bound to the account name.
func GenerateTOTPKey(issuer, accountName string) (TOTPKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
	})
	if err != nil {
		return TOTPKey{}, fmt.Errorf("generate totp key: %w", err)
	}
	return TOTPKey{Secret: key.Secret(), URL: key.URL()}, nil
}

// VerifyTOTPCode checks if the provided 6-digit code is valid for the given secret.
func VerifyTOTPCode(code, secret string) bool {
	return totp.Validate(code, secret)
}

// GenerateNumericCode returns a uniformly random decimal code of the given length,
// used for SMS and email delivery.
func GenerateNumericCode(digits int) (string, error) {
	if digits <= 0 || digits > 18 {
		return "", fmt.Errorf("invalid code length %d", digits)
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
