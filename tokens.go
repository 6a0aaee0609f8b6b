package authcore

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/big"
)

// TokenEncoding selects the text form of a random token.
type TokenEncoding int

const (
	// HexEncoding yields 2n lowercase hex characters. Used for session tokens.
	HexEncoding TokenEncoding = iota

	// URLEncoding yields unpadded url-safe base64. Used for magic-link and reset tokens.
	URLEncoding
)

// Default sizes for generated secrets.
const (
	TokenBytes = 32
	OTPDigits  = 6
)

// RandomToken returns n bytes from the system CSPRNG in the given encoding.
func RandomToken(n int, enc TokenEncoding) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	if enc == URLEncoding {
		return base64.RawURLEncoding.EncodeToString(b), nil
	}
	return hex.EncodeToString(b), nil
}

// GenerateSessionToken returns a 64 character hex token.
func GenerateSessionToken() (string, error) {
	return RandomToken(TokenBytes, HexEncoding)
}

// GenerateURLToken returns a url-safe token suitable for links.
func GenerateURLToken() (string, error) {
	return RandomToken(TokenBytes, URLEncoding)
}

// RandomNumericCode returns a uniformly distributed decimal code of exactly
// digits characters, zero padded. digits must be at most 18.
func RandomNumericCode(digits int) (string, error) {
	if digits <= 0 {
		digits = OTPDigits
	}
	if digits > 18 {
		return "", fmt.Errorf("code length %d out of range", digits)
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
