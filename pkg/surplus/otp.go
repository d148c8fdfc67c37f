package surplus

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

var otpPattern = regexp.MustCompile(`^[0-9]{6}$`)

var otpSpace = big.NewInt(1_000_000)

// GenerateOTP returns a uniformly random 6 digit code, zero padded.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func IsValidOTP(code string) bool {
	return otpPattern.MatchString(code)
}
