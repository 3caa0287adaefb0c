package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	passwordUppercase = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	passwordLowercase = "abcdefghijkmnopqrstuvwxyz"
	passwordDigits    = "23456789"
	passwordSymbols   = "!@#$%^&*"
	passwordAlphabet  = passwordUppercase + passwordLowercase + passwordDigits + passwordSymbols

	minTempPasswordLength = 8
)

// GenerateTempPassword produces a random password of at least the requested
// length containing at least one character from each class (upper, lower,
// digit, symbol). Ambiguous characters (0/O, 1/l/I) are excluded from the
// alphabets. Uses crypto/rand throughout, including an unbiased shuffle so
// the guaranteed class characters do not cluster at the front.
func GenerateTempPassword(length int) (string, error) {
	if length < minTempPasswordLength {
		length = minTempPasswordLength
	}

	chars := make([]byte, 0, length)
	for _, class := range []string{passwordUppercase, passwordLowercase, passwordDigits, passwordSymbols} {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}
	for len(chars) < length {
		c, err := randomChar(passwordAlphabet)
		if err != nil {
			return "", err
		}
		chars = append(chars, c)
	}

	// Fisher-Yates with crypto/rand indices.
	for i := len(chars) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", fmt.Errorf("failed to shuffle password: %w", err)
		}
		j := int(n.Int64())
		chars[i], chars[j] = chars[j], chars[i]
	}

	return string(chars), nil
}

func randomChar(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random character: %w", err)
	}
	return alphabet[n.Int64()], nil
}
