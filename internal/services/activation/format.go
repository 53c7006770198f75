package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// CodePrefix starts every activation code.
const CodePrefix = "SOLVIX-"

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 8
)

var codePattern = regexp.MustCompile(`^SOLVIX-[A-Z0-9]{8}$`)

// NormalizeCode trims and upper-cases user input.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidCodeFormat reports whether code is exactly SOLVIX- followed by eight
// upper-case letters or digits.
func ValidCodeFormat(code string) bool {
	return codePattern.MatchString(code)
}

// GenerateCode returns a new random code drawn uniformly from [A-Z0-9].
func GenerateCode() (string, error) {
	const op = "services.activation.GenerateCode"
	var b strings.Builder
	b.Grow(len(CodePrefix) + codeLength)
	b.WriteString(CodePrefix)

	limit := big.NewInt(int64(len(codeAlphabet)))
	for range codeLength {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
