// Package fingerprint identifies the device an activation request comes from.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Header carries a fingerprint computed by the client.
const Header = "X-Device-Fingerprint"

const maxLength = 128

// FromRequest returns the client supplied fingerprint, or the SHA-256 hex
// digest of the User-Agent and Accept-Language headers when none is sent.
// A supplied value is cut to at most maxLength bytes of valid UTF-8.
func FromRequest(r *http.Request) string {
	fp := strings.TrimSpace(strings.ToValidUTF8(r.Header.Get(Header), ""))
	if fp != "" {
		return truncate(fp, maxLength)
	}
	sum := sha256.Sum256([]byte(r.UserAgent() + "|" + r.Header.Get("Accept-Language")))
	return hex.EncodeToString(sum[:])
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
