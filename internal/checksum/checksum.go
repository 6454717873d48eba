package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// shortLen is the number of hex digits kept by Short.
const shortLen = 12

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Short returns a truncated digest of the trimmed text, used for stable ids.
func Short(text string) string {
	return Sum([]byte(strings.TrimSpace(text)))[:shortLen]
}
