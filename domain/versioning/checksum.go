package versioning

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Checksum returns the content version of a stored value. Two values
// with the same bytes always share a checksum.
func Checksum(value []byte) string {
	sum := sha256.Sum256(value)
	return hex.EncodeToString(sum[:])
}

// Counter formats a numeric item version as an opaque token
func Counter(version int64) string {
	if version <= 0 {
		return ""
	}
	return strconv.FormatInt(version, 10)
}

// ParseCounter reads a token produced by Counter. An empty token is version 0.
func ParseCounter(token string) (int64, bool) {
	if token == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(token, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// ETag quotes a version token for use in HTTP headers
func ETag(version string) string {
	if version == "" {
		return ""
	}
	return `"` + version + `"`
}

// ParseETag strips quotes and the weak prefix from an If-Match value
func ParseETag(header string) string {
	header = strings.TrimSpace(header)
	header = strings.TrimPrefix(header, "W/")
	return strings.Trim(header, `"`)
}
