package canon

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the lowercase hex SHA-256 of canonical bytes.
func Fingerprint(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// FingerprintValue canonicalizes v and fingerprints the result.
func FingerprintValue(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return Fingerprint(b), nil
}

// FingerprintJSON canonicalizes a JSON document and fingerprints the result.
func FingerprintJSON(data []byte) (string, error) {
	b, err := Canonicalize(data)
	if err != nil {
		return "", err
	}
	return Fingerprint(b), nil
}
