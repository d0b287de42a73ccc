// Package secret implements the hex-style obfuscation codec applied to credentials
// before they are persisted in the configuration file.
//
// This is obfuscation, not encryption: it only keeps the API key from appearing
// verbatim in a plain-text config file.
package secret

import (
	"encoding/hex"
	"fmt"
)

// Encode transforms raw credential bytes into their lowercase hexadecimal representation.
func Encode(value string) string {
	return hex.EncodeToString([]byte(value))
}

// Decode reverses Encode, restoring the original credential bytes.
func Decode(encoded string) (string, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode credential: %w", err)
	}
	return string(raw), nil
}
