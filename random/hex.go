// Package random produces unguessable values for keys, tokens and OAuth state.
package random

import (
	"crypto/rand"
	"encoding/hex"
)

// Bytes generates n random bytes.
func Bytes(n int) []byte {
	bytes := make([]byte, n)

	_, err := rand.Read(bytes)
	if err != nil {
		panic(err)
	}

	return bytes
}

// String returns n random bytes hex encoded, so the result is 2n characters long.
func String(n int) string {
	return hex.EncodeToString(Bytes(n))
}
