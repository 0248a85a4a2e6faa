package hashutil

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

func Blake3Hash(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Fingerprint is a short, stable identifier for a prompt or image.
func Fingerprint(data []byte) string {
	return Blake3Hash(data)[:16]
}
