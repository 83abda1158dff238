package cardnum

import (
	"crypto/hmac"
	"crypto/sha256"
)

// Hash computes HMAC-SHA256 over a normalized PAN. Only the hash is stored.
func Hash(pan string, key []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(Normalize(pan)))
	return h.Sum(nil)
}
