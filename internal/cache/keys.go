package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// keyPrefixLen is how many hex characters of the text fingerprint go
// into the cache key. 64 bits keeps keys short while making accidental
// collisions between distinct texts vanishingly unlikely.
const keyPrefixLen = 16

// PredictionKey derives the cache key for an input text. The key carries
// a truncated SHA-256 fingerprint instead of the raw text, so user input
// never appears in the keyspace and key size stays bounded.
//
// Format: pred:<hex(sha256(text))[:16]>
func PredictionKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "pred:" + hex.EncodeToString(sum[:])[:keyPrefixLen]
}

// RateLimitKey namespaces the sliding-window counter for a client.
func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:%s", client)
}
