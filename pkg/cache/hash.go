package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Key derives a content key "prefix:<sha256>" from parts. Parts are encoded
// as one JSON array, so slices of nodes and edges hash by value.
func Key(prefix string, parts ...any) string {
	h := sha256.New()
	_ = json.NewEncoder(h).Encode(parts)
	return prefix + ":" + hex.EncodeToString(h.Sum(nil))
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
