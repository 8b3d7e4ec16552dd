package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// ContentHash computes the deterministic content hash of a Message:
// SHA-256(role ∥ content ∥ created_at). Identical messages seen through
// different files hash identically and dedupe once per conversation.
func ContentHash(role Role, content string, createdAt int64) string {
	h := sha256.New()
	h.Write([]byte(role))
	h.Write([]byte(content))
	h.Write([]byte(strconv.FormatInt(createdAt, 10)))
	return hex.EncodeToString(h.Sum(nil))
}
