package id

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// New returns a random job identifier: a v4 UUID in 32 hex characters.
func New() string {
	u, err := uuid.NewRandom()
	if err != nil {
		return "job-fallback-id"
	}
	return hex.EncodeToString(u[:])
}
