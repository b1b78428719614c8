package utils

import (
	"github.com/google/uuid"
)

// GenerateUserID returns a random UUID v4 string.
func GenerateUserID() string {
	return uuid.NewString()
}

// GenerateLockToken identifies the holder of a registration lock.
func GenerateLockToken() string {
	return "lock_" + uuid.NewString()
}
