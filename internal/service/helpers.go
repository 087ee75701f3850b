package service

import (
	"time"
)

// GetExpiresAt turns an OAuth expires_in value into an absolute time.
func GetExpiresAt(expiresIn int) time.Time {
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}
