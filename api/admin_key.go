package api

import (
	"crypto/hmac"
	"sync/atomic"
)

const adminKeyHeader = "X-Admin-API-Key"

// AdminKey holds the administrator key. It can be rotated while requests
// are being served.
type AdminKey struct {
	value atomic.Value
}

func NewAdminKey(key string) *AdminKey {
	k := &AdminKey{}
	k.Set(key)
	return k
}

func (k *AdminKey) Set(key string) {
	k.value.Store(key)
}

// Matches compares in constant time; an empty key never matches
func (k *AdminKey) Matches(provided string) bool {
	expected, _ := k.value.Load().(string)
	if expected == "" || provided == "" {
		return false
	}
	return hmac.Equal([]byte(provided), []byte(expected))
}
