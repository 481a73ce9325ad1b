package device

import (
	"crypto/rand"
	"fmt"
	"time"
)

// storageKey is the key the identity is persisted under.
const storageKey = "user_device_id"

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// Storage is durable local key-value storage scoped to the device.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Resolver hands out the device identity: generated once, persisted,
// then returned unchanged on every later call.
type Resolver struct {
	store Storage
}

func NewResolver(store Storage) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the persisted identity, generating and persisting a
// fresh one on first use. Repeated calls against the same storage
// return the identical value.
func (r *Resolver) Resolve() (string, error) {
	if v, ok, err := r.store.Get(storageKey); err != nil {
		return "", err
	} else if ok && v != "" {
		return v, nil
	}

	id := generateID()
	if err := r.store.Set(storageKey, id); err != nil {
		return "", err
	}
	return id, nil
}

// generateID builds "user_" + 9 random base36 chars + millisecond
// timestamp. The timestamp keeps ids unique even if two devices draw
// the same random token.
func generateID() string {
	b := make([]byte, 9)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing is effectively unreachable; fall back to
		// a timestamp-only id rather than aborting identity resolution
		return fmt.Sprintf("user_%d", time.Now().UnixNano())
	}
	for i := range b {
		b[i] = base36[int(b[i])%len(base36)]
	}
	return fmt.Sprintf("user_%s%d", string(b), time.Now().UnixMilli())
}
