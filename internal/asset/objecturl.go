package asset

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

const defaultOrigin = "blueprint"

// ObjectURLs issues blob: URLs for in-memory payloads. Each URL is owned by the
// resolution that created it and must be revoked exactly once.
type ObjectURLs struct {
	origin string

	mu      sync.RWMutex
	objects map[string][]byte
	created int
	revoked int
}

// NewObjectURLs returns a registry whose URLs look like blob:<origin>/<uuid>.
func NewObjectURLs(origin string) *ObjectURLs {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" {
		origin = defaultOrigin
	}
	return &ObjectURLs{origin: origin, objects: make(map[string][]byte)}
}

// Create registers data and returns its object URL.
func (o *ObjectURLs) Create(data []byte) string {
	key := uuid.NewString()
	o.mu.Lock()
	o.objects[key] = data
	o.created++
	o.mu.Unlock()
	return o.prefix() + key
}

// Revoke releases url. It returns false when url was unknown or already revoked.
func (o *ObjectURLs) Revoke(url string) bool {
	key, ok := o.Key(url)
	if !ok {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, live := o.objects[key]; !live {
		return false
	}
	delete(o.objects, key)
	o.revoked++
	return true
}

// Open returns the payload for a live object key.
func (o *ObjectURLs) Open(key string) ([]byte, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	data, ok := o.objects[key]
	return data, ok
}

// Lookup returns the payload for a live object URL.
func (o *ObjectURLs) Lookup(url string) ([]byte, bool) {
	key, ok := o.Key(url)
	if !ok {
		return nil, false
	}
	return o.Open(key)
}

// Key extracts the registry key from an object URL issued by o.
func (o *ObjectURLs) Key(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, o.prefix())
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// Live returns the number of URLs created and not yet revoked.
func (o *ObjectURLs) Live() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.objects)
}

// Stats returns lifetime create and revoke counts.
func (o *ObjectURLs) Stats() (created, revoked int) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.created, o.revoked
}

func (o *ObjectURLs) prefix() string {
	return "blob:" + o.origin + "/"
}
