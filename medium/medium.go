// Package medium defines the persistent key-value medium that record
// collections are serialized into, and its implementations.
package medium

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Medium is a synchronous string-keyed key-value store, modeled on the
// browser's local storage. Each key holds one opaque string value.
type Medium interface {
	// GetItem returns the value stored under key. ok is false if the key
	// is absent.
	GetItem(key string) (value string, ok bool, err error)

	// SetItem stores value under key, replacing any previous value.
	SetItem(key, value string) error

	// RemoveItem deletes key. Returns true if it existed.
	RemoveItem(key string) (bool, error)

	// Keys returns every key currently holding a value, sorted.
	Keys() ([]string, error)
}

// Usage estimates how much of the medium is in use: the byte length of all
// entries serialized together as a single JSON object. Lengths are UTF-8
// bytes, not UTF-16 code units.
func Usage(m Medium) (int, error) {
	keys, err := m.Keys()
	if err != nil {
		return 0, fmt.Errorf("list keys: %w", err)
	}
	all := make(map[string]string, len(keys))
	for _, k := range keys {
		v, ok, err := m.GetItem(k)
		if err != nil {
			return 0, fmt.Errorf("get %q: %w", k, err)
		}
		if ok {
			all[k] = v
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(all); err != nil {
		return 0, err
	}
	// Encode appends a newline.
	return buf.Len() - 1, nil
}
