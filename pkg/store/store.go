// Package store persists session, completion and theme records behind a small
// key/value contract. Values are opaque bytes; JSON helpers cover the common
// case.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Load when a key has no value.
var ErrNotFound = errors.New("store: not found")

// ErrEmptyKey is returned for blank keys.
var ErrEmptyKey = errors.New("store: key is required")

// Store is the persistence contract shared by every backend. Clear on a
// missing key is not an error.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context, key string) error
}

// SessionKey is the key holding the last session started for formID.
func SessionKey(formID string) string {
	return "session:" + formID
}

// CompletionKey is the key holding the completion data of sessionID.
func CompletionKey(sessionID string) string {
	return "completion:" + sessionID
}

// ThemeKey is the key caching the merged theme of formID.
func ThemeKey(formID string) string {
	return "theme:" + formID
}

// LoadJSON loads key and decodes it into out.
func LoadJSON(ctx context.Context, s Store, key string, out any) error {
	raw, err := s.Load(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("store: decode %q: %w", key, err)
	}
	return nil
}

// SaveJSON encodes value and stores it under key.
func SaveJSON(ctx context.Context, s Store, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: encode %q: %w", key, err)
	}
	return s.Save(ctx, key, raw)
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return nil
}
