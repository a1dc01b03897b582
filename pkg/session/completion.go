package session

import (
	"context"
	"fmt"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/store"
)

// Consume reads the completion data stored for sessionID and clears it, so a
// completion view renders it exactly once. A missing record yields an error
// matching store.ErrNotFound.
func Consume(ctx context.Context, s store.Store, sessionID string) (model.CompletionData, error) {
	var data model.CompletionData
	if sessionID == "" {
		return data, ErrNoSession
	}
	key := store.CompletionKey(sessionID)
	if err := store.LoadJSON(ctx, s, key, &data); err != nil {
		return data, err
	}
	if err := s.Clear(ctx, key); err != nil {
		return data, fmt.Errorf("session: clear completion: %w", err)
	}
	return data, nil
}
