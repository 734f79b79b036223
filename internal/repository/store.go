// Package repository persists session snapshots between requests.
package repository

import (
	"context"
	"errors"
	"fmt"

	"immobilier-assistant/internal/session"
)

var (
	ErrNotFound = errors.New("repository: session not found")
	ErrConflict = errors.New("repository: version conflict")
)

// maxUpdateAttempts bounds the reload-and-retry loop of Update.
const maxUpdateAttempts = 8

// Store persists snapshots with optimistic concurrency. Save succeeds only if
// the stored version still equals snap.Version (zero meaning "absent") and
// returns the new version.
type Store interface {
	Load(ctx context.Context, id string) (session.Snapshot, error)
	Save(ctx context.Context, snap session.Snapshot) (int64, error)
	Delete(ctx context.Context, id string) error
}

// Update loads id, applies fn and saves the result conditioned on the loaded
// version. On ErrConflict the snapshot is reloaded and fn runs again, so fn
// must be safe to repeat. An error from fn aborts without writing.
func Update(ctx context.Context, st Store, id string, fn func(*session.Snapshot) error) (session.Snapshot, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		snap, err := st.Load(ctx, id)
		if err != nil {
			return session.Snapshot{}, err
		}
		if err := fn(&snap); err != nil {
			return session.Snapshot{}, err
		}
		version, err := st.Save(ctx, snap)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return session.Snapshot{}, err
		}
		snap.Version = version
		return snap, nil
	}
	return session.Snapshot{}, fmt.Errorf("repository: update %s: %w", id, ErrConflict)
}
