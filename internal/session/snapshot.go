package session

import (
	"time"

	"immobilier-assistant/internal/domain"
)

// Snapshot is the serializable state of a session. Version is owned by the
// store that persists it. PendingID is the id of the user message whose reply
// is awaited.
type Snapshot struct {
	ID        string           `json:"id"`
	Language  domain.Language  `json:"language"`
	Messages  []domain.Message `json:"messages"`
	Draft     string           `json:"draft"`
	Loading   bool             `json:"loading"`
	PendingID string           `json:"pendingId,omitempty"`
	Open      bool             `json:"open"`
	Seq       int64            `json:"seq"`
	Version   int64            `json:"version"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Snapshot captures the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]domain.Message, len(s.messages))
	copy(msgs, s.messages)
	return Snapshot{
		ID:        s.cfg.ID,
		Language:  s.language,
		Messages:  msgs,
		Draft:     s.draft,
		Loading:   s.loading,
		PendingID: s.pendingID,
		Open:      s.open,
		Seq:       s.seq,
		Version:   s.version,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
}
