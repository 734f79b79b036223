// Package session implements the conversational state of one assistant widget
// instance: the append-only message log, the single in-flight request to the
// language model, the greeting, and quick-reply routing.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"immobilier-assistant/internal/domain"
	"immobilier-assistant/internal/i18n"
	"immobilier-assistant/internal/routes"
)

var (
	ErrEmptyInput     = errors.New("session: input is empty")
	ErrBusy           = errors.New("session: a reply is already pending")
	ErrNoPendingTurn  = errors.New("session: no reply is pending")
	ErrStaleTurn      = errors.New("session: reply belongs to an expired turn")
	ErrUnknownAction  = errors.New("session: not a quick action")
	errNoModelBackend = errors.New("session: no language model configured")
)

// Generator performs the outbound language-model call.
type Generator interface {
	Generate(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error)
}

// Navigator moves the host page to another site path.
type Navigator interface {
	NavigateTo(path string)
}

// State is the request-cycle state of a session.
type State string

const (
	StateIdle     State = "idle"
	StateAwaiting State = "awaiting"
)

// Config carries the collaborators and settings of a session.
type Config struct {
	ID       string
	Language domain.Language

	LLM        Generator
	Dictionary *i18n.Dictionary
	Routes     *routes.Table
	Navigator  Navigator
	Logger     *slog.Logger

	// HistoryWindow is the number of prior turns forwarded with each request.
	// Zero sends the latest user message only.
	HistoryWindow int
	// ClientQuickReplies appends the localized quick-reply block to replies
	// that do not already end with it.
	ClientQuickReplies bool

	Now func() time.Time
}

// Session is one conversation. It is safe for concurrent use; at most one
// language-model call is in flight at a time.
type Session struct {
	cfg Config

	mu        sync.Mutex
	language  domain.Language
	messages  []domain.Message
	draft     string
	loading   bool
	pendingID string
	open      bool
	seq       int64
	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// New creates an empty, closed, idle session. Call Greet on first render.
func New(cfg Config) (*Session, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	now := cfg.Now()
	return &Session{
		cfg:       cfg,
		language:  cfg.Language,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Restore rebuilds a session from a snapshot. The snapshot's id and language
// take precedence over cfg.
func Restore(snap Snapshot, cfg Config) (*Session, error) {
	cfg.ID = snap.ID
	cfg.Language = snap.Language
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	msgs := make([]domain.Message, len(snap.Messages))
	copy(msgs, snap.Messages)
	return &Session{
		cfg:       cfg,
		language:  snap.Language,
		messages:  msgs,
		draft:     snap.Draft,
		loading:   snap.Loading,
		pendingID: snap.PendingID,
		open:      snap.Open,
		seq:       snap.Seq,
		version:   snap.Version,
		createdAt: snap.CreatedAt,
		updatedAt: snap.UpdatedAt,
	}, nil
}

func (c *Config) normalize() error {
	if _, err := domain.ParseLanguage(string(c.Language)); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if c.Dictionary == nil {
		c.Dictionary = i18n.Default()
	}
	if c.Routes == nil {
		tbl, err := routes.NewTable(c.Dictionary)
		if err != nil {
			return fmt.Errorf("session: build route table: %w", err)
		}
		c.Routes = tbl
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.HistoryWindow < 0 {
		c.HistoryWindow = 0
	}
	return nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.cfg.ID
}

// Language returns the active language.
func (s *Session) Language() domain.Language {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.language
}

// Messages returns a copy of the log in chronological order.
func (s *Session) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Draft returns the unsent input text.
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// State reports whether a reply is pending.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return StateAwaiting
	}
	return StateIdle
}

// IsLoading is true exactly while a language-model call is in flight.
func (s *Session) IsLoading() bool {
	return s.State() == StateAwaiting
}

// IsOpen reports whether the widget is visible.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Greet seeds the localized greeting when the log is empty. It reports
// whether a greeting was added.
func (s *Session) Greet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.greetLocked()
}

func (s *Session) greetLocked() bool {
	if len(s.messages) > 0 {
		return false
	}
	s.appendLocked(domain.RoleModel, s.cfg.Dictionary.Lookup(s.language, i18n.KeyGreeting))
	return true
}

// SetLanguage switches the active language. The greeting is only seeded if the
// log is still empty; an existing conversation is never touched.
func (s *Session) SetLanguage(lang domain.Language) error {
	if _, err := domain.ParseLanguage(string(lang)); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = lang
	s.greetLocked()
	s.touchLocked()
	return nil
}

// SetDraft replaces the unsent input text.
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = text
	s.touchLocked()
}

// Open shows the widget.
func (s *Session) Open() { s.setOpen(true) }

// Close hides the widget. A pending reply is not cancelled and is still
// appended when it arrives.
func (s *Session) Close() { s.setOpen(false) }

// Toggle flips visibility and returns the new value.
func (s *Session) Toggle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = !s.open
	s.touchLocked()
	return s.open
}

func (s *Session) setOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = open
	s.touchLocked()
}

func (s *Session) appendLocked(role domain.Role, text string) domain.Message {
	msg := domain.Message{ID: s.nextIDLocked(), Role: role, Text: text}
	s.messages = append(s.messages, msg)
	s.touchLocked()
	return msg
}

// nextIDLocked issues millisecond timestamps, bumped past the previous id so
// ids stay strictly increasing within a session.
func (s *Session) nextIDLocked() string {
	id := s.cfg.Now().UnixMilli()
	if id <= s.seq {
		id = s.seq + 1
	}
	s.seq = id
	return strconv.FormatInt(id, 10)
}

func (s *Session) touchLocked() {
	s.updatedAt = s.cfg.Now()
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
