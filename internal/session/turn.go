package session

import (
	"context"
	"strings"

	"immobilier-assistant/internal/domain"
	"immobilier-assistant/internal/i18n"
)

// Turn is an accepted submission whose reply is still pending.
type Turn struct {
	User    domain.Message
	Request domain.CompletionRequest
}

// Submit sends text to the language model and appends the user turn followed
// by the reply, or by the localized failure notice when the call fails. It
// returns ErrEmptyInput or ErrBusy, without changing state, when the
// submission is rejected; call failures are never returned.
func (s *Session) Submit(ctx context.Context, text string) (domain.Message, error) {
	turn, err := s.BeginTurn(text)
	if err != nil {
		return domain.Message{}, err
	}
	resp, callErr := s.generate(context.WithoutCancel(ctx), turn.Request)
	return s.CompleteTurn(turn.User.ID, resp.Text, callErr)
}

// Send submits the current draft.
func (s *Session) Send(ctx context.Context) (domain.Message, error) {
	return s.Submit(ctx, s.Draft())
}

// BeginTurn appends the user message, clears the draft and enters the
// awaiting state. The returned request must be answered with CompleteTurn,
// passing the id of the returned user message.
func (s *Session) BeginTurn(text string) (Turn, error) {
	if isBlank(text) {
		return Turn{}, ErrEmptyInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return Turn{}, ErrBusy
	}

	history := s.historyLocked()
	user := s.appendLocked(domain.RoleUser, text)
	s.draft = ""
	s.loading = true
	s.pendingID = user.ID

	return Turn{
		User: user,
		Request: domain.CompletionRequest{
			SystemInstruction: Instruction(s.language, s.cfg.Dictionary, s.cfg.Routes),
			Message:           text,
			History:           history,
		},
	}, nil
}

// CompleteTurn records the outcome of the pending call started by the user
// message turnID and returns to idle. A non-nil callErr is logged and replaced
// by the localized failure notice. A reply for any other turn is rejected with
// ErrStaleTurn and leaves the session untouched.
func (s *Session) CompleteTurn(turnID, reply string, callErr error) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loading {
		return domain.Message{}, ErrNoPendingTurn
	}
	if turnID != s.pendingID {
		return domain.Message{}, ErrStaleTurn
	}
	s.loading = false
	s.pendingID = ""

	if callErr != nil {
		s.cfg.Logger.Error("chat request failed",
			"session_id", s.cfg.ID,
			"language", s.language,
			"err", callErr,
		)
		return s.appendLocked(domain.RoleModel, s.cfg.Dictionary.Lookup(s.language, i18n.KeyError)), nil
	}

	if s.cfg.ClientQuickReplies {
		reply = withQuickReplies(reply, s.language, s.cfg.Dictionary, s.cfg.Routes)
	}
	return s.appendLocked(domain.RoleModel, reply), nil
}

func (s *Session) generate(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	if s.cfg.LLM == nil {
		return domain.CompletionResponse{}, errNoModelBackend
	}
	return s.cfg.LLM.Generate(ctx, req)
}

// historyLocked returns the last HistoryWindow messages of the log.
func (s *Session) historyLocked() []domain.Message {
	n := s.cfg.HistoryWindow
	if n == 0 || len(s.messages) == 0 {
		return nil
	}
	start := len(s.messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]domain.Message, len(s.messages)-start)
	copy(out, s.messages[start:])
	return out
}

func withQuickReplies(reply string, lang domain.Language, dict *i18n.Dictionary, tbl routeLabels) string {
	list := quickReplyList(lang, tbl)
	trimmed := strings.TrimRight(reply, " \t\r\n")
	if strings.HasSuffix(trimmed, list) {
		return reply
	}
	return trimmed + "\n\n" + QuickReplyBlock(lang, dict, tbl)
}
