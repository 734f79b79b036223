package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"immobilier-assistant/internal/domain"
	"immobilier-assistant/internal/i18n"
	"immobilier-assistant/internal/repository"
	"immobilier-assistant/internal/routes"
	"immobilier-assistant/internal/session"
)

const defaultPendingTimeout = 2 * time.Minute

var errStalePending = errors.New("usecase: pending reply never completed")

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// ChatConfig wires a ChatService.
type ChatConfig struct {
	LLM             session.Generator
	Store           repository.Store
	Dictionary      *i18n.Dictionary
	Routes          *routes.Table
	DefaultLanguage domain.Language
	Logger          *slog.Logger
	Metrics         Recorder

	HistoryWindow      int
	ClientQuickReplies bool
	// PendingTimeout is how long a session may stay awaiting a reply before
	// the next submission treats the earlier call as lost.
	PendingTimeout time.Duration

	Now func() time.Time
}

// ChatService runs sessions whose state lives in a Store, so each operation
// can be served by a different process.
type ChatService struct {
	llm             session.Generator
	store           repository.Store
	dict            *i18n.Dictionary
	routes          *routes.Table
	defaultLanguage domain.Language
	logger          *slog.Logger
	metrics         Recorder

	historyWindow      int
	clientQuickReplies bool
	pendingTimeout     time.Duration
	now                func() time.Time
}

// SessionView is the client-facing state of a session.
type SessionView struct {
	ID          string
	Language    domain.Language
	Direction   string
	Messages    []domain.Message
	Draft       string
	Loading     bool
	Open        bool
	Placeholder string
}

// SendOutput carries the appended reply along with the updated session.
type SendOutput struct {
	Reply   domain.Message
	Session SessionView
}

// ActionOutput carries the result of a quick-reply or quick-action click.
type ActionOutput struct {
	Action  session.Action
	Session SessionView
}

func NewChatService(cfg ChatConfig) (*ChatService, error) {
	if cfg.Store == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if cfg.LLM == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if cfg.Dictionary == nil {
		cfg.Dictionary = i18n.Default()
	}
	if cfg.Routes == nil {
		tbl, err := routes.NewTable(cfg.Dictionary)
		if err != nil {
			return nil, err
		}
		cfg.Routes = tbl
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = domain.LanguageEnglish
	}
	if _, err := domain.ParseLanguage(string(cfg.DefaultLanguage)); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopRecorder{}
	}
	if cfg.PendingTimeout <= 0 {
		cfg.PendingTimeout = defaultPendingTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ChatService{
		llm:                cfg.LLM,
		store:              cfg.Store,
		dict:               cfg.Dictionary,
		routes:             cfg.Routes,
		defaultLanguage:    cfg.DefaultLanguage,
		logger:             cfg.Logger,
		metrics:            cfg.Metrics,
		historyWindow:      cfg.HistoryWindow,
		clientQuickReplies: cfg.ClientQuickReplies,
		pendingTimeout:     cfg.PendingTimeout,
		now:                cfg.Now,
	}, nil
}

// CreateSession starts a greeted session in the requested language.
func (s *ChatService) CreateSession(ctx context.Context, language string) (SessionView, error) {
	lang, err := s.parseLanguage(language)
	if err != nil {
		return SessionView{}, err
	}
	sess, err := session.New(s.sessionConfig(ctx, newUUID(), lang))
	if err != nil {
		return SessionView{}, newError(ErrorInternal, "session_init_error", err)
	}
	sess.Greet()

	snap := sess.Snapshot()
	version, err := s.store.Save(ctx, snap)
	if err != nil {
		return SessionView{}, newError(ErrorInternal, "session_store_error", err)
	}
	snap.Version = version

	requestLogger(ctx, s.logger).Info("session created", "session_id", snap.ID, "language", lang)
	return s.view(snap), nil
}

func (s *ChatService) GetSession(ctx context.Context, id string) (SessionView, error) {
	snap, err := s.store.Load(ctx, id)
	if err != nil {
		return SessionView{}, storeError(err)
	}
	return s.view(snap), nil
}

// EndSession discards the session and its conversation.
func (s *ChatService) EndSession(ctx context.Context, id string) error {
	if _, err := s.store.Load(ctx, id); err != nil {
		return storeError(err)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return newError(ErrorInternal, "session_store_error", err)
	}
	return nil
}

// SendMessage submits text on session id. The user turn and the awaiting
// state are stored before the model is called; the reply, or the localized
// failure notice, is stored after. A second submission while the first is
// pending is rejected with SESSION_BUSY.
func (s *ChatService) SendMessage(ctx context.Context, id, text string) (SendOutput, error) {
	if strings.TrimSpace(text) == "" {
		s.metrics.ChatTurn(OutcomeRejected)
		return SendOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	logger := requestLogger(ctx, s.logger)

	var turn session.Turn
	_, err := repository.Update(ctx, s.store, id, func(snap *session.Snapshot) error {
		sess, err := s.restore(ctx, *snap)
		if err != nil {
			return err
		}
		s.expireStalePending(sess, *snap)
		turn, err = sess.BeginTurn(text)
		if err != nil {
			return err
		}
		*snap = sess.Snapshot()
		return nil
	})
	if err != nil {
		if errors.Is(err, session.ErrBusy) {
			s.metrics.ChatTurn(OutcomeRejected)
		}
		return SendOutput{}, sessionError(err)
	}

	// The call outlives client disconnects so the reply always lands, but not
	// the pending timeout after which a later submission may expire the turn.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.pendingTimeout)
	resp, callErr := s.llm.Generate(callCtx, turn.Request)
	cancel()
	s.metrics.ChatTurn(callOutcome(callErr))
	if callErr != nil {
		if status, ok := upstreamStatusCode(callErr); ok {
			logger.Warn("llm upstream status", "session_id", id, "status", status)
		}
	}

	var reply domain.Message
	snap, err := repository.Update(context.WithoutCancel(ctx), s.store, id, func(snap *session.Snapshot) error {
		sess, err := s.restore(ctx, *snap)
		if err != nil {
			return err
		}
		reply, err = sess.CompleteTurn(turn.User.ID, resp.Text, callErr)
		if err != nil {
			return err
		}
		*snap = sess.Snapshot()
		return nil
	})
	if err != nil {
		if isExpiredTurn(err) {
			logger.Warn("reply dropped for expired turn", "session_id", id, "turn_id", turn.User.ID)
		} else {
			logger.Error("failed to record reply", "session_id", id, "err", err)
		}
		return SendOutput{}, sessionError(err)
	}
	return SendOutput{Reply: reply, Session: s.view(snap)}, nil
}

// expireStalePending fails a pending turn whose call was lost, e.g. because
// the process serving it died, so the session does not stay busy forever.
func (s *ChatService) expireStalePending(sess *session.Session, snap session.Snapshot) {
	if !snap.Loading || s.now().Sub(snap.UpdatedAt) < s.pendingTimeout {
		return
	}
	_, _ = sess.CompleteTurn(snap.PendingID, "", errStalePending)
}

func (s *ChatService) SetDraft(ctx context.Context, id, text string) (SessionView, error) {
	return s.mutate(ctx, id, func(sess *session.Session) error {
		sess.SetDraft(text)
		return nil
	})
}

func (s *ChatService) SetLanguage(ctx context.Context, id, language string) (SessionView, error) {
	lang, err := s.parseLanguage(language)
	if err != nil {
		return SessionView{}, err
	}
	return s.mutate(ctx, id, func(sess *session.Session) error {
		return sess.SetLanguage(lang)
	})
}

func (s *ChatService) SetVisibility(ctx context.Context, id string, open bool) (SessionView, error) {
	return s.mutate(ctx, id, func(sess *session.Session) error {
		if open {
			sess.Open()
		} else {
			sess.Close()
		}
		return nil
	})
}

// QuickReply resolves a clicked quick-reply line: a section label navigates
// and closes the widget, anything else becomes the draft.
func (s *ChatService) QuickReply(ctx context.Context, id, label string) (ActionOutput, error) {
	var action session.Action
	view, err := s.mutate(ctx, id, func(sess *session.Session) error {
		action = sess.HandleQuickReply(label)
		return nil
	})
	if err != nil {
		return ActionOutput{}, err
	}
	if action.Kind == session.ActionNavigate {
		s.metrics.QuickReply(OutcomeNavigate)
	} else {
		s.metrics.QuickReply(OutcomeDraft)
	}
	return ActionOutput{Action: action, Session: view}, nil
}

// QuickAction handles a click in the fixed quick-action row.
func (s *ChatService) QuickAction(ctx context.Context, id, section string) (ActionOutput, error) {
	sec, err := routes.ParseSection(section)
	if err != nil {
		return ActionOutput{}, newError(ErrorInvalidInput, "unknown_section", err)
	}
	var action session.Action
	view, err := s.mutate(ctx, id, func(sess *session.Session) error {
		var actErr error
		action, actErr = sess.QuickAction(sec)
		return actErr
	})
	if err != nil {
		return ActionOutput{}, err
	}
	return ActionOutput{Action: action, Session: view}, nil
}

func (s *ChatService) mutate(ctx context.Context, id string, fn func(*session.Session) error) (SessionView, error) {
	snap, err := repository.Update(ctx, s.store, id, func(snap *session.Snapshot) error {
		sess, err := s.restore(ctx, *snap)
		if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}
		*snap = sess.Snapshot()
		return nil
	})
	if err != nil {
		return SessionView{}, sessionError(err)
	}
	return s.view(snap), nil
}

func (s *ChatService) restore(ctx context.Context, snap session.Snapshot) (*session.Session, error) {
	return session.Restore(snap, s.sessionConfig(ctx, snap.ID, snap.Language))
}

func (s *ChatService) sessionConfig(ctx context.Context, id string, lang domain.Language) session.Config {
	return session.Config{
		ID:                 id,
		Language:           lang,
		LLM:                s.llm,
		Dictionary:         s.dict,
		Routes:             s.routes,
		Logger:             requestLogger(ctx, s.logger),
		HistoryWindow:      s.historyWindow,
		ClientQuickReplies: s.clientQuickReplies,
		Now:                s.now,
	}
}

func (s *ChatService) view(snap session.Snapshot) SessionView {
	msgs := snap.Messages
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return SessionView{
		ID:          snap.ID,
		Language:    snap.Language,
		Direction:   i18n.Direction(snap.Language),
		Messages:    msgs,
		Draft:       snap.Draft,
		Loading:     snap.Loading,
		Open:        snap.Open,
		Placeholder: s.dict.Lookup(snap.Language, i18n.KeyPlaceholder),
	}
}

func callOutcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if status, ok := upstreamStatusCode(err); ok && status == http.StatusTooManyRequests {
		return OutcomeRateLimited
	}
	return OutcomeFailed
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

func storeError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return newError(ErrorNotFound, "session_not_found", err)
	}
	return newError(ErrorInternal, "session_store_error", err)
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrBusy):
		return newError(ErrorSessionBusy, "reply_pending", err)
	case errors.Is(err, session.ErrEmptyInput):
		return newError(ErrorInvalidInput, "empty_message", err)
	case errors.Is(err, session.ErrUnknownAction):
		return newError(ErrorInvalidInput, "not_a_quick_action", err)
	case isExpiredTurn(err):
		return newError(ErrorInternal, "turn_expired", err)
	default:
		return storeError(err)
	}
}

// isExpiredTurn reports a reply that arrived after a later submission expired
// its turn.
func isExpiredTurn(err error) bool {
	return errors.Is(err, session.ErrStaleTurn) || errors.Is(err, session.ErrNoPendingTurn)
}
