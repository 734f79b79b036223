package session

import (
	"slices"

	"immobilier-assistant/internal/routes"
)

// ActionKind says what a quick-reply click resolved to.
type ActionKind string

const (
	ActionNavigate ActionKind = "navigate"
	ActionDraft    ActionKind = "draft"
)

// Action is the outcome of a quick-reply click.
type Action struct {
	Kind    ActionKind     `json:"kind"`
	Section routes.Section `json:"section,omitempty"`
	Path    string         `json:"path,omitempty"`
	Text    string         `json:"text,omitempty"`
}

// HandleQuickReply resolves a displayed quick-reply line. A known label
// navigates to its section and closes the widget; anything else becomes the
// draft, which the user still has to send.
func (s *Session) HandleQuickReply(label string) Action {
	clean := routes.CleanLabel(label)
	sec, ok := s.cfg.Routes.Lookup(clean)
	if !ok {
		s.SetDraft(clean)
		return Action{Kind: ActionDraft, Text: clean}
	}
	return s.navigate(sec)
}

// QuickAction follows one of the fixed shortcut buttons.
func (s *Session) QuickAction(sec routes.Section) (Action, error) {
	if !slices.Contains(routes.QuickActions, sec) {
		return Action{}, ErrUnknownAction
	}
	return s.navigate(sec), nil
}

func (s *Session) navigate(sec routes.Section) Action {
	s.Close()
	if s.cfg.Navigator != nil {
		s.cfg.Navigator.NavigateTo(sec.Path())
	}
	return Action{Kind: ActionNavigate, Section: sec, Path: sec.Path()}
}
