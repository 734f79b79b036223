package usecase

import (
	"strings"

	"immobilier-assistant/internal/domain"
	"immobilier-assistant/internal/i18n"
	"immobilier-assistant/internal/routes"
)

// QuickReplyItem is one navigable section in a given language.
type QuickReplyItem struct {
	Section routes.Section
	Label   string
	Path    string
}

// Catalog is what the widget needs to render its chrome in one language.
type Catalog struct {
	Language     domain.Language
	Direction    string
	Title        string
	Placeholder  string
	Header       string
	QuickReplies []QuickReplyItem
	QuickActions []QuickReplyItem
}

// Catalog returns the localized quick-reply list and quick-action row. An
// empty language selects the service default.
func (s *ChatService) Catalog(language string) (Catalog, error) {
	lang, err := s.parseLanguage(language)
	if err != nil {
		return Catalog{}, err
	}
	return Catalog{
		Language:     lang,
		Direction:    i18n.Direction(lang),
		Title:        s.dict.Lookup(lang, i18n.KeyAssistantTitle),
		Placeholder:  s.dict.Lookup(lang, i18n.KeyPlaceholder),
		Header:       s.dict.Lookup(lang, i18n.KeyQuickReplyHeader),
		QuickReplies: s.items(lang, routes.InstructionSections),
		QuickActions: s.items(lang, routes.QuickActions),
	}, nil
}

func (s *ChatService) items(lang domain.Language, secs []routes.Section) []QuickReplyItem {
	out := make([]QuickReplyItem, len(secs))
	for i, sec := range secs {
		out[i] = QuickReplyItem{Section: sec, Label: s.routes.Label(lang, sec), Path: sec.Path()}
	}
	return out
}

func (s *ChatService) parseLanguage(code string) (domain.Language, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return s.defaultLanguage, nil
	}
	lang, err := domain.ParseLanguage(code)
	if err != nil {
		return "", newError(ErrorInvalidInput, "unsupported_language", err)
	}
	return lang, nil
}
