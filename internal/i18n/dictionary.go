// Package i18n holds the localized display strings used by the assistant.
package i18n

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"immobilier-assistant/internal/domain"
)

//go:embed locales.yaml
var embeddedLocales []byte

// Key names a localized display string.
type Key string

const (
	KeyGreeting         Key = "greeting"
	KeyError            Key = "error"
	KeyPlaceholder      Key = "placeholder"
	KeyQuickReplyHeader Key = "quick_reply_header"
	KeyAssistantTitle   Key = "assistant_title"
)

// Locale is the set of strings for one language.
type Locale struct {
	Greeting         string            `yaml:"greeting"`
	Error            string            `yaml:"error"`
	Placeholder      string            `yaml:"placeholder"`
	QuickReplyHeader string            `yaml:"quick_reply_header"`
	AssistantTitle   string            `yaml:"assistant_title"`
	Sections         map[string]string `yaml:"sections"`
}

// Dictionary maps (language, key) pairs to display strings.
type Dictionary struct {
	locales map[domain.Language]Locale
}

var defaultDictionary = sync.OnceValues(func() (*Dictionary, error) {
	return Parse(embeddedLocales)
})

// Default returns the dictionary compiled into the binary.
func Default() *Dictionary {
	d, err := defaultDictionary()
	if err != nil {
		panic(fmt.Sprintf("i18n: embedded locales are invalid: %v", err))
	}
	return d
}

// Parse decodes a YAML locale document and checks that every supported
// language carries every key.
func Parse(raw []byte) (*Dictionary, error) {
	var doc map[string]Locale
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("i18n: decode locales: %w", err)
	}
	if len(doc) == 0 {
		return nil, errors.New("i18n: no locales defined")
	}

	locales := make(map[domain.Language]Locale, len(doc))
	for code, loc := range doc {
		lang, err := domain.ParseLanguage(code)
		if err != nil {
			return nil, fmt.Errorf("i18n: %w", err)
		}
		locales[lang] = loc
	}

	d := &Dictionary{locales: locales}
	for _, lang := range domain.Languages {
		loc, ok := locales[lang]
		if !ok {
			return nil, fmt.Errorf("i18n: missing locale %q", lang)
		}
		for _, key := range []Key{KeyGreeting, KeyError, KeyPlaceholder, KeyQuickReplyHeader, KeyAssistantTitle} {
			if loc.lookup(key) == "" {
				return nil, fmt.Errorf("i18n: locale %q is missing %q", lang, key)
			}
		}
	}
	return d, nil
}

// Lookup returns the string for key in lang, or "" when absent.
func (d *Dictionary) Lookup(lang domain.Language, key Key) string {
	loc, ok := d.locales[lang]
	if !ok {
		return ""
	}
	return loc.lookup(key)
}

// SectionLabel returns the navigation label of a site section in lang.
func (d *Dictionary) SectionLabel(lang domain.Language, section string) (string, bool) {
	loc, ok := d.locales[lang]
	if !ok {
		return "", false
	}
	label, ok := loc.Sections[section]
	return label, ok && label != ""
}

// Direction returns the text direction ("rtl" or "ltr") for lang.
func Direction(lang domain.Language) string {
	if lang.RTL() {
		return "rtl"
	}
	return "ltr"
}

func (l Locale) lookup(key Key) string {
	switch key {
	case KeyGreeting:
		return l.Greeting
	case KeyError:
		return l.Error
	case KeyPlaceholder:
		return l.Placeholder
	case KeyQuickReplyHeader:
		return l.QuickReplyHeader
	case KeyAssistantTitle:
		return l.AssistantTitle
	default:
		return ""
	}
}
