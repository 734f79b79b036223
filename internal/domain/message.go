package domain

import "fmt"

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is a single conversation turn. Messages are created once and never
// mutated afterwards.
type Message struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Language is a supported site language code.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageFrench  Language = "fr"
	LanguageArabic  Language = "ar"
)

// Languages lists every supported language in display order.
var Languages = []Language{LanguageArabic, LanguageEnglish, LanguageFrench}

// ParseLanguage validates a language code.
func ParseLanguage(code string) (Language, error) {
	for _, l := range Languages {
		if string(l) == code {
			return l, nil
		}
	}
	return "", fmt.Errorf("domain: unsupported language %q", code)
}

// RTL reports whether the language is written right to left.
func (l Language) RTL() bool {
	return l == LanguageArabic
}
