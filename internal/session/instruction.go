package session

import (
	"fmt"
	"strings"

	"immobilier-assistant/internal/domain"
	"immobilier-assistant/internal/i18n"
	"immobilier-assistant/internal/routes"
)

type routeLabels interface {
	Labels(lang domain.Language, secs []routes.Section) []string
}

// Instruction builds the system instruction sent with every request. The model
// is told to echo the localized quick-reply list verbatim; nothing checks that
// it does.
func Instruction(lang domain.Language, dict *i18n.Dictionary, tbl routeLabels) string {
	header := dict.Lookup(lang, i18n.KeyQuickReplyHeader)
	return strings.Join([]string{
		"You are a helpful real estate assistant on the 'Immobilier Info' website.",
		fmt.Sprintf("Current Language: %s.", lang),
		"Always respond to user questions with clear and concise answers in the current language.",
		fmt.Sprintf("At the very end of your response, leave a blank line and then strictly append exactly this list of quick navigation suggestions titled %q:", header),
		quickReplyList(lang, tbl),
		"",
		"Do not invent links. Just list the names.",
	}, "\n")
}

// QuickReplyBlock is the header followed by the bulleted section list.
func QuickReplyBlock(lang domain.Language, dict *i18n.Dictionary, tbl routeLabels) string {
	return dict.Lookup(lang, i18n.KeyQuickReplyHeader) + "\n" + quickReplyList(lang, tbl)
}

func quickReplyList(lang domain.Language, tbl routeLabels) string {
	labels := tbl.Labels(lang, routes.InstructionSections)
	lines := make([]string, len(labels))
	for i, l := range labels {
		lines[i] = "- " + l
	}
	return strings.Join(lines, "\n")
}
