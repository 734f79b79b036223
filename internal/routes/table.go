// Package routes maps localized quick-reply labels to site paths.
package routes

import (
	"fmt"
	"strings"

	"immobilier-assistant/internal/domain"
)

// Section is a navigable area of the site.
type Section string

const (
	SectionHome      Section = "home"
	SectionCountries Section = "countries"
	SectionCities    Section = "cities"
	SectionBlog      Section = "blog"
	SectionAbout     Section = "about"
	SectionPrivacy   Section = "privacy"
	SectionTerms     Section = "terms"
	SectionContact   Section = "contact"
)

// Sections lists every section in menu order.
var Sections = []Section{
	SectionHome, SectionCountries, SectionCities, SectionBlog,
	SectionAbout, SectionPrivacy, SectionTerms, SectionContact,
}

// InstructionSections are the sections the assistant is asked to echo after
// each answer.
var InstructionSections = []Section{
	SectionHome, SectionCountries, SectionCities, SectionBlog,
	SectionAbout, SectionPrivacy, SectionTerms,
}

// QuickActions is the fixed shortcut row shown under the conversation.
var QuickActions = []Section{SectionHome, SectionCountries, SectionBlog, SectionContact}

var paths = map[Section]string{
	SectionHome:      "/",
	SectionCountries: "/countries",
	SectionCities:    "/cities",
	SectionBlog:      "/blog",
	SectionAbout:     "/about",
	SectionPrivacy:   "/privacy",
	SectionTerms:     "/terms",
	SectionContact:   "/contact",
}

// Path returns the site path of a section.
func (s Section) Path() string {
	return paths[s]
}

// ParseSection validates a section name.
func ParseSection(name string) (Section, error) {
	s := Section(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := paths[s]; !ok {
		return "", fmt.Errorf("routes: unknown section %q", name)
	}
	return s, nil
}

// LabelSource supplies the localized label of a section.
type LabelSource interface {
	SectionLabel(lang domain.Language, section string) (string, bool)
}

// Table is the quick-reply route table.
type Table struct {
	labels  map[domain.Language]map[Section]string
	targets map[string]Section
}

// NewTable builds the table from src and enforces that every section has
// exactly one label per language and that labels are unique within a
// language. A label shared across languages must name the same section.
func NewTable(src LabelSource) (*Table, error) {
	t := &Table{
		labels:  make(map[domain.Language]map[Section]string, len(domain.Languages)),
		targets: make(map[string]Section),
	}
	for _, lang := range domain.Languages {
		seen := make(map[string]Section, len(Sections))
		t.labels[lang] = make(map[Section]string, len(Sections))
		for _, sec := range Sections {
			label, ok := src.SectionLabel(lang, string(sec))
			if !ok {
				return nil, fmt.Errorf("routes: section %q has no %s label", sec, lang)
			}
			if prev, dup := seen[label]; dup {
				return nil, fmt.Errorf("routes: %s label %q used by %q and %q", lang, label, prev, sec)
			}
			if other, ok := t.targets[label]; ok && other != sec {
				return nil, fmt.Errorf("routes: label %q maps to both %q and %q", label, other, sec)
			}
			seen[label] = sec
			t.labels[lang][sec] = label
			t.targets[label] = sec
		}
	}
	return t, nil
}

// Label returns the label of sec in lang.
func (t *Table) Label(lang domain.Language, sec Section) string {
	return t.labels[lang][sec]
}

// Labels returns the labels of secs in lang, in order.
func (t *Table) Labels(lang domain.Language, secs []Section) []string {
	out := make([]string, 0, len(secs))
	for _, sec := range secs {
		out = append(out, t.labels[lang][sec])
	}
	return out
}

// Lookup resolves an exact, case-sensitive label to its section.
func (t *Table) Lookup(label string) (Section, bool) {
	sec, ok := t.targets[label]
	return sec, ok
}

// CleanLabel strips a leading bullet marker and surrounding whitespace from a
// displayed quick-reply line.
func CleanLabel(s string) string {
	s = strings.TrimSpace(s)
	for _, marker := range []string{"-", "*", "•"} {
		if strings.HasPrefix(s, marker) {
			s = strings.TrimPrefix(s, marker)
			break
		}
	}
	return strings.TrimSpace(s)
}
