package core

import (
	"strings"

	"golang.org/x/text/language"
)

// Language is the presentation language selected by the client.
type Language string

const (
	// English is the default language.
	English Language = "en"
	// Hindi is the only non-default language the frontend renders.
	Hindi Language = "hi"
)

// ParseLanguage normalizes a language selector such as "hi", "HI" or "hi-IN".
// Anything that is not Hindi resolves to English.
func ParseLanguage(selector string) Language {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return English
	}
	tag, err := language.Parse(selector)
	if err != nil {
		return English
	}
	base, _ := tag.Base()
	if base.String() == string(Hindi) {
		return Hindi
	}
	return English
}

// IsHindi reports whether the language is Hindi.
func (l Language) IsHindi() bool {
	return l == Hindi
}

// Name returns the English name of the language, as used in prompts.
func (l Language) Name() string {
	if l.IsHindi() {
		return "Hindi"
	}
	return "English"
}

// Pick returns en or hi depending on the language.
func (l Language) Pick(en, hi string) string {
	if l.IsHindi() {
		return hi
	}
	return en
}

// RespondIn is the instruction suffix appended to prompts.
func (l Language) RespondIn() string {
	return " Respond in " + l.Name() + "."
}
