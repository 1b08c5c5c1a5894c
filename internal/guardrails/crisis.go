// Package guardrails holds the safety checks applied to supportive conversations.
package guardrails

import (
	"agrimitra/internal/core"
)

const helplineEn = "\n\nIf you are in immediate danger or thinking about harming yourself, you deserve care right now. Please contact:\n" +
	"- Kiran Mental Health Helpline (India): 1800-599-0019 (24x7)\n" +
	"- iCall: +91-9152987821 or email icall@tiss.edu\n" +
	"- Emergency services: 112\n" +
	"If you can, reach out to a trusted friend/family member nearby."

const helplineHi = "\n\nयदि आप तुरंत खतरे में हैं या स्वयं को नुकसान पहुँचाने के विचार आ रहे हैं, तो कृपया अभी मदद लें:\n" +
	"- किरण मानसिक स्वास्थ्य हेल्पलाइन (भारत): 1800-599-0019 (24x7)\n" +
	"- iCall: +91-9152987821 या icall@tiss.edu\n" +
	"- आपातकालीन सेवा: 112\n" +
	"यदि संभव हो तो किसी भरोसेमंद मित्र/परिवार के सदस्य से तुरंत संपर्क करें।"

const (
	disclaimerEn = "\n\nNote: I’m an AI assistant and not a substitute for professional care."
	disclaimerHi = "\n\nनोट: मैं एक AI सहायक हूँ और पेशेवर देखभाल का विकल्प नहीं हूँ।"
)

// CrisisScreen flags messages that suggest self-harm.
type CrisisScreen struct {
	patterns []CrisisPattern
}

// NewCrisisScreen creates a screen with the built-in patterns plus any extra ones.
func NewCrisisScreen(extra ...CrisisPattern) *CrisisScreen {
	patterns := defaultCrisisPatterns()
	for _, p := range extra {
		if p.Pattern != nil {
			patterns = append(patterns, p)
		}
	}
	return &CrisisScreen{patterns: patterns}
}

// Detect reports whether any pattern matches message.
func (s *CrisisScreen) Detect(message string) bool {
	if s == nil {
		return false
	}
	for _, p := range s.patterns {
		if p.Pattern.MatchString(message) {
			return true
		}
	}
	return false
}

// Matches returns the names of every pattern that matched, in declaration order.
func (s *CrisisScreen) Matches(message string) []string {
	if s == nil {
		return nil
	}
	var names []string
	for _, p := range s.patterns {
		if p.Pattern.MatchString(message) {
			names = append(names, p.Name)
		}
	}
	return names
}

// HelplineNote returns the localized block of Indian crisis resources.
// It starts with a blank line so it can be appended to a reply.
func HelplineNote(lang core.Language) string {
	return lang.Pick(helplineEn, helplineHi)
}

// Disclaimer returns the localized note that the assistant is not professional care.
func Disclaimer(lang core.Language) string {
	return lang.Pick(disclaimerEn, disclaimerHi)
}
