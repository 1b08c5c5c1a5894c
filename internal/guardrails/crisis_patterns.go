package guardrails

import (
	"regexp"
)

// CrisisPattern is a named expression that flags a message as a possible crisis.
type CrisisPattern struct {
	Name    string
	Pattern *regexp.Regexp
}

// defaultCrisisPatterns returns the built-in crisis expressions. All are case-insensitive.
func defaultCrisisPatterns() []CrisisPattern {
	return []CrisisPattern{
		{Name: "suicide", Pattern: regexp.MustCompile(`(?i)suicide`)},
		// Matches: self harm, self-harm, selfharm, self - harm
		{Name: "self_harm", Pattern: regexp.MustCompile(`(?i)self\s*-?\s*harm`)},
		{Name: "kill_myself", Pattern: regexp.MustCompile(`(?i)kill\s*myself`)},
		{Name: "end_my_life", Pattern: regexp.MustCompile(`(?i)end\s*my\s*life`)},
		{Name: "hang_myself", Pattern: regexp.MustCompile(`(?i)hang\s*myself`)},
		{Name: "overdose", Pattern: regexp.MustCompile(`(?i)overdose`)},
		{Name: "cutting", Pattern: regexp.MustCompile(`(?i)cutting`)},
		{Name: "worthless", Pattern: regexp.MustCompile(`(?i)I am worthless`)},
		// Phone keyboards often produce a typographic apostrophe.
		{Name: "cant_go_on", Pattern: regexp.MustCompile(`(?i)I can['’]t go on`)},
	}
}
