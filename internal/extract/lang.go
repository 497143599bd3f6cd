package extract

import "strings"

// Stopword profiles for a handful of languages. Detection counts profile
// hits over the first 5000 characters; ties and unknowns resolve to "en".
var langProfiles = map[string][]string{
	"en": {"the", "and", "of", "to", "is", "in", "that", "for", "with", "this"},
	"de": {"der", "die", "und", "das", "ist", "nicht", "mit", "ein", "für", "auf"},
	"fr": {"le", "la", "les", "et", "est", "dans", "pour", "que", "une", "des"},
	"es": {"el", "la", "los", "que", "de", "es", "en", "por", "una", "para"},
}

// detectLang guesses the document language from stopword frequency.
func detectLang(text string) string {
	if strings.TrimSpace(text) == "" {
		return "en"
	}
	sample := text
	if len(sample) > 5000 {
		sample = sample[:5000]
	}
	counts := make(map[string]int)
	for _, word := range strings.Fields(strings.ToLower(sample)) {
		word = strings.Trim(word, ".,;:!?\"'()[]")
		for lang, profile := range langProfiles {
			for _, sw := range profile {
				if word == sw {
					counts[lang]++
					break
				}
			}
		}
	}
	best, bestCount := "en", 0
	for _, lang := range []string{"en", "de", "fr", "es"} {
		if counts[lang] > bestCount {
			best, bestCount = lang, counts[lang]
		}
	}
	return best
}
