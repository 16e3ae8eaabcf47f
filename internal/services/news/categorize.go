package news

import (
	"strings"
	"unicode"
)

const CategoryGeneral = "general"

// categoryKeywords is checked in order; the first category with a hit wins.
// Single-word keywords longer than three letters also match as word
// prefixes, so "politi" covers "political", "politique" and "política".
var categoryKeywords = []struct {
	name     string
	keywords []string
}{
	{"politics", []string{"politi", "government", "gouvernement", "regierung", "gobierno", "governo", "election", "élection", "wahl", "elecciones", "minister", "parliament", "parlament", "president", "président", "senate", "congress", "vote"}},
	{"technology", []string{"technolog", "tech", "software", "ai", "artificial intelligence", "intelligence artificielle", "computer", "internet", "digital", "numérique", "smartphone", "cyber", "startup"}},
	{"sports", []string{"sport", "football", "fußball", "fútbol", "calcio", "soccer", "basketball", "tennis", "olympi", "tournament", "championship", "league", "match"}},
	{"health", []string{"health", "santé", "gesundheit", "salud", "salute", "medical", "médical", "hospital", "hôpital", "krankenhaus", "disease", "virus", "vaccin", "doctor", "patient"}},
	{"business", []string{"business", "econom", "économ", "wirtschaft", "market", "marché", "stock", "company", "entreprise", "unternehmen", "empresa", "bank", "banque", "finance", "trade", "inflation"}},
	{"entertainment", []string{"entertainment", "film", "movie", "cinéma", "kino", "cine", "music", "musique", "musik", "música", "celebrity", "actor", "actress", "festival", "album", "series"}},
	{"science", []string{"scien", "wissenschaft", "ciencia", "research", "recherche", "forschung", "study", "étude", "space", "espace", "nasa", "discovery", "physics"}},
	{"environment", []string{"environment", "environnement", "umwelt", "medio ambiente", "climat", "klima", "clima", "pollution", "emission", "wildlife", "renewable", "sustainab", "biodivers"}},
}

// Categorize derives a coarse category from free text.
func Categorize(text string) string {
	lower := strings.ToLower(text)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if matches(lower, words, kw) {
				return c.name
			}
		}
	}
	return CategoryGeneral
}

func matches(text string, words []string, kw string) bool {
	if strings.Contains(kw, " ") {
		return strings.Contains(text, kw)
	}
	for _, w := range words {
		if w == kw || (len(kw) > 3 && strings.HasPrefix(w, kw)) {
			return true
		}
	}
	return false
}
