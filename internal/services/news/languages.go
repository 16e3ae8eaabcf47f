package news

import "strings"

const defaultLanguageCode = "en"

var languageCodes = map[string]string{
	"english":    "en",
	"french":     "fr",
	"german":     "de",
	"spanish":    "es",
	"italian":    "it",
	"portuguese": "pt",
	"dutch":      "nl",
	"russian":    "ru",
	"norwegian":  "no",
	"swedish":    "sv",
	"arabic":     "ar",
	"hebrew":     "he",
	"chinese":    "zh",
}

// LanguageCode maps a language name ("French") or a supported code ("fr")
// to the feed's two-letter code. Unknown languages fall back to English.
func LanguageCode(language string) string {
	key := strings.ToLower(strings.TrimSpace(language))
	if code, ok := languageCodes[key]; ok {
		return code
	}
	for _, code := range languageCodes {
		if code == key {
			return code
		}
	}
	return defaultLanguageCode
}
