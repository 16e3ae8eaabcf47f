package llm

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

var flashcardCategories = []string{
	"food", "animals", "colors", "family", "nature", "emotions",
	"daily activities", "clothing", "weather", "body parts",
	"transportation", "professions",
}

const (
	flashcardSystemPrompt = "You are a language teacher creating vocabulary flashcards. " +
		"Always respond with valid JSON only, no markdown, no explanation."
	translateSystemPrompt = "You are a professional translator. Translate the given text to English " +
		"accurately and naturally. Respond only with the English translation, no explanations or additional text."
	enrichSystemPrompt = "You are a language teacher providing vocabulary information. " +
		"Always respond with valid JSON only, no markdown, no explanation."
	headlinesSystemPrompt = "You are a news editor writing short headlines for language learners. " +
		"Always respond with valid JSON only, no markdown, no explanation."
)

func languageDirective(language string) string {
	return fmt.Sprintf("You must respond only in %s. Never use any other language regardless of the input language.", language)
}

// pickCategories returns n distinct flashcard topics in random order.
func pickCategories(n int) []string {
	n = min(n, len(flashcardCategories))
	out := make([]string, 0, n)
	for _, i := range rand.Perm(len(flashcardCategories))[:n] {
		out = append(out, flashcardCategories[i])
	}
	return out
}

// varietySeed is embedded in prompts and, where supported, passed as the
// sampling seed.
func varietySeed() int64 {
	return 1000 + rand.Int64N(9000)
}

func flashcardPrompt(language string, count int, categories []string, seed int64, now time.Time) string {
	return fmt.Sprintf(`Generate exactly %[2]d %[1]s vocabulary words for beginners.

Focus on these categories: %[3]s
Seed for variety: %[4]d
Current time: %[5]d

IMPORTANT: Generate DIFFERENT words each time. Avoid the most basic words like hello, house, water.

Return ONLY a JSON array (no markdown blocks) with this exact format:
[
  {"word": "%[1]s word", "part_of_speech": "noun/verb/adjective", "translation": "English translation"}
]

For verbs: use infinitive form in %[1]s and "to ..." in English.
Vary your selections - include less common but still useful beginner words.`,
		language, count, strings.Join(categories, ", "), seed, now.Unix())
}

func translatePrompt(text, sourceLanguage string) string {
	return fmt.Sprintf("Translate this %s text to English: %s", sourceLanguage, text)
}

func enrichPrompt(word, language string) string {
	return fmt.Sprintf(`Provide information about this %[1]s word: "%[2]s"

Return ONLY a JSON object (no markdown blocks) with this exact format:
{
  "translation": "English translation",
  "part_of_speech": "noun/verb/adjective/adverb/etc",
  "example_sentence": "Example sentence in %[1]s",
  "pronunciation_hint": "Pronunciation guide if helpful",
  "gender": "masculine/feminine/neuter (only for languages with grammatical gender)",
  "notes": "Any useful notes about usage or context"
}

If the word doesn't exist or is misspelled, still provide your best attempt.`, language, word)
}

func headlinesPrompt(language string, count int, today time.Time) string {
	return fmt.Sprintf(`Write %[2]d realistic, varied news headlines in %[1]s for an intermediate language learner.

Cover several of these categories: politics, technology, sports, health, business, entertainment, science, environment.
Date: %[3]s

Return ONLY a JSON array (no markdown blocks) with this exact format:
[
  {"headline": "Headline in %[1]s", "category": "technology", "summary": "Two sentence summary in %[1]s", "source": "Publication name", "date": "%[3]s"}
]

Use simple vocabulary and keep each summary under 40 words.`,
		language, count, today.Format(time.DateOnly))
}
