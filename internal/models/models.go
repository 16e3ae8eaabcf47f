package models

import (
	"errors"
	"strings"
	"time"
)

// Role of a chat participant.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn of a conversation. Order within a conversation is
// significant.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// FlashcardWord is a generated vocabulary item.
type FlashcardWord struct {
	Word         string `json:"word"`
	PartOfSpeech string `json:"part_of_speech"`
	Translation  string `json:"translation"`
}

// VocabularyEnrichment is the model's suggestion for a dictionary entry.
type VocabularyEnrichment struct {
	Translation       string `json:"translation"`
	PartOfSpeech      string `json:"part_of_speech"`
	ExampleSentence   string `json:"example_sentence,omitempty"`
	PronunciationHint string `json:"pronunciation_hint,omitempty"`
	Gender            string `json:"gender,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

// NewsHeadline is a single headline from the feed or from the model. URL is
// only set for feed headlines.
type NewsHeadline struct {
	Headline string `json:"headline"`
	Category string `json:"category"`
	Summary  string `json:"summary"`
	Source   string `json:"source"`
	Date     string `json:"date"`
	URL      string `json:"url,omitempty"`
}

// Vocabulary is a saved dictionary entry.
type Vocabulary struct {
	ID              int64      `json:"id" db:"id"`
	Word            string     `json:"word" db:"word"`
	Translation     string     `json:"translation" db:"translation"`
	Language        string     `json:"language" db:"language"`
	PartOfSpeech    string     `json:"part_of_speech" db:"part_of_speech"`
	ExampleSentence *string    `json:"example_sentence,omitempty" db:"example_sentence"`
	Notes           *string    `json:"notes,omitempty" db:"notes"`
	DateAdded       time.Time  `json:"date_added" db:"date_added"`
	TimesReviewed   int        `json:"times_reviewed" db:"times_reviewed"`
	LastReviewed    *time.Time `json:"last_reviewed,omitempty" db:"last_reviewed"`
	ConfidenceScore float64    `json:"confidence_score" db:"confidence_score"`
}

// Validate checks the fields every saved entry needs.
func (v Vocabulary) Validate() error {
	var missing []string
	if strings.TrimSpace(v.Word) == "" {
		missing = append(missing, "word")
	}
	if strings.TrimSpace(v.Translation) == "" {
		missing = append(missing, "translation")
	}
	if strings.TrimSpace(v.Language) == "" {
		missing = append(missing, "language")
	}
	if len(missing) > 0 {
		return errors.New("missing " + strings.Join(missing, ", "))
	}
	return nil
}
