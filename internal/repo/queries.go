package repo

import (
	"time"

	sq "github.com/Masterminds/squirrel"

	"langtutor/internal/models"
)

const vocabularyTable = "vocabulary"

var vocabularyColumns = []string{
	"id", "word", "translation", "language", "part_of_speech", "example_sentence",
	"notes", "date_added", "times_reviewed", "last_reviewed", "confidence_score",
}

// queries builds the statements both stores share; only the placeholder
// format differs.
type queries struct {
	sb sq.StatementBuilderType
}

func newQueries(ph sq.PlaceholderFormat) queries {
	return queries{sb: sq.StatementBuilder.PlaceholderFormat(ph)}
}

func (q queries) insert(v *models.Vocabulary) sq.InsertBuilder {
	return q.sb.Insert(vocabularyTable).
		Columns("word", "translation", "language", "part_of_speech", "example_sentence",
			"notes", "date_added", "times_reviewed", "confidence_score").
		Values(v.Word, v.Translation, v.Language, v.PartOfSpeech, v.ExampleSentence,
			v.Notes, v.DateAdded, v.TimesReviewed, v.ConfidenceScore).
		Suffix("ON CONFLICT (word, language) DO NOTHING")
}

func (q queries) list(language string) sq.SelectBuilder {
	b := q.sb.Select(vocabularyColumns...).
		From(vocabularyTable).
		OrderBy("date_added DESC", "id DESC")
	if language != "" {
		b = b.Where(sq.Eq{"language": language})
	}
	return b
}

func (q queries) get(id int64) sq.SelectBuilder {
	return q.sb.Select(vocabularyColumns...).
		From(vocabularyTable).
		Where(sq.Eq{"id": id})
}

func (q queries) exists(word, language string) sq.SelectBuilder {
	return q.sb.Select("COUNT(*)").
		From(vocabularyTable).
		Where(sq.Eq{"word": word, "language": language})
}

func (q queries) updateReview(id int64, confidence float64, at time.Time) sq.UpdateBuilder {
	return q.sb.Update(vocabularyTable).
		Set("times_reviewed", sq.Expr("times_reviewed + 1")).
		Set("last_reviewed", at).
		Set("confidence_score", confidence).
		Where(sq.Eq{"id": id})
}

func (q queries) update(v models.Vocabulary) sq.UpdateBuilder {
	return q.sb.Update(vocabularyTable).
		Set("word", v.Word).
		Set("translation", v.Translation).
		Set("part_of_speech", v.PartOfSpeech).
		Set("example_sentence", v.ExampleSentence).
		Set("notes", v.Notes).
		Where(sq.Eq{"id": v.ID})
}

func (q queries) delete(id int64) sq.DeleteBuilder {
	return q.sb.Delete(vocabularyTable).Where(sq.Eq{"id": id})
}

// clampConfidence keeps stored confidence within [0, 1].
func clampConfidence(c float64) float64 {
	return min(max(c, 0), 1)
}
