package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"langtutor/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS vocabulary (
	id               BIGSERIAL PRIMARY KEY,
	word             TEXT NOT NULL,
	translation      TEXT NOT NULL,
	language         TEXT NOT NULL,
	part_of_speech   TEXT NOT NULL DEFAULT '',
	example_sentence TEXT,
	notes            TEXT,
	date_added       TIMESTAMPTZ NOT NULL DEFAULT now(),
	times_reviewed   INTEGER NOT NULL DEFAULT 0,
	last_reviewed    TIMESTAMPTZ,
	confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	UNIQUE (word, language)
)`

const uniqueViolation = "23505"

// Querier is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepository struct {
	q   Querier
	qs  queries
	now func() time.Time
}

func NewPostgresRepository(q Querier) *PostgresRepository {
	return &PostgresRepository{
		q:   q,
		qs:  newQueries(sq.Dollar),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create vocabulary table: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Add(ctx context.Context, v *models.Vocabulary) (bool, error) {
	if v.DateAdded.IsZero() {
		v.DateAdded = r.now()
	}
	v.ConfidenceScore = clampConfidence(v.ConfidenceScore)

	query, args, err := r.qs.insert(v).Suffix("RETURNING id").ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}
	if err := r.q.QueryRow(ctx, query, args...).Scan(&v.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert vocabulary %q: %w", v.Word, err)
	}
	return true, nil
}

func (r *PostgresRepository) List(ctx context.Context, language string) ([]models.Vocabulary, error) {
	query, args, err := r.qs.list(language).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list vocabulary: %w", err)
	}
	defer rows.Close()

	out := []models.Vocabulary{}
	for rows.Next() {
		v, err := scanVocabulary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vocabulary: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list vocabulary: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (models.Vocabulary, error) {
	query, args, err := r.qs.get(id).ToSql()
	if err != nil {
		return models.Vocabulary{}, fmt.Errorf("build select: %w", err)
	}
	v, err := scanVocabulary(r.q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Vocabulary{}, fmt.Errorf("vocabulary %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Vocabulary{}, fmt.Errorf("get vocabulary %d: %w", id, err)
	}
	return v, nil
}

func (r *PostgresRepository) WordExists(ctx context.Context, word, language string) (bool, error) {
	query, args, err := r.qs.exists(word, language).ToSql()
	if err != nil {
		return false, fmt.Errorf("build count: %w", err)
	}
	var n int64
	if err := r.q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("count vocabulary: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) UpdateReview(ctx context.Context, id int64, confidence float64) error {
	query, args, err := r.qs.updateReview(id, clampConfidence(confidence), r.now()).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update review %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vocabulary %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, v models.Vocabulary) (bool, error) {
	query, args, err := r.qs.update(v).ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return false, fmt.Errorf("vocabulary %q: %w", v.Word, ErrDuplicate)
		}
		return false, fmt.Errorf("update vocabulary %d: %w", v.ID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) (bool, error) {
	query, args, err := r.qs.delete(id).ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete: %w", err)
	}
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete vocabulary %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Close closes the underlying pool when the querier owns one.
// Ping checks the connection when the underlying querier supports it.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	if p, ok := r.q.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (r *PostgresRepository) Close() error {
	if c, ok := r.q.(interface{ Close() }); ok {
		c.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVocabulary(row rowScanner) (models.Vocabulary, error) {
	var v models.Vocabulary
	err := row.Scan(
		&v.ID, &v.Word, &v.Translation, &v.Language, &v.PartOfSpeech, &v.ExampleSentence,
		&v.Notes, &v.DateAdded, &v.TimesReviewed, &v.LastReviewed, &v.ConfidenceScore,
	)
	return v, err
}
