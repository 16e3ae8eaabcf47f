package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"langtutor/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS vocabulary (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	word TEXT NOT NULL,
	translation TEXT NOT NULL,
	language TEXT NOT NULL,
	part_of_speech TEXT NOT NULL DEFAULT '',
	example_sentence TEXT,
	notes TEXT,
	date_added TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	times_reviewed INTEGER DEFAULT 0,
	last_reviewed TIMESTAMP,
	confidence_score REAL DEFAULT 0.0,
	UNIQUE(word, language)
)`

// SQLiteRepository is the default single-file store.
type SQLiteRepository struct {
	db  *sqlx.DB
	qs  queries
	now func() time.Time
}

func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	r := &SQLiteRepository{
		db:  db,
		qs:  newQueries(sq.Question),
		now: func() time.Time { return time.Now().UTC() },
	}
	if err := r.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create vocabulary table: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Add(ctx context.Context, v *models.Vocabulary) (bool, error) {
	if v.DateAdded.IsZero() {
		v.DateAdded = r.now()
	}
	v.ConfidenceScore = clampConfidence(v.ConfidenceScore)

	query, args, err := r.qs.insert(v).ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert vocabulary %q: %w", v.Word, err)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return false, err
	}
	if v.ID, err = res.LastInsertId(); err != nil {
		return false, fmt.Errorf("read inserted id: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) List(ctx context.Context, language string) ([]models.Vocabulary, error) {
	query, args, err := r.qs.list(language).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	out := []models.Vocabulary{}
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list vocabulary: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (models.Vocabulary, error) {
	query, args, err := r.qs.get(id).ToSql()
	if err != nil {
		return models.Vocabulary{}, fmt.Errorf("build select: %w", err)
	}
	var v models.Vocabulary
	if err := r.db.GetContext(ctx, &v, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Vocabulary{}, fmt.Errorf("vocabulary %d: %w", id, ErrNotFound)
		}
		return models.Vocabulary{}, fmt.Errorf("get vocabulary %d: %w", id, err)
	}
	return v, nil
}

func (r *SQLiteRepository) WordExists(ctx context.Context, word, language string) (bool, error) {
	query, args, err := r.qs.exists(word, language).ToSql()
	if err != nil {
		return false, fmt.Errorf("build count: %w", err)
	}
	var n int
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return false, fmt.Errorf("count vocabulary: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) UpdateReview(ctx context.Context, id int64, confidence float64) error {
	query, args, err := r.qs.updateReview(id, clampConfidence(confidence), r.now()).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update review %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("vocabulary %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, v models.Vocabulary) (bool, error) {
	query, args, err := r.qs.update(v).ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return false, fmt.Errorf("vocabulary %q: %w", v.Word, ErrDuplicate)
		}
		return false, fmt.Errorf("update vocabulary %d: %w", v.ID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) (bool, error) {
	query, args, err := r.qs.delete(id).ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete vocabulary %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
