package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"langtutor/internal/config"
	"langtutor/internal/models"
)

var (
	// ErrNotFound is returned when no entry has the requested id.
	ErrNotFound = errors.New("vocabulary entry not found")
	// ErrDuplicate is returned by Update when the new (word, language) pair
	// is already taken by another entry.
	ErrDuplicate = errors.New("vocabulary entry already exists")
)

// VocabularyRepository stores dictionary entries. (word, language) is unique.
type VocabularyRepository interface {
	// Add inserts v and sets its ID. It reports false, with no error, when
	// the word already exists for that language.
	Add(ctx context.Context, v *models.Vocabulary) (bool, error)
	// List returns entries newest first, optionally limited to one language.
	List(ctx context.Context, language string) ([]models.Vocabulary, error)
	Get(ctx context.Context, id int64) (models.Vocabulary, error)
	WordExists(ctx context.Context, word, language string) (bool, error)
	// UpdateReview counts a review and stores the new confidence.
	UpdateReview(ctx context.Context, id int64, confidence float64) error
	// Update edits the word, translation, part of speech, example and notes.
	Update(ctx context.Context, v models.Vocabulary) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open connects the store selected by cfg.Driver and makes sure the schema
// exists.
func Open(ctx context.Context, cfg config.DatabaseConfig) (VocabularyRepository, error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		r := NewPostgresRepository(pool)
		if err := r.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return r, nil
	case "sqlite", "":
		return NewSQLiteRepository(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// NewPool creates a PostgreSQL connection pool and pings it.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
