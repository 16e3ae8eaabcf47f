package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"langtutor/internal/models"
)

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	r := NewPostgresRepository(mock)
	r.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return r, mock
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestQueries_Postgres(t *testing.T) {
	qs := newQueries(sq.Dollar)

	query, args, err := qs.list("French").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, word, translation, language, part_of_speech, example_sentence, notes, "+
		"date_added, times_reviewed, last_reviewed, confidence_score FROM vocabulary "+
		"WHERE language = $1 ORDER BY date_added DESC, id DESC", query)
	assert.Equal(t, []any{"French"}, args)

	query, _, err = qs.list("").ToSql()
	require.NoError(t, err)
	assert.NotContains(t, query, "WHERE")

	query, _, err = qs.insert(&models.Vocabulary{Word: "chat"}).Suffix("RETURNING id").ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "ON CONFLICT (word, language) DO NOTHING RETURNING id")

	query, _, err = qs.updateReview(1, 0.5, time.Now()).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "times_reviewed = times_reviewed + 1")
}

func TestPostgresRepository_Add(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(mock pgxmock.PgxPoolIface)
		want   bool
		wantID int64
		errIs  bool
	}{
		{
			name: "inserted",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO vocabulary`).
					WithArgs(anyArgs(9)...).
					WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
			},
			want:   true,
			wantID: 7,
		},
		{
			name: "duplicate word",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO vocabulary`).
					WithArgs(anyArgs(9)...).
					WillReturnError(pgx.ErrNoRows)
			},
			want: false,
		},
		{
			name: "database error",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO vocabulary`).
					WithArgs(anyArgs(9)...).
					WillReturnError(errors.New("connection reset"))
			},
			errIs: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, mock := newMockRepo(t)
			tt.setup(mock)

			v := &models.Vocabulary{Word: "chat", Translation: "cat", Language: "French", ConfidenceScore: 3}
			ok, err := r.Add(context.Background(), v)
			if tt.errIs {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, ok)
				assert.Equal(t, tt.wantID, v.ID)
			}
			assert.Equal(t, 1.0, v.ConfidenceScore)
			assert.False(t, v.DateAdded.IsZero())
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRepository_List(t *testing.T) {
	r, mock := newMockRepo(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	example, notes := "Le chat dort.", "feline"
	reviewed := now.Add(-time.Hour)

	mock.ExpectQuery(`SELECT (.+) FROM vocabulary WHERE language = \$1 ORDER BY date_added DESC`).
		WithArgs("French").
		WillReturnRows(pgxmock.NewRows(vocabularyColumns).
			AddRow(int64(2), "chien", "dog", "French", "noun", &example, &notes, now, 1, &reviewed, 0.2).
			AddRow(int64(1), "chat", "cat", "French", "noun", &example, &notes, now.Add(-time.Minute), 0, &reviewed, 0.0))

	got, err := r.List(context.Background(), "French")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "chien", got[0].Word)
	assert.Equal(t, 1, got[0].TimesReviewed)
	require.NotNil(t, got[0].ExampleSentence)
	assert.Equal(t, example, *got[0].ExampleSentence)
	assert.InDelta(t, 0.2, got[0].ConfidenceScore, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_GetNotFound(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT (.+) FROM vocabulary WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnError(pgx.ErrNoRows)

	_, err := r.Get(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_WordExists(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM vocabulary`).
		WithArgs("French", "chat").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))

	ok, err := r.WordExists(context.Background(), "chat", "French")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_UpdateReview(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectExec(`UPDATE vocabulary SET times_reviewed = times_reviewed \+ 1`).
		WithArgs(pgxmock.AnyArg(), 1.0, int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE vocabulary`).
		WithArgs(pgxmock.AnyArg(), 0.0, int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, r.UpdateReview(context.Background(), 3, 1.4))
	assert.ErrorIs(t, r.UpdateReview(context.Background(), 4, -1), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Update(t *testing.T) {
	r, mock := newMockRepo(t)
	v := models.Vocabulary{ID: 5, Word: "chat", Translation: "cat", PartOfSpeech: "noun"}

	mock.ExpectExec(`UPDATE vocabulary SET word = \$1`).
		WithArgs(anyArgs(6)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE vocabulary`).
		WithArgs(anyArgs(6)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(`UPDATE vocabulary`).
		WithArgs(anyArgs(6)...).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	ok, err := r.Update(context.Background(), v)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Update(context.Background(), v)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r.Update(context.Background(), v)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Delete(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectExec(`DELETE FROM vocabulary`).
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM vocabulary`).
		WithArgs(int64(2)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	ok, err := r.Delete(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Delete(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Migrate(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS vocabulary`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, r.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Ping(t *testing.T) {
	r, mock := newMockRepo(t)
	mock.ExpectPing()
	require.NoError(t, r.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
