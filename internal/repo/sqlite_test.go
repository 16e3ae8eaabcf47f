package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"langtutor/internal/config"
	"langtutor/internal/models"
)

func newSQLite(t *testing.T) *SQLiteRepository {
	t.Helper()
	r, err := NewSQLiteRepository(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func strPtr(s string) *string { return &s }

func TestSQLiteRepository_AddAndList(t *testing.T) {
	r := newSQLite(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	words := []models.Vocabulary{
		{Word: "chat", Translation: "cat", Language: "French", PartOfSpeech: "noun", DateAdded: base},
		{Word: "perro", Translation: "dog", Language: "Spanish", PartOfSpeech: "noun", DateAdded: base.Add(time.Minute)},
		{Word: "chien", Translation: "dog", Language: "French", PartOfSpeech: "noun", DateAdded: base.Add(2 * time.Minute),
			ExampleSentence: strPtr("Le chien aboie."), Notes: strPtr("masculine")},
	}
	for i := range words {
		ok, err := r.Add(ctx, &words[i])
		require.NoError(t, err)
		require.True(t, ok)
		assert.NotZero(t, words[i].ID)
	}

	all, err := r.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"chien", "perro", "chat"}, []string{all[0].Word, all[1].Word, all[2].Word})

	french, err := r.List(ctx, "French")
	require.NoError(t, err)
	require.Len(t, french, 2)
	assert.Equal(t, "chien", french[0].Word)
	require.NotNil(t, french[0].ExampleSentence)
	assert.Equal(t, "Le chien aboie.", *french[0].ExampleSentence)
	assert.Nil(t, french[1].ExampleSentence)
	assert.Nil(t, french[1].LastReviewed)
	assert.True(t, french[1].DateAdded.Equal(base))

	none, err := r.List(ctx, "German")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestSQLiteRepository_AddDuplicate(t *testing.T) {
	r := newSQLite(t)
	ctx := context.Background()

	ok, err := r.Add(ctx, &models.Vocabulary{Word: "chat", Translation: "cat", Language: "French"})
	require.NoError(t, err)
	require.True(t, ok)

	dup := &models.Vocabulary{Word: "chat", Translation: "chatting", Language: "French"}
	ok, err = r.Add(ctx, dup)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, dup.ID)

	ok, err = r.Add(ctx, &models.Vocabulary{Word: "chat", Translation: "chat", Language: "English"})
	require.NoError(t, err)
	assert.True(t, ok, "same word in another language is allowed")

	exists, err := r.WordExists(ctx, "chat", "French")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = r.WordExists(ctx, "chat", "German")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSQLiteRepository_UpdateReview(t *testing.T) {
	r := newSQLite(t)
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	r.now = func() time.Time { return at }

	v := &models.Vocabulary{Word: "chat", Translation: "cat", Language: "French", ConfidenceScore: 0.5}
	_, err := r.Add(ctx, v)
	require.NoError(t, err)

	require.NoError(t, r.UpdateReview(ctx, v.ID, 0.7))
	require.NoError(t, r.UpdateReview(ctx, v.ID, 1.5))

	got, err := r.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TimesReviewed)
	assert.Equal(t, 1.0, got.ConfidenceScore)
	require.NotNil(t, got.LastReviewed)
	assert.True(t, got.LastReviewed.Equal(at))

	assert.ErrorIs(t, r.UpdateReview(ctx, 999, 0.5), ErrNotFound)
}

func TestSQLiteRepository_UpdateAndDelete(t *testing.T) {
	r := newSQLite(t)
	ctx := context.Background()

	a := &models.Vocabulary{Word: "chat", Translation: "cat", Language: "French"}
	b := &models.Vocabulary{Word: "chien", Translation: "dog", Language: "French"}
	_, err := r.Add(ctx, a)
	require.NoError(t, err)
	_, err = r.Add(ctx, b)
	require.NoError(t, err)

	a.Translation = "cat (domestic)"
	a.Notes = strPtr("common")
	ok, err := r.Update(ctx, *a)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := r.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "cat (domestic)", got.Translation)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "common", *got.Notes)

	b.Word = "chat"
	_, err = r.Update(ctx, *b)
	assert.ErrorIs(t, err, ErrDuplicate)

	ok, err = r.Update(ctx, models.Vocabulary{ID: 999, Word: "x", Translation: "y"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen(t *testing.T) {
	r, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, r.Ping(context.Background()))
	require.NoError(t, r.Close())

	_, err = Open(context.Background(), config.DatabaseConfig{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)
}
