package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cinematch/internal/model"
	"github.com/user/cinematch/internal/repository"
	"github.com/user/cinematch/internal/utils"
	"github.com/user/cinematch/internal/vectorizer"
)

type fakeStore struct {
	rows    []model.MovieEmbedding
	keepIDs []int
	err     error
}

func (f *fakeStore) Upsert(_ context.Context, rows []model.MovieEmbedding) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeStore) DeleteMissing(_ context.Context, keepIDs []int) (int64, error) {
	f.keepIDs = keepIDs
	return 1, nil
}

func TestSyncEmbeddings(t *testing.T) {
	catalog := repository.NewCatalog([]model.MovieRecord{
		{ID: 1, Title: "A", Genres: []string{"Action"}},
		{ID: 2, Title: "Empty"},
		{ID: 3, Title: "B", Genres: []string{"Drama"}, Directors: []string{"Nolan"}},
	}, utils.TagPolicyCredits)
	store := &fakeStore{}

	result, err := SyncEmbeddings(context.Background(), store, catalog, vectorizer.NewSemantic(stubEncoder{}, nil, 8, 1))
	require.NoError(t, err)

	assert.Equal(t, SyncResult{Upserted: 2, Skipped: 1, Deleted: 1}, result)
	assert.Equal(t, []int{1, 3}, store.keepIDs)
	require.Len(t, store.rows, 2)
	assert.Equal(t, "stub", store.rows[0].Model)
	assert.Equal(t, []float32{1, 0, 0, 0}, store.rows[0].Embedding.Slice())
	assert.Equal(t, []float32{0, 1, 0, 1}, store.rows[1].Embedding.Slice())
}

func TestSyncEmbeddingsStoreError(t *testing.T) {
	catalog := repository.NewCatalog([]model.MovieRecord{{ID: 1, Title: "A", Genres: []string{"Action"}}}, utils.TagPolicyCredits)
	store := &fakeStore{err: errors.New("db down")}

	_, err := SyncEmbeddings(context.Background(), store, catalog, vectorizer.NewSemantic(stubEncoder{}, nil, 8, 1))
	assert.ErrorContains(t, err, "db down")
}
