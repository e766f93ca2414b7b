package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cinematch/internal/repository"
	"github.com/user/cinematch/internal/utils"
)

const (
	watchMovies = `id,title,overview,genres
1,Alpha,,"[{""name"": ""Action""}]"
2,Beta,,"[{""name"": ""Action""}]"
`
	watchMoviesUpdated = `id,title,overview,genres
1,Alpha,,"[{""name"": ""Action""}]"
2,Beta,,"[{""name"": ""Action""}]"
3,Gamma,,"[{""name"": ""Action""}]"
`
	watchCredits = `movie_id,title,cast,crew
1,Alpha,[],[]
2,Beta,[],[]
3,Gamma,[],[]
`
)

func writeCatalogFiles(t *testing.T, dir, movies string) (string, string) {
	t.Helper()
	moviesPath := filepath.Join(dir, "movies.csv")
	creditsPath := filepath.Join(dir, "credits.csv")
	require.NoError(t, os.WriteFile(moviesPath, []byte(movies), 0o644))
	require.NoError(t, os.WriteFile(creditsPath, []byte(watchCredits), 0o644))
	return moviesPath, creditsPath
}

func TestCatalogWatcherReload(t *testing.T) {
	dir := t.TempDir()
	moviesPath, creditsPath := writeCatalogFiles(t, dir, watchMovies)

	catalog, err := repository.LoadCatalogFiles(moviesPath, creditsPath, utils.TagPolicyCredits)
	require.NoError(t, err)
	r := NewRecommender(catalog, newLexical(t), 10, time.Hour)
	w := NewCatalogWatcher(moviesPath, creditsPath, utils.TagPolicyCredits, r).WithWarm(true)

	require.NoError(t, os.WriteFile(moviesPath, []byte(watchMoviesUpdated), 0o644))
	require.NoError(t, w.Reload(context.Background()))
	assert.Equal(t, 3, r.Catalog().Len())

	recs, err := r.Recommend(context.Background(), "Gamma", 5)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestCatalogWatcherKeepsOldCatalogOnError(t *testing.T) {
	dir := t.TempDir()
	moviesPath, creditsPath := writeCatalogFiles(t, dir, watchMovies)

	catalog, err := repository.LoadCatalogFiles(moviesPath, creditsPath, utils.TagPolicyCredits)
	require.NoError(t, err)
	r := NewRecommender(catalog, newLexical(t), 10, time.Hour)
	w := NewCatalogWatcher(moviesPath, creditsPath, utils.TagPolicyCredits, r)

	require.NoError(t, os.WriteFile(moviesPath, []byte("id,title\n1,Alpha\n"), 0o644))
	err = w.Reload(context.Background())
	assert.ErrorIs(t, err, repository.ErrCatalogSchema)
	assert.Same(t, catalog, r.Catalog())
}

func TestCatalogWatcherPicksUpFileChanges(t *testing.T) {
	dir := t.TempDir()
	moviesPath, creditsPath := writeCatalogFiles(t, dir, watchMovies)

	catalog, err := repository.LoadCatalogFiles(moviesPath, creditsPath, utils.TagPolicyCredits)
	require.NoError(t, err)
	r := NewRecommender(catalog, newLexical(t), 10, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := NewCatalogWatcher(moviesPath, creditsPath, utils.TagPolicyCredits, r).WithDebounce(50 * time.Millisecond)
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(moviesPath, []byte(watchMoviesUpdated), 0o644))
	assert.Eventually(t, func() bool {
		return r.Catalog().Len() == 3
	}, 5*time.Second, 20*time.Millisecond)
}
