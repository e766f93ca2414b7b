package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cinematch/internal/config"
	"github.com/user/cinematch/internal/repository"
	"github.com/user/cinematch/internal/utils"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv(config.ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("MOVIES_CSV", "testdata/movies.csv")
	t.Setenv("CREDITS_CSV", "testdata/credits.csv")
	t.Setenv("LOG_LEVEL", "disabled")
	t.Setenv("TMDB_API_KEY", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func TestNewLoadsCatalog(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 5, a.Recommender.Catalog().Len())
	assert.Equal(t, config.StrategyTFIDF, a.Recommender.Strategy())
	assert.Equal(t, utils.TagPolicyCredits, a.TagPolicy)
	assert.False(t, a.Posters.Enabled())

	movie, err := a.Recommender.Movie("Avatar")
	require.NoError(t, err)
	assert.Equal(t, []string{"James Cameron"}, movie.Directors)
	assert.Equal(t, 2009, movie.Year)
}

func TestNewRecommends(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)
	defer a.Close()

	recs, err := a.Recommender.Recommend(context.Background(), "The Dark Knight", 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, rec := range recs {
		assert.NotEqual(t, "The Dark Knight", rec.Movie.Title)
		assert.Contains(t, []string{"Inception", "Interstellar"}, rec.Movie.Title)
	}
}

func TestNewEmbeddingStrategy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Recommend.Strategy = config.StrategyEmbedding

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, config.StrategyEmbedding, a.Recommender.Strategy())
	assert.Equal(t, utils.TagPolicyGenreOverview, a.TagPolicy)
	assert.NotNil(t, a.embeddings)
}

func TestNewUnknownStrategy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Recommend.Strategy = "bm25"

	_, err := New(cfg)
	assert.ErrorContains(t, err, "bm25")
}

func TestNewMissingCatalog(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.MoviesPath = filepath.Join(t.TempDir(), "nope.csv")

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestNewMalformedCatalog(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.MoviesPath = "testdata/credits.csv"

	_, err := New(cfg)
	assert.ErrorIs(t, err, repository.ErrCatalogSchema)
}

func TestDatabaseRequiresURL(t *testing.T) {
	a, err := New(testConfig(t))
	require.NoError(t, err)
	defer a.Close()

	_, err = a.SyncDatabase(context.Background())
	assert.ErrorIs(t, err, ErrDatabaseNotConfigured)

	_, err = a.Nearest(context.Background(), "Avatar", 3)
	assert.ErrorIs(t, err, ErrDatabaseNotConfigured)
}

func TestCloseIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	cfg.Recommend.Strategy = config.StrategyEmbedding

	a, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}
