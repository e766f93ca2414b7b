package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cinematch/internal/model"
)

const (
	genresJSON = `[{"id": 28, "name": "Action"}, {"id": 12, "name": "Adventure"}, {"id": 878, "name": "Science Fiction"}]`
	castJSON   = `[{"cast_id": 242, "character": "Jake Sully", "name": "Sam Worthington"},
		{"cast_id": 3, "character": "Neytiri", "name": "Zoe Saldana"},
		{"cast_id": 25, "character": "Grace", "name": "Sigourney Weaver"},
		{"cast_id": 4, "character": "Quaritch", "name": "Stephen Lang"}]`
	crewJSON = `[{"department": "Editing", "job": "Editor", "name": "Stephen E. Rivkin"},
		{"department": "Directing", "job": "Director", "name": "James Cameron"},
		{"department": "Writing", "job": "Director of Photography", "name": "Mauro Fiore"}]`
)

func TestParseGenres(t *testing.T) {
	assert.Equal(t, []string{"Action", "Adventure", "Science Fiction"}, ParseGenres(genresJSON))
}

func TestParseTopCastTruncates(t *testing.T) {
	assert.Equal(t, []string{"Sam Worthington", "Zoe Saldana", "Sigourney Weaver"}, ParseTopCast(castJSON))
}

func TestParseTopCastFewerThanThree(t *testing.T) {
	assert.Equal(t, []string{"Solo"}, ParseTopCast(`[{"name": "Solo"}]`))
}

func TestParseDirectorsExactJobMatch(t *testing.T) {
	assert.Equal(t, []string{"James Cameron"}, ParseDirectors(crewJSON))
}

func TestParseDirectorsMultipleAndNone(t *testing.T) {
	multi := `[{"job": "Director", "name": "Joel Coen"}, {"job": "Producer", "name": "X"}, {"job": "Director", "name": "Ethan Coen"}]`
	assert.Equal(t, []string{"Joel Coen", "Ethan Coen"}, ParseDirectors(multi))
	assert.Empty(t, ParseDirectors(`[{"job": "Producer", "name": "X"}]`))
}

func TestParsePythonLiteral(t *testing.T) {
	raw := `[{'id': 18, 'name': 'Drama'}, {'id': 10749, 'name': 'Romance'}]`
	assert.Equal(t, []string{"Drama", "Romance"}, ParseGenres(raw))
}

func TestMalformedMetadataReturnsEmpty(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"not a list",
		"42",
		`{"name": "Action"}`,
		`[1, 2, 3]`,
		`[{"name": 5}]`,
		"null",
		`[{"name": "Action"}, {"name": "Dra`,
		`[{"name": "Action"}`,
		`[{'name': 'Action'}, {'name': 'Dra`,
		`[{"name": "Action"}]]`,
		`[{"name": "Action"}] trailing`,
		`[{"name": "Action"]`,
	}
	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Empty(t, ParseGenres(raw))
				assert.Empty(t, ParseTopCast(raw))
				assert.Empty(t, ParseDirectors(raw))
			})
		})
	}
}

func TestCompleteList(t *testing.T) {
	complete := []string{
		`[]`,
		`[{'id': 18, 'name': 'Drama'}]`,
		`[{"name": "Schindler's List"}, {'name': 'Heat'}]`,
		`[{'name': 'A [bracket] in a string'}]`,
		`[{'name': 'It\'s escaped'}]`,
	}
	for _, raw := range complete {
		assert.True(t, completeList(raw), raw)
	}

	incomplete := []string{
		`[{'name': 'Action'}`,
		`[{'name': 'Action'}, {'name': 'Dra`,
		`[{'name': 'Action'}, {'name': 'Dra'`,
		`{'name': 'Action'}`,
		`[{'name': 'Action'}][]`,
		`[{'name': 'Action']`,
		`[{'name': 'Action}]`,
	}
	for _, raw := range incomplete {
		assert.False(t, completeList(raw), raw)
	}
}

func TestTruncatedListReportsMalformed(t *testing.T) {
	_, err := decodeNamedList(`[{"name": "Action"}, {"name": "Dra`)
	assert.ErrorIs(t, err, ErrMalformedMetadata)
}

func TestDecodeNamedListReportsMalformed(t *testing.T) {
	_, err := decodeNamedList(`[1, 2, 3]`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedMetadata)
}

func TestBuildTagsCredits(t *testing.T) {
	m := model.MovieRecord{
		Genres:    []string{"Action", "Adventure"},
		Directors: []string{"James Cameron"},
		Cast:      []string{"Sam Worthington", "Zoe Saldana"},
		Overview:  "ignored",
	}
	assert.Equal(t, "Action Adventure James Cameron Sam Worthington Zoe Saldana", BuildTags(m, TagPolicyCredits))
}

func TestBuildTagsGenreOverview(t *testing.T) {
	m := model.MovieRecord{
		Genres:   []string{"Drama", "Romance"},
		Overview: "  A love story.  ",
		Cast:     []string{"ignored"},
	}
	assert.Equal(t, "Drama Romance Drama Romance Drama Romance A love story.", BuildTags(m, TagPolicyGenreOverview))

	m.Overview = ""
	assert.Equal(t, "Drama Romance Drama Romance Drama Romance", BuildTags(m, TagPolicyGenreOverview))
}

func TestBuildTagsDeterministic(t *testing.T) {
	m := model.MovieRecord{Genres: []string{"Crime"}, Directors: []string{"A", "B"}, Cast: []string{"C"}}
	first := BuildTags(m, TagPolicyCredits)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BuildTags(m, TagPolicyCredits))
	}
}

func TestParseTagPolicy(t *testing.T) {
	p, err := ParseTagPolicy("genre_overview")
	require.NoError(t, err)
	assert.Equal(t, TagPolicyGenreOverview, p)

	_, err = ParseTagPolicy("keywords")
	assert.Error(t, err)
}
