package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/user/cinematch/internal/model"
)

func TestGenerateRecommendationReasonPriority(t *testing.T) {
	source := model.MovieRecord{
		Title:       "Inception",
		Genres:      []string{"Action", "Science Fiction"},
		Directors:   []string{"Christopher Nolan"},
		Cast:        []string{"Leonardo DiCaprio", "Joseph Gordon-Levitt"},
		Year:        2010,
		VoteAverage: 8.1,
	}

	tests := []struct {
		name     string
		target   model.MovieRecord
		wantType string
		contains string
	}{
		{
			name:     "same director",
			target:   model.MovieRecord{Directors: []string{"Christopher Nolan"}, Cast: []string{"Leonardo DiCaprio"}},
			wantType: ReasonDirector,
			contains: "Christopher Nolan",
		},
		{
			name:     "shared lead",
			target:   model.MovieRecord{Directors: []string{"Martin Scorsese"}, Cast: []string{"Leonardo DiCaprio"}},
			wantType: ReasonActor,
			contains: "Leonardo DiCaprio",
		},
		{
			name:     "core genre",
			target:   model.MovieRecord{Genres: []string{"Science Fiction", "Adventure"}},
			wantType: ReasonGenre,
			contains: "科幻",
		},
		{
			name:     "era and rating",
			target:   model.MovieRecord{Genres: []string{"Animation"}, Year: 2011, VoteAverage: 7.9},
			wantType: ReasonEraRating,
			contains: "2010-2011年",
		},
		{
			name:     "era only",
			target:   model.MovieRecord{Year: 2012, VoteAverage: 2.0},
			wantType: ReasonEra,
			contains: "2010",
		},
		{
			name:     "rating only",
			target:   model.MovieRecord{Year: 1970, VoteAverage: 8.0},
			wantType: ReasonRating,
			contains: "8.1 vs 8.0",
		},
		{
			name:     "fallback",
			target:   model.MovieRecord{Year: 1970, VoteAverage: 3.0},
			wantType: ReasonGeneral,
			contains: "基于内容相似度推荐",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, reasonType, score := GenerateRecommendationReason(source, tt.target)
			assert.Equal(t, tt.wantType, reasonType)
			assert.Contains(t, reason, tt.contains)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		})
	}
}

func TestGenerateRecommendationReasonMissingMetadata(t *testing.T) {
	reason, reasonType, _ := GenerateRecommendationReason(model.MovieRecord{}, model.MovieRecord{})
	assert.Equal(t, ReasonGeneral, reasonType)
	assert.NotEmpty(t, reason)
}

func TestCalculateEraSimilarity(t *testing.T) {
	assert.Equal(t, 0.5, calculateEraSimilarity(0, 2000))
	assert.Equal(t, 1.0, calculateEraSimilarity(2000, 2001))
	assert.Equal(t, 0.8, calculateEraSimilarity(2000, 2003))
	assert.Equal(t, 0.2, calculateEraSimilarity(1950, 2000))
}
