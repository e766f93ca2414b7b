package model

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// MovieRecord 电影目录中的一条记录（movies 与 credits 连接后的结果）
type MovieRecord struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Overview    string   `json:"overview"`
	Genres      []string `json:"genres"`
	Cast        []string `json:"cast"`      // 前 3 位主演
	Directors   []string `json:"directors"` // 可能为空或多位
	ReleaseDate string   `json:"release_date,omitempty"`
	Year        int      `json:"year,omitempty"`
	VoteAverage float64  `json:"vote_average,omitempty"`
	Tags        string   `json:"-"` // 由其它字段派生，向量化的输入
}

// Recommendation 单条推荐结果
type Recommendation struct {
	Movie      MovieRecord `json:"movie"`
	Score      float64     `json:"score"`
	Reason     string      `json:"reason"`
	ReasonType string      `json:"reason_type"`
	PosterURL  string      `json:"poster_url,omitempty"`
}

// MovieEmbedding pgvector 镜像表
type MovieEmbedding struct {
	MovieID   int             `gorm:"primaryKey;autoIncrement:false"`
	Title     string          `gorm:"index"`
	Genres    pq.StringArray  `gorm:"type:text[]"`
	Model     string          `gorm:"index"`
	Tags      string          `gorm:"type:text"`
	Embedding pgvector.Vector `gorm:"type:vector"`
	UpdatedAt time.Time       `gorm:"index"`
}

// TableName gorm 表名
func (MovieEmbedding) TableName() string {
	return "movie_embeddings"
}

// SimilarMovie pgvector 最近邻查询结果
type SimilarMovie struct {
	MovieID int     `json:"movie_id"`
	Title   string  `json:"title"`
	Score   float64 `json:"score"`
}
