package utils

import (
	"fmt"
	"strings"

	"github.com/user/cinematch/internal/model"
)

// TagPolicy 标签文本的拼接方式
type TagPolicy string

const (
	// TagPolicyCredits 类型 + 导演 + 主演
	TagPolicyCredits TagPolicy = "credits"
	// TagPolicyGenreOverview 类型重复 3 次 + 简介，让相似度偏向类型重合
	TagPolicyGenreOverview TagPolicy = "genre_overview"
)

// GenreRepeat genre_overview 策略下类型的重复次数
const GenreRepeat = 3

// ParseTagPolicy 解析标签策略名称
func ParseTagPolicy(s string) (TagPolicy, error) {
	switch TagPolicy(s) {
	case TagPolicyCredits, TagPolicyGenreOverview:
		return TagPolicy(s), nil
	}
	return "", fmt.Errorf("未知的标签策略: %q", s)
}

// BuildTags 根据策略拼接标签文本，纯函数
func BuildTags(m model.MovieRecord, policy TagPolicy) string {
	var parts []string
	switch policy {
	case TagPolicyGenreOverview:
		parts = make([]string, 0, len(m.Genres)*GenreRepeat+1)
		for i := 0; i < GenreRepeat; i++ {
			parts = append(parts, m.Genres...)
		}
		if overview := strings.TrimSpace(m.Overview); overview != "" {
			parts = append(parts, overview)
		}
	default:
		parts = make([]string, 0, len(m.Genres)+len(m.Directors)+len(m.Cast))
		parts = append(parts, m.Genres...)
		parts = append(parts, m.Directors...)
		parts = append(parts, m.Cast...)
	}
	return strings.Join(parts, " ")
}
