package service

import (
	"fmt"
	"math"
	"strings"

	"github.com/user/cinematch/internal/model"
)

// 推荐理由类型
const (
	ReasonDirector  = "director"
	ReasonActor     = "actor"
	ReasonGenre     = "genre"
	ReasonEraRating = "era_rating"
	ReasonEra       = "era"
	ReasonRating    = "rating"
	ReasonGeneral   = "general"
)

// coreGenres 参与理由生成的核心类型（TMDB 英文名）及展示名称
var coreGenres = map[string]string{
	"Science Fiction": "科幻",
	"Mystery":         "悬疑",
	"Thriller":        "惊悚",
	"Action":          "动作",
	"Comedy":          "喜剧",
	"Romance":         "爱情",
	"Drama":           "剧情",
	"War":             "战争",
	"History":         "历史",
}

// common 两个列表的交集，保持 source 中的顺序
func common(source, target []string) []string {
	set := make(map[string]struct{}, len(target))
	for _, t := range target {
		set[t] = struct{}{}
	}
	out := []string{}
	for _, s := range source {
		if s == "" {
			continue
		}
		if _, ok := set[s]; ok {
			out = append(out, s)
			delete(set, s)
		}
	}
	return out
}

// overlap 重合度：交集大小 / 较长列表长度
func overlap(source, target []string) (float64, []string) {
	shared := common(source, target)
	maxLen := math.Max(float64(len(source)), float64(len(target)))
	if maxLen == 0 {
		return 0, shared
	}
	return float64(len(shared)) / maxLen, shared
}

// calculateRatingSimilarity 计算评分相似度
func calculateRatingSimilarity(sourceRating, targetRating float64) float64 {
	if sourceRating == 0 || targetRating == 0 {
		return 0
	}
	ratingDiff := math.Abs(sourceRating - targetRating)
	// 将评分差异转换为相似度（差异越小，相似度越高）
	return math.Max(0, 1-ratingDiff/10.0)
}

// calculateEraSimilarity 计算年代相似度
func calculateEraSimilarity(sourceYear, targetYear int) float64 {
	if sourceYear == 0 || targetYear == 0 {
		return 0.5 // 如果年份无效，返回中等相似度
	}

	yearDiff := math.Abs(float64(sourceYear - targetYear))
	switch {
	case yearDiff <= 1:
		return 1.0
	case yearDiff <= 3:
		return 0.8
	case yearDiff <= 5:
		return 0.6
	case yearDiff <= 10:
		return 0.4
	default:
		return 0.2
	}
}

// GenerateRecommendationReason 生成推荐理由（基于优先级算法），返回理由、类型与元数据综合相似度
func GenerateRecommendationReason(source, target model.MovieRecord) (string, string, float64) {
	genreSimilarity, commonGenres := overlap(source.Genres, target.Genres)
	directorSimilarity, commonDirectors := overlap(source.Directors, target.Directors)
	actorSimilarity, commonActors := overlap(source.Cast, target.Cast)
	ratingSimilarity := calculateRatingSimilarity(source.VoteAverage, target.VoteAverage)
	eraSimilarity := calculateEraSimilarity(source.Year, target.Year)

	totalSimilarity := genreSimilarity*0.4 +
		directorSimilarity*0.25 +
		actorSimilarity*0.2 +
		ratingSimilarity*0.1 +
		eraSimilarity*0.05

	// 1. 最高优先级：同导演
	if len(commonDirectors) > 0 {
		reason := fmt.Sprintf("由同位导演 %s 执导，叙事风格一脉相承", strings.Join(commonDirectors, "、"))
		return reason, ReasonDirector, totalSimilarity
	}

	// 2. 第二优先级：同主演
	if len(commonActors) > 0 {
		reason := fmt.Sprintf("同样由 %s 领衔主演，演技表现同样出色", commonActors[0])
		return reason, ReasonActor, totalSimilarity
	}

	// 3. 第三优先级：核心类型重合
	var names []string
	has := map[string]bool{}
	for _, g := range commonGenres {
		if name, ok := coreGenres[g]; ok {
			names = append(names, name)
			has[g] = true
		}
	}
	if len(names) > 0 {
		genreDesc := strings.Join(names, "、")
		var reason string
		switch {
		case has["Science Fiction"] || has["Mystery"] || has["Thriller"]:
			reason = fmt.Sprintf("同属优质%s片，带给你类似的烧脑/震撼体验", genreDesc)
		case has["Action"] || has["War"]:
			reason = fmt.Sprintf("同属优质%s片，带给你类似的刺激体验", genreDesc)
		case has["Comedy"] || has["Romance"]:
			reason = fmt.Sprintf("同属优质%s片，带给你类似的情感体验", genreDesc)
		default:
			reason = fmt.Sprintf("同属优质%s片，风格相似", genreDesc)
		}
		return reason, ReasonGenre, totalSimilarity
	}

	// 4. 第四优先级：年代/评分接近
	if source.Year > 0 && target.Year > 0 && eraSimilarity > 0.6 && ratingSimilarity > 0.7 {
		yearRange := fmt.Sprintf("%d年左右", source.Year)
		if source.Year != target.Year {
			yearRange = fmt.Sprintf("%d-%d年", source.Year, target.Year)
		}
		reason := fmt.Sprintf("同为 %s 的经典高分佳作（评分：%.1f vs %.1f）", yearRange, source.VoteAverage, target.VoteAverage)
		return reason, ReasonEraRating, totalSimilarity
	}

	// 5. 第五优先级：仅年代接近
	if source.Year > 0 && target.Year > 0 && eraSimilarity > 0.6 {
		return fmt.Sprintf("同为 %d 年左右的经典佳作", source.Year), ReasonEra, totalSimilarity
	}

	// 6. 第六优先级：仅评分接近
	if ratingSimilarity > 0.8 {
		reason := fmt.Sprintf("同为高分佳作（评分：%.1f vs %.1f）", source.VoteAverage, target.VoteAverage)
		return reason, ReasonRating, totalSimilarity
	}

	return "基于内容相似度推荐", ReasonGeneral, totalSimilarity
}
