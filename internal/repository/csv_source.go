package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/user/cinematch/internal/logging"
	"github.com/user/cinematch/internal/model"
	"github.com/user/cinematch/internal/utils"
)

var (
	// ErrCatalogSchema CSV 无法读取或缺少必需列
	ErrCatalogSchema = errors.New("catalog schema error")
	// ErrCatalogJoin movies 与 credits 连接后没有任何记录
	ErrCatalogJoin = errors.New("catalog join produced no rows")
)

// 必需列
var (
	moviesColumns  = []string{"id", "title", "genres"}
	creditsColumns = []string{"movie_id", "cast", "crew"}
)

// csvTable 按表头名称访问的 CSV 表
type csvTable struct {
	name    string
	columns map[string]int
	rows    [][]string
}

func readTable(name string, r io.Reader, required []string) (*csvTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %s 表头读取失败: %v", ErrCatalogSchema, name, err)
	}

	t := &csvTable{name: name, columns: make(map[string]int, len(header))}
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if _, ok := t.columns[col]; !ok {
			t.columns[col] = i
		}
	}
	for _, col := range required {
		if _, ok := t.columns[col]; !ok {
			return nil, fmt.Errorf("%w: %s 缺少列 %q", ErrCatalogSchema, name, col)
		}
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s 解析失败: %v", ErrCatalogSchema, name, err)
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

// get 读取单元格，列不存在或行过短时返回空串
func (t *csvTable) get(row []string, col string) string {
	i, ok := t.columns[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

type creditsRow struct {
	cast string
	crew string
}

// LoadCatalog 读取 movies 与 credits 两张表，按 id 内连接，保留 movies 的行序
func LoadCatalog(movies, credits io.Reader, policy utils.TagPolicy) (*Catalog, error) {
	mt, err := readTable("movies", movies, moviesColumns)
	if err != nil {
		return nil, err
	}
	ct, err := readTable("credits", credits, creditsColumns)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]creditsRow, len(ct.rows))
	for _, row := range ct.rows {
		id, err := strconv.Atoi(ct.get(row, "movie_id"))
		if err != nil {
			continue
		}
		if _, ok := byID[id]; ok {
			continue
		}
		byID[id] = creditsRow{cast: ct.get(row, "cast"), crew: ct.get(row, "crew")}
	}

	records := make([]model.MovieRecord, 0, len(mt.rows))
	seen := make(map[int]struct{}, len(mt.rows))
	var skipped, duplicated int
	for _, row := range mt.rows {
		id, err := strconv.Atoi(mt.get(row, "id"))
		if err != nil {
			skipped++
			continue
		}
		credit, ok := byID[id]
		if !ok {
			skipped++
			continue
		}
		if _, dup := seen[id]; dup {
			duplicated++
			continue
		}
		seen[id] = struct{}{}

		rec := model.MovieRecord{
			ID:          id,
			Title:       mt.get(row, "title"),
			Overview:    mt.get(row, "overview"),
			Genres:      utils.ParseGenres(mt.get(row, "genres")),
			Cast:        utils.ParseTopCast(credit.cast),
			Directors:   utils.ParseDirectors(credit.crew),
			ReleaseDate: mt.get(row, "release_date"),
		}
		rec.Year = yearOf(rec.ReleaseDate)
		if v, err := strconv.ParseFloat(mt.get(row, "vote_average"), 64); err == nil {
			rec.VoteAverage = v
		}
		records = append(records, rec)
	}

	if len(records) == 0 && len(mt.rows) > 0 && len(ct.rows) > 0 {
		return nil, fmt.Errorf("%w: movies=%d credits=%d", ErrCatalogJoin, len(mt.rows), len(ct.rows))
	}
	if skipped > 0 || duplicated > 0 {
		logging.Warn().
			Int("skipped", skipped).
			Int("duplicated", duplicated).
			Msg("[Catalog] 部分电影未能加入目录")
	}

	return NewCatalog(records, policy), nil
}

// LoadCatalogFiles 从文件路径加载目录
func LoadCatalogFiles(moviesPath, creditsPath string, policy utils.TagPolicy) (*Catalog, error) {
	mf, err := os.Open(moviesPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogSchema, err)
	}
	defer mf.Close()

	cf, err := os.Open(creditsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogSchema, err)
	}
	defer cf.Close()

	c, err := LoadCatalog(mf, cf, policy)
	if err != nil {
		return nil, err
	}
	logging.Info().
		Str("movies", moviesPath).
		Str("credits", creditsPath).
		Int("size", c.Len()).
		Msg("[Catalog] 电影目录加载完成")
	return c, nil
}

// yearOf 从 YYYY-MM-DD 中取年份
func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}
