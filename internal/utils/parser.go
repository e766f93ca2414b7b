package utils

import (
	"errors"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/goccy/go-json"
)

// ErrMalformedMetadata 结构化字段无法解析
var ErrMalformedMetadata = errors.New("malformed metadata")

// TopCastSize 每部电影保留的主演人数
const TopCastSize = 3

// namedEntry genres / cast / crew 列表中的单个条目
type namedEntry struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

// decodeNamedList 解析 TMDB 导出中以文本存储的列表字段。
// 先按严格 JSON 解析，失败后用 json-repair 修复（单引号、尾逗号等 Python 字面量写法）再解析一次。
func decodeNamedList(raw string) (entries []namedEntry, err error) {
	defer func() {
		if r := recover(); r != nil {
			entries, err = nil, fmt.Errorf("%w: %v", ErrMalformedMetadata, r)
		}
	}()

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if err := json.Unmarshal([]byte(raw), &entries); err == nil {
		return entries, nil
	}

	// 只修复 Python 字面量写法，截断或括号不配对的文本直接视为损坏
	if !completeList(raw) {
		return nil, fmt.Errorf("%w: incomplete list literal", ErrMalformedMetadata)
	}
	repaired, err := jsonrepair.RepairJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	entries = nil
	if err := json.Unmarshal([]byte(repaired), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	return entries, nil
}

// completeList 判断文本是否为完整的列表字面量：以 [ 开头、以 ] 结尾，
// 字符串外的括号配对且引号闭合。单引号与双引号字符串都按 Python 规则处理
func completeList(raw string) bool {
	if !strings.HasPrefix(raw, "[") || !strings.HasSuffix(raw, "]") {
		return false
	}

	var stack []byte
	var quote byte
	escaped := false
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == quote:
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'':
			quote = ch
		case '[', '{':
			stack = append(stack, ch)
		case ']', '}':
			if len(stack) == 0 {
				return false
			}
			open := stack[len(stack)-1]
			if (ch == ']' && open != '[') || (ch == '}' && open != '{') {
				return false
			}
			stack = stack[:len(stack)-1]
			// 最外层列表必须在末尾闭合
			if len(stack) == 0 && i != len(raw)-1 {
				return false
			}
		}
	}
	return quote == 0 && len(stack) == 0
}

// namesOf 提取条目名称，跳过空名称
func namesOf(entries []namedEntry, keep func(namedEntry) bool) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if keep != nil && !keep(e) {
			continue
		}
		if name := strings.TrimSpace(e.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ParseGenres 解析类型列表，保持原顺序；解析失败返回空列表
func ParseGenres(raw string) []string {
	entries, err := decodeNamedList(raw)
	if err != nil {
		return []string{}
	}
	return namesOf(entries, nil)
}

// ParseTopCast 解析演员表，只取前 3 位
func ParseTopCast(raw string) []string {
	entries, err := decodeNamedList(raw)
	if err != nil {
		return []string{}
	}
	if len(entries) > TopCastSize {
		entries = entries[:TopCastSize]
	}
	return namesOf(entries, nil)
}

// ParseDirectors 从职员表中筛选 job 为 "Director" 的人员
func ParseDirectors(raw string) []string {
	entries, err := decodeNamedList(raw)
	if err != nil {
		return []string{}
	}
	return namesOf(entries, func(e namedEntry) bool { return e.Job == "Director" })
}
