// Package classify 从“语义被挤进自由文本”的字段里推断作品类型、语言版本与连载状态。
//
// 所有函数都是纯函数，不做 I/O；比较前统一做 NFC 规范化 + case folding，
// 这样泰文/拉丁混排的标题与 “MOVIE”/“Movie” 之类的大小写差异都能稳定命中。
package classify

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/John-Robertt/anicat/internal/domain"
)

// Vocabulary 是启发式所用的固定词表。站点 profile 可以在默认词表之上追加。
type Vocabulary struct {
	MovieMarkers  []string `yaml:"movie_markers" json:"movie_markers"`
	SeriesMarkers []string `yaml:"series_markers" json:"series_markers"`

	DubMarkers []string `yaml:"dub_markers" json:"dub_markers"`
	SubMarkers []string `yaml:"sub_markers" json:"sub_markers"`

	OngoingMarkers   []string `yaml:"ongoing_markers" json:"ongoing_markers"`
	CompletedMarkers []string `yaml:"completed_markers" json:"completed_markers"`
}

// DefaultVocabulary 返回内置词表（泰语站点 + 英文通用标记）。
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		MovieMarkers:     []string{"movie", "เดอะมูฟวี่", "มูฟวี่"},
		SeriesMarkers:    []string{"series", "tvshows"},
		DubMarkers:       []string{"พากย์ไทย", "พากย์", "dubbed", "dub"},
		SubMarkers:       []string{"ซับไทย", "ซับ", "subbed", "sub"},
		OngoingMarkers:   []string{"ยังไม่จบ", "ongoing", "unfinished"},
		CompletedMarkers: []string{"จบแล้ว", "completed", "finished"},
	}
}

// Merge 返回 v 与 extra 的并集（保持顺序，去重）。
func (v Vocabulary) Merge(extra Vocabulary) Vocabulary {
	return Vocabulary{
		MovieMarkers:     union(v.MovieMarkers, extra.MovieMarkers),
		SeriesMarkers:    union(v.SeriesMarkers, extra.SeriesMarkers),
		DubMarkers:       union(v.DubMarkers, extra.DubMarkers),
		SubMarkers:       union(v.SubMarkers, extra.SubMarkers),
		OngoingMarkers:   union(v.OngoingMarkers, extra.OngoingMarkers),
		CompletedMarkers: union(v.CompletedMarkers, extra.CompletedMarkers),
	}
}

// MediaKind 判定电影/剧集。
//
// 优先级：hint（URL 或类型标签）> 标题词表 > 默认 Series。
// hint 里出现 series 标记同样是“显式”判定，不会再被标题覆盖。
func MediaKind(title, hint string, v Vocabulary) domain.MediaKind {
	if h := fold(hint); h != "" {
		if containsAny(h, v.MovieMarkers) {
			return domain.KindMovie
		}
		if containsAny(h, v.SeriesMarkers) {
			return domain.KindSeries
		}
	}
	if containsAny(fold(title), v.MovieMarkers) {
		return domain.KindMovie
	}
	return domain.KindSeries
}

// Variant 从类型标签文本判定语言版本；未命中返回 Unknown（由调用方套用站点默认值）。
// 配音标记优先于字幕标记（常见 “พากย์ไทย + ซับไทย” 同时出现，此时视为配音版）。
func Variant(tag string, v Vocabulary) domain.Variant {
	t := fold(tag)
	if t == "" {
		return domain.VariantUnknown
	}
	if containsMarker(t, v.DubMarkers) {
		return domain.VariantDubbed
	}
	if containsMarker(t, v.SubMarkers) {
		return domain.VariantSubbed
	}
	return domain.VariantUnknown
}

// Status 判定连载状态。
//
// 双路径（不同模板暴露状态的方式不同，两条都要保留）：
// - 显式字段存在：含“完结”标记 => Completed，否则 Ongoing
//   （先排除“未完结”标记：英文 “unfinished” 本身包含 “finished”）
// - 显式字段缺失：标题含“未完结”标记 => Ongoing，否则 Completed
func Status(explicit string, hasExplicit bool, title string, v Vocabulary) domain.Status {
	if e := fold(explicit); hasExplicit && e != "" {
		if containsAny(e, v.OngoingMarkers) {
			return domain.StatusOngoing
		}
		if containsAny(e, v.CompletedMarkers) {
			return domain.StatusCompleted
		}
		return domain.StatusOngoing
	}
	if containsAny(fold(title), v.OngoingMarkers) {
		return domain.StatusOngoing
	}
	return domain.StatusCompleted
}

func fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// Caser 有内部状态，不能跨 goroutine 共享；每次新建即可。
	return cases.Fold().String(norm.NFC.String(s))
}

func containsAny(folded string, markers []string) bool {
	for _, m := range markers {
		m = fold(m)
		if m == "" {
			continue
		}
		if strings.Contains(folded, m) {
			return true
		}
	}
	return false
}

// containsMarker 与 containsAny 相同，但纯 ASCII 标记必须整词命中，
// 避免 “Dubai”“Submarine” 这类标题被误判。泰文不分词，仍按子串匹配。
func containsMarker(folded string, markers []string) bool {
	for _, m := range markers {
		m = fold(m)
		if m == "" {
			continue
		}
		if !isASCII(m) {
			if strings.Contains(folded, m) {
				return true
			}
			continue
		}
		for from := 0; ; {
			i := strings.Index(folded[from:], m)
			if i < 0 {
				break
			}
			i += from
			if wordEdge(folded, i, -1) && wordEdge(folded, i+len(m), 1) {
				return true
			}
			from = i + 1
		}
	}
	return false
}

// wordEdge 报告 pos 处（dir<0 看前一个字符，dir>0 看后一个字符）是否为词边界。
func wordEdge(s string, pos, dir int) bool {
	var r rune
	if dir < 0 {
		if pos == 0 {
			return true
		}
		r, _ = utf8.DecodeLastRuneInString(s[:pos])
	} else {
		if pos >= len(s) {
			return true
		}
		r, _ = utf8.DecodeRuneInString(s[pos:])
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func union(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			k := fold(s)
			if k == "" {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
