package domain

import (
	"fmt"
	"strings"
)

// MediaKind 区分剧集与电影。零值是 Series（无法判断时的默认）。
type MediaKind int

const (
	KindSeries MediaKind = iota
	KindMovie
)

func (k MediaKind) String() string {
	switch k {
	case KindMovie:
		return "movie"
	default:
		return "series"
	}
}

func (k MediaKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *MediaKind) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "series", "":
		*k = KindSeries
	case "movie":
		*k = KindMovie
	default:
		return fmt.Errorf("未知 media kind：%q", string(b))
	}
	return nil
}

// Variant 是语言版本（字幕/配音）。
type Variant int

const (
	VariantUnknown Variant = iota
	VariantSubbed
	VariantDubbed
)

func (v Variant) String() string {
	switch v {
	case VariantSubbed:
		return "subbed"
	case VariantDubbed:
		return "dubbed"
	default:
		return "unknown"
	}
}

// Or 在 v 为 Unknown 时返回 def（站点级默认值，由 profile 决定）。
func (v Variant) Or(def Variant) Variant {
	if v == VariantUnknown {
		return def
	}
	return v
}

func (v Variant) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *Variant) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "unknown", "":
		*v = VariantUnknown
	case "subbed", "sub":
		*v = VariantSubbed
	case "dubbed", "dub":
		*v = VariantDubbed
	default:
		return fmt.Errorf("未知 variant：%q", string(b))
	}
	return nil
}

// Status 是连载状态。
type Status int

const (
	StatusUnknown Status = iota
	StatusOngoing
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusOngoing:
		return "ongoing"
	case StatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "unknown", "":
		*s = StatusUnknown
	case "ongoing":
		*s = StatusOngoing
	case "completed":
		*s = StatusCompleted
	default:
		return fmt.Errorf("未知 status：%q", string(b))
	}
	return nil
}

// SourceOrder 声明站点详情页的剧集列表方向。
//
// 它必须由 profile 显式声明，不做推断：规范化（反转）只依据该标志执行一次。
type SourceOrder int

// SourceOrderUnset 是零值，表示 profile 没有声明方向；profile 校验会拒绝它。
const (
	SourceOrderUnset SourceOrder = iota
	NewestFirst
	OldestFirst
)

func (o SourceOrder) String() string {
	switch o {
	case NewestFirst:
		return "newest_first"
	case OldestFirst:
		return "oldest_first"
	default:
		return "unset"
	}
}

func (o SourceOrder) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *SourceOrder) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "newest_first", "newest-first":
		*o = NewestFirst
	case "oldest_first", "oldest-first":
		*o = OldestFirst
	default:
		return fmt.Errorf("source_order 只能是 newest_first 或 oldest_first，实际是 %q", string(b))
	}
	return nil
}
