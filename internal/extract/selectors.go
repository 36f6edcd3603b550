package extract

import (
	"regexp"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/anicat/internal/classify"
	"github.com/John-Robertt/anicat/internal/domain"
)

// ListingSelectors 描述列表页：Entry 每个匹配节点是一个候选条目，其余选择器相对候选节点。
type ListingSelectors struct {
	Entry string `yaml:"entry" json:"entry"`
	Title string `yaml:"title" json:"title"`

	// Link 为空时取候选节点内第一个 <a>（候选节点本身是 <a> 时取自身）。
	Link     string `yaml:"link" json:"link"`
	LinkAttr string `yaml:"link_attr" json:"link_attr"`

	Poster      string   `yaml:"poster" json:"poster"`
	PosterAttrs []string `yaml:"poster_attrs" json:"poster_attrs"` // 按声明顺序尝试，首个非空胜出

	// TypeTag 的文本同时用于 variant 与 media kind 判定；KindAttr 是候选节点上的属性（通常是 class）。
	TypeTag  string `yaml:"type_tag" json:"type_tag"`
	KindAttr string `yaml:"kind_attr" json:"kind_attr"`
}

// DetailSelectors 是详情页的全部站点差异（选择器 + 编号规则 + 顺序声明）。
type DetailSelectors struct {
	Title       string   `yaml:"title" json:"title"`
	Poster      string   `yaml:"poster" json:"poster"`
	PosterAttrs []string `yaml:"poster_attrs" json:"poster_attrs"`
	Synopsis    string   `yaml:"synopsis" json:"synopsis"`
	Year        string   `yaml:"year" json:"year"`
	Tags        string   `yaml:"tags" json:"tags"`
	Status      string   `yaml:"status" json:"status"`
	VariantTag  string   `yaml:"variant_tag" json:"variant_tag"`

	Episode     string `yaml:"episode" json:"episode"`
	EpisodeLink string `yaml:"episode_link" json:"episode_link"`

	// NumberPattern 的第 1 个捕获组是集数。NumberRE 由 profile 加载时预编译。
	NumberPattern string         `yaml:"number_pattern" json:"number_pattern"`
	NumberRE      *regexp.Regexp `yaml:"-" json:"-"`

	// SourceOrder 必须显式声明；规范化只依据它反转一次。
	SourceOrder domain.SourceOrder `yaml:"source_order" json:"source_order"`

	MovieURLHints []string `yaml:"movie_url_hints" json:"movie_url_hints"`
}

// ServerSelectors 描述剧集页上的嵌入播放器与字幕轨。
type ServerSelectors struct {
	Server string   `yaml:"server" json:"server"`
	Attrs  []string `yaml:"attrs" json:"attrs"` // 主属性在前，回退属性在后

	Subtitle          string   `yaml:"subtitle" json:"subtitle"`
	SubtitleSrcAttr   string   `yaml:"subtitle_src_attr" json:"subtitle_src_attr"`
	SubtitleLangAttrs []string `yaml:"subtitle_lang_attrs" json:"subtitle_lang_attrs"`
}

// Options 是列表/详情解析共用的站点级参数。
type Options struct {
	Vocabulary     classify.Vocabulary
	DefaultVariant domain.Variant

	// Log 只用于 no_match 这类可观测信号；nil 等价于不输出。
	Log *zerolog.Logger
}

func (o Options) logger() *zerolog.Logger { return loggerOrNop(o.Log) }

func loggerOrNop(l *zerolog.Logger) *zerolog.Logger {
	if l == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return l
}

var (
	defaultLinkAttr    = "href"
	defaultPosterAttrs = []string{"src", "data-lazy-src"}
	defaultServerAttrs = []string{"src", "data-src"}
	defaultSubLang     = []string{"srclang", "label"}
)

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func orDefaults(s, def []string) []string {
	if len(s) == 0 {
		return def
	}
	return s
}
