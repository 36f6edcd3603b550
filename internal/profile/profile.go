// Package profile 定义“站点 profile”：驱动通用抽取管线的全部站点差异。
//
// profile 是数据，不是代码：选择器、集数正则、剧集顺序声明、默认语言版本。
// 加载时统一补默认值并校验（选择器用 cascadia 预编译，正则必须带捕获组），
// 这样模板写错会在启动时暴露，而不是在解析时静默匹配 0 个节点。
package profile

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/andybalholm/cascadia"

	"github.com/John-Robertt/anicat/internal/classify"
	"github.com/John-Robertt/anicat/internal/domain"
	"github.com/John-Robertt/anicat/internal/extract"
)

const (
	DefaultSearchPath = "/?s="
	// PagePlaceholder 出现在 Section.PagedPath 中，会被替换为页码。
	PagePlaceholder = "{page}"
)

// Profile 是单个站点的完整配置。
type Profile struct {
	Name    string `yaml:"name" json:"name"`
	Title   string `yaml:"title" json:"title"`
	BaseURL string `yaml:"base_url" json:"base_url"`
	Lang    string `yaml:"lang" json:"lang"`

	SearchPath string `yaml:"search_path" json:"search_path"`
	// SearchEntry 为空时沿用 Listing.Entry。
	SearchEntry string `yaml:"search_entry" json:"search_entry"`

	Listing  extract.ListingSelectors `yaml:"listing" json:"listing"`
	Sections []Section                `yaml:"sections" json:"sections"`
	Detail   extract.DetailSelectors  `yaml:"detail" json:"detail"`
	Servers  extract.ServerSelectors  `yaml:"servers" json:"servers"`

	// DefaultVariant 是站点级假设（多数泰语站默认字幕版，也有配音优先的站）。
	DefaultVariant domain.Variant `yaml:"default_variant" json:"default_variant"`

	// Vocabulary 追加在内置词表之后。
	Vocabulary classify.Vocabulary `yaml:"vocabulary" json:"vocabulary"`
}

// Section 是首页的一行。PagedPath 为空表示该行只在第 1 页出现。
type Section struct {
	Name      string `yaml:"name" json:"name"`
	Path      string `yaml:"path" json:"path"`
	PagedPath string `yaml:"paged_path" json:"paged_path"`
	// Entry 为空时沿用 Listing.Entry。
	Entry string `yaml:"entry" json:"entry"`
}

// SectionURL 返回第 page 页的地址；该行不分页且 page>1 时 ok=false。
func (p Profile) SectionURL(s Section, page int) (string, bool) {
	if page <= 1 {
		return p.BaseURL + s.Path, true
	}
	if s.PagedPath == "" {
		return "", false
	}
	return p.BaseURL + strings.ReplaceAll(s.PagedPath, PagePlaceholder, fmt.Sprint(page)), true
}

// SearchURL 拼接搜索地址：空白折叠后做 query 转义（空格变为字面量 '+'）。
func (p Profile) SearchURL(query string) string {
	q := strings.Join(strings.Fields(query), " ")
	return p.BaseURL + p.SearchPath + url.QueryEscape(q)
}

// ListingFor 返回某个 section 实际使用的列表选择器。
func (p Profile) ListingFor(entry string) extract.ListingSelectors {
	sel := p.Listing
	if strings.TrimSpace(entry) != "" {
		sel.Entry = entry
	}
	return sel
}

// Options 返回列表/详情解析共用的站点参数。
func (p Profile) Options() extract.Options {
	return extract.Options{
		Vocabulary:     p.Vocabulary,
		DefaultVariant: p.DefaultVariant,
	}
}

var nameRE = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Normalize 补默认值并校验；返回新的 Profile（不修改入参）。
func Normalize(p Profile) (Profile, error) {
	p.Name = strings.ToLower(strings.TrimSpace(p.Name))
	if !nameRE.MatchString(p.Name) {
		return Profile{}, fmt.Errorf("非法 profile name：%q", p.Name)
	}
	if strings.TrimSpace(p.Title) == "" {
		p.Title = p.Name
	}

	p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	u, err := url.Parse(p.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return Profile{}, fmt.Errorf("profile %s：base_url 必须是 http/https 绝对地址：%q", p.Name, p.BaseURL)
	}

	if p.SearchPath == "" {
		p.SearchPath = DefaultSearchPath
	}
	if p.Listing.Link == "" {
		p.Listing.Link = "a"
	}
	if len(p.Listing.PosterAttrs) == 0 {
		p.Listing.PosterAttrs = []string{"src", "data-lazy-src"}
	}
	if len(p.Detail.PosterAttrs) == 0 {
		p.Detail.PosterAttrs = []string{"src", "data-lazy-src"}
	}
	if p.Detail.EpisodeLink == "" {
		p.Detail.EpisodeLink = "a"
	}
	if len(p.Servers.Attrs) == 0 {
		p.Servers.Attrs = []string{"src", "data-src"}
	}
	p.Vocabulary = classify.DefaultVocabulary().Merge(p.Vocabulary)

	required := map[string]string{
		"listing.entry":  p.Listing.Entry,
		"listing.title":  p.Listing.Title,
		"detail.title":   p.Detail.Title,
		"detail.episode": p.Detail.Episode,
		"servers.server": p.Servers.Server,
	}
	for _, k := range sortedKeys(required) {
		if strings.TrimSpace(required[k]) == "" {
			return Profile{}, fmt.Errorf("profile %s：缺少必填选择器 %s", p.Name, k)
		}
	}
	if p.Detail.SourceOrder == domain.SourceOrderUnset {
		return Profile{}, fmt.Errorf("profile %s：缺少必填字段 detail.source_order（newest_first 或 oldest_first）", p.Name)
	}

	for _, f := range p.selectorFields() {
		if f.value == "" {
			continue
		}
		if _, err := cascadia.ParseGroup(f.value); err != nil {
			return Profile{}, fmt.Errorf("profile %s：选择器 %s 无效（%q）：%w", p.Name, f.name, f.value, err)
		}
	}

	if p.Detail.NumberPattern != "" {
		re, err := regexp.Compile(p.Detail.NumberPattern)
		if err != nil {
			return Profile{}, fmt.Errorf("profile %s：number_pattern 无效：%w", p.Name, err)
		}
		if re.NumSubexp() < 1 {
			return Profile{}, fmt.Errorf("profile %s：number_pattern 必须包含捕获组：%q", p.Name, p.Detail.NumberPattern)
		}
		p.Detail.NumberRE = re
	}

	for i, s := range p.Sections {
		if strings.TrimSpace(s.Name) == "" || !strings.HasPrefix(s.Path, "/") {
			return Profile{}, fmt.Errorf("profile %s：sections[%d] 需要 name 与以 / 开头的 path", p.Name, i)
		}
		if s.PagedPath != "" && !strings.Contains(s.PagedPath, PagePlaceholder) {
			return Profile{}, fmt.Errorf("profile %s：sections[%d].paged_path 必须包含 %s", p.Name, i, PagePlaceholder)
		}
	}

	// 拷贝切片，避免与调用方共享底层数组。
	p.Sections = append([]Section(nil), p.Sections...)
	return p, nil
}

type selectorField struct {
	name  string
	value string
}

func (p Profile) selectorFields() []selectorField {
	fs := []selectorField{
		{"search_entry", p.SearchEntry},
		{"listing.entry", p.Listing.Entry},
		{"listing.title", p.Listing.Title},
		{"listing.link", p.Listing.Link},
		{"listing.poster", p.Listing.Poster},
		{"listing.type_tag", p.Listing.TypeTag},
		{"detail.title", p.Detail.Title},
		{"detail.poster", p.Detail.Poster},
		{"detail.synopsis", p.Detail.Synopsis},
		{"detail.year", p.Detail.Year},
		{"detail.tags", p.Detail.Tags},
		{"detail.status", p.Detail.Status},
		{"detail.variant_tag", p.Detail.VariantTag},
		{"detail.episode", p.Detail.Episode},
		{"detail.episode_link", p.Detail.EpisodeLink},
		{"servers.server", p.Servers.Server},
		{"servers.subtitle", p.Servers.Subtitle},
	}
	for i, s := range p.Sections {
		fs = append(fs, selectorField{fmt.Sprintf("sections[%d].entry", i), s.Entry})
	}
	return fs
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
