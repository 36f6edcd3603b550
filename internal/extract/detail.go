package extract

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/anicat/internal/classify"
	"github.com/John-Robertt/anicat/internal/domain"
)

// MissingFieldError 表示必填字段缺失（目前只有详情页标题）。
// 它是该次调用的终止性失败：没有标题就没有可返回的东西。
type MissingFieldError struct {
	Field string
	Page  string
}

func (e *MissingFieldError) Error() string {
	if e.Page == "" {
		return fmt.Sprintf("缺少必填字段 %s", e.Field)
	}
	return fmt.Sprintf("缺少必填字段 %s（page=%s）", e.Field, e.Page)
}

// Detail 把详情页解析为 TitleRecord。
//
// 规则：
// - 标题必填，缺失返回 *MissingFieldError
// - 其余字段尽力而为，缺失即空值
// - Kind：URL 提示 > 标题词表 > 默认 Series
// - 剧集：正则取集数，失败回退为“候选节点在文档中的 1-based 位置”；最后按 SourceOrder 反转至多一次
func Detail(doc *goquery.Selection, pageURL string, sel DetailSelectors, opts Options) (domain.TitleRecord, error) {
	title, _ := textOf(doc, sel.Title)
	if title == "" {
		return domain.TitleRecord{}, &MissingFieldError{Field: "title", Page: pageURL}
	}

	rec := domain.TitleRecord{
		Title:     title,
		DetailRef: strings.TrimSpace(pageURL),
		Tags:      []string{},
	}

	if sel.Poster != "" {
		rec.PosterRef = ResolveRef(pageURL, attrChain(doc.Find(sel.Poster).First(), orDefaults(sel.PosterAttrs, defaultPosterAttrs)))
	}
	rec.Synopsis, _ = textOf(doc, sel.Synopsis)
	if y, ok := textOf(doc, sel.Year); ok {
		if n := firstInt(y); n > 0 {
			rec.Year = n
		}
	}
	if sel.Tags != "" {
		var tags []string
		doc.Find(sel.Tags).Each(func(_ int, s *goquery.Selection) {
			tags = append(tags, s.Text())
		})
		rec.Tags = normList(tags)
	}

	rec.Kind = detailKind(title, pageURL, sel.MovieURLHints, opts.Vocabulary)

	statusText, hasStatus := textOf(doc, sel.Status)
	rec.Status = classify.Status(statusText, hasStatus, title, opts.Vocabulary)

	variantText, ok := textOf(doc, sel.VariantTag)
	if !ok {
		variantText = title
	}
	rec.Variant = classify.Variant(variantText, opts.Vocabulary).Or(opts.DefaultVariant)

	rec.Episodes = Episodes(doc, pageURL, sel, opts)
	return rec, nil
}

func detailKind(title, pageURL string, urlHints []string, v classify.Vocabulary) domain.MediaKind {
	// URL 提示只在命中 profile 声明的片段时才算“显式”；其它 URL 不参与判定。
	u := strings.ToLower(pageURL)
	for _, h := range urlHints {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" && strings.Contains(u, h) {
			return domain.KindMovie
		}
	}
	return classify.MediaKind(title, "", v)
}

// Episodes 解析剧集列表并规范化为 newest-first。
//
// 集数回退使用候选节点的原始下标（含被跳过的节点、反转之前），
// 这样同一文档、同一 profile 的多次调用结果逐字节一致。
func Episodes(doc *goquery.Selection, pageURL string, sel DetailSelectors, opts Options) domain.EpisodeList {
	nodes := doc.Find(sel.Episode)
	if nodes.Length() == 0 {
		opts.logger().Warn().
			Str("event", "no_match").
			Str("selector", sel.Episode).
			Str("page", pageURL).
			Msg("剧集选择器没有匹配任何节点")
		return domain.EpisodeList{}
	}

	re := numberRE(sel, opts)
	linkSel := orDefault(sel.EpisodeLink, "a")

	eps := make(domain.EpisodeList, 0, nodes.Length())
	nodes.Each(func(i int, n *goquery.Selection) {
		href := ResolveRef(pageURL, attrChain(selfOrFind(n, linkSel), []string{defaultLinkAttr}))
		if href == "" {
			return
		}
		name := normSpace(n.Text())
		eps = append(eps, domain.Episode{
			Ref:         href,
			DisplayName: name,
			Number:      episodeNumber(re, name, i),
		})
	})

	return Canonicalize(eps, sel.SourceOrder)
}

// Canonicalize 把文档顺序的剧集列表转换为 newest-first。
// 输入必须是文档顺序；返回新切片，不修改输入。
func Canonicalize(docOrder domain.EpisodeList, order domain.SourceOrder) domain.EpisodeList {
	out := slices.Clone(docOrder)
	if out == nil {
		out = domain.EpisodeList{}
	}
	if order == domain.OldestFirst {
		slices.Reverse(out)
	}
	return out
}

func episodeNumber(re *regexp.Regexp, name string, index int) int {
	if re != nil {
		if m := re.FindStringSubmatch(name); len(m) > 1 {
			if n, err := strconv.Atoi(strings.TrimSpace(m[1])); err == nil && n > 0 {
				return n
			}
		}
	}
	return index + 1
}

func numberRE(sel DetailSelectors, opts Options) *regexp.Regexp {
	if sel.NumberRE != nil {
		return sel.NumberRE
	}
	if sel.NumberPattern == "" {
		return nil
	}
	re, err := regexp.Compile(sel.NumberPattern)
	if err != nil {
		opts.logger().Warn().Err(err).Str("pattern", sel.NumberPattern).Msg("集数正则无效，全部回退为位置编号")
		return nil
	}
	return re
}
