// Package extract 把结构松散、标记不一致的 HTML 转成严格的目录数据模型。
//
// 约束：
// - 列表/详情解析是纯函数：相同输入 => 相同输出，不做 I/O
// - 字段缺失降级为空值；节点缺失只跳过该节点；只有“详情页缺标题”是调用级失败
// - 选择器零匹配只记录 no_match 日志，不是错误（用于发现模板漂移）
package extract

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/anicat/internal/classify"
	"github.com/John-Robertt/anicat/internal/domain"
)

// Listing 把列表页（首页分区/目录页/搜索结果）解析为有序的 CatalogEntry。
//
// 每个候选节点独立处理：标题或链接缺失的节点直接跳过，不影响相邻节点。
// 输出保持文档顺序，不去重（重叠选择器导致的重复由下游自行处理）。
func Listing(scope *goquery.Selection, pageURL string, sel ListingSelectors, opts Options) []domain.CatalogEntry {
	nodes := scope.Find(sel.Entry)
	if nodes.Length() == 0 {
		opts.logger().Warn().
			Str("event", "no_match").
			Str("selector", sel.Entry).
			Str("page", pageURL).
			Msg("列表选择器没有匹配任何节点")
		return []domain.CatalogEntry{}
	}

	out := make([]domain.CatalogEntry, 0, nodes.Length())
	nodes.Each(func(_ int, n *goquery.Selection) {
		if e, ok := listingEntry(n, pageURL, sel, opts); ok {
			out = append(out, e)
		}
	})
	return out
}

func listingEntry(n *goquery.Selection, pageURL string, sel ListingSelectors, opts Options) (domain.CatalogEntry, bool) {
	title, _ := textOf(n, sel.Title)
	if title == "" {
		return domain.CatalogEntry{}, false
	}

	link := selfOrFind(n, orDefault(sel.Link, "a"))
	href := ResolveRef(pageURL, attrChain(link, []string{orDefault(sel.LinkAttr, defaultLinkAttr)}))
	if href == "" {
		return domain.CatalogEntry{}, false
	}

	poster := ""
	if sel.Poster != "" {
		poster = ResolveRef(pageURL, attrChain(n.Find(sel.Poster).First(), orDefaults(sel.PosterAttrs, defaultPosterAttrs)))
	}

	tag, _ := textOf(n, sel.TypeTag)
	hint := tag
	if sel.KindAttr != "" {
		if v, ok := n.Attr(sel.KindAttr); ok {
			hint = normSpace(v + " " + tag)
		}
	}

	return domain.CatalogEntry{
		Title:     title,
		DetailRef: href,
		PosterRef: poster,
		Kind:      classify.MediaKind(title, hint, opts.Vocabulary),
		Variant:   classify.Variant(tag, opts.Vocabulary).Or(opts.DefaultVariant),
	}, true
}
