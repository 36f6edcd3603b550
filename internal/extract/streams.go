package extract

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/anicat/internal/domain"
	"github.com/John-Robertt/anicat/internal/resolver"
)

const (
	defaultResolveConcurrency = 4
	defaultResolveTimeout     = 15 * time.Second
)

// StreamOptions 控制解析扇出：并发上限与单个 embed 的独立超时。
type StreamOptions struct {
	Concurrency int
	Timeout     time.Duration
	Log         *zerolog.Logger
}

// DiscoverEmbeds 找出页面上所有嵌入引用（文档顺序，绝对 URL，去重）。
// 每个节点先读主属性，再读回退属性；都缺失则跳过该节点。
func DiscoverEmbeds(doc *goquery.Selection, pageURL string, sel ServerSelectors) []string {
	attrs := orDefaults(sel.Attrs, defaultServerAttrs)
	seen := map[string]struct{}{}
	var out []string
	doc.Find(sel.Server).Each(func(_ int, n *goquery.Selection) {
		ref := ResolveRef(pageURL, attrChain(n, attrs))
		if ref == "" {
			return
		}
		if _, ok := seen[ref]; ok {
			return
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	})
	return out
}

// DiscoverSubtitles 读取页面自带的字幕轨（通常是 <track>）。
func DiscoverSubtitles(doc *goquery.Selection, pageURL string, sel ServerSelectors) []domain.SubtitleTrack {
	if sel.Subtitle == "" {
		return nil
	}
	srcAttr := orDefault(sel.SubtitleSrcAttr, "src")
	langAttrs := orDefaults(sel.SubtitleLangAttrs, defaultSubLang)

	var out []domain.SubtitleTrack
	doc.Find(sel.Subtitle).Each(func(_ int, n *goquery.Selection) {
		ref := ResolveRef(pageURL, attrChain(n, []string{srcAttr}))
		if ref == "" {
			return
		}
		out = append(out, domain.SubtitleTrack{Language: attrChain(n, langAttrs), Ref: ref})
	})
	return out
}

// Streams 发现剧集页上的嵌入播放器并扇出给 resolver，汇总为 Playback。
//
// 约束：
// - 没有任何 embed：返回空 Playback 与 nil（“无链接页面”是合法结果）
// - 单个 embed 失败/超时/无结果：记录日志后丢弃，不影响其它 embed
// - 返回顺序 = 发现顺序（与各 resolver 的完成先后无关）
// - ctx 被取消：返回 ctx.Err()，丢弃已收集的部分结果
func Streams(ctx context.Context, doc *goquery.Selection, pageURL string, sel ServerSelectors, r resolver.Resolver, opts StreamOptions) (domain.Playback, error) {
	log := loggerOrNop(opts.Log)

	embeds := DiscoverEmbeds(doc, pageURL, sel)
	subs := DiscoverSubtitles(doc, pageURL, sel)
	if len(embeds) == 0 {
		log.Warn().
			Str("event", "no_match").
			Str("selector", sel.Server).
			Str("page", pageURL).
			Msg("没有发现任何嵌入播放器")
		return domain.Playback{Sources: []domain.StreamSource{}, Subtitles: dedupSubtitles(subs)}, nil
	}

	results, err := resolveAll(ctx, embeds, pageURL, r, opts, log)
	if err != nil {
		return domain.Playback{}, err
	}

	pb := domain.Playback{Sources: make([]domain.StreamSource, 0, len(embeds))}
	for i, res := range results {
		if res == nil {
			continue
		}
		subs = append(subs, res.Subtitles...)
		if len(res.Links) == 0 {
			log.Info().Str("embed", embeds[i]).Msg("resolver 没有返回任何直链")
			continue
		}
		pb.Sources = append(pb.Sources, domain.StreamSource{
			EmbedRef:      embeds[i],
			ResolvedLinks: res.Links,
		})
	}
	pb.Subtitles = dedupSubtitles(subs)
	return pb, nil
}

// resolveAll 有界并发地解析所有 embed；结果按下标写回，失败位置为 nil。
// 各 goroutine 只写自己的下标，不共享其它可变状态。
func resolveAll(ctx context.Context, embeds []string, referer string, r resolver.Resolver, opts StreamOptions, log *zerolog.Logger) ([]*resolver.Result, error) {
	limit := opts.Concurrency
	if limit < 1 {
		limit = defaultResolveConcurrency
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultResolveTimeout
	}

	results := make([]*resolver.Result, len(embeds))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, ref := range embeds {
		if ctx.Err() != nil {
			break
		}
		i, ref := i, ref
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			started := time.Now()
			res, err := r.Resolve(cctx, ref, referer)
			if err != nil {
				log.Warn().Err(err).
					Str("embed", ref).
					Dur("took", time.Since(started)).
					Msg("embed 解析失败")
				return nil
			}
			results[i] = &res
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func dedupSubtitles(in []domain.SubtitleTrack) []domain.SubtitleTrack {
	out := make([]domain.SubtitleTrack, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s.Ref == "" {
			continue
		}
		if _, ok := seen[s.Ref]; ok {
			continue
		}
		seen[s.Ref] = struct{}{}
		out = append(out, s)
	}
	return out
}
