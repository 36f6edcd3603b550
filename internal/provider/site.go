// Package provider 把一个站点 profile 组装成可调用的管线：
// 定位页面 -> 抓取 -> 通用抽取（extract）-> 解析直链（resolver）。
//
// 站点差异全部来自 profile 数据；本包不含任何站点特有的解析代码。
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"

	"github.com/John-Robertt/anicat/internal/domain"
	"github.com/John-Robertt/anicat/internal/extract"
	"github.com/John-Robertt/anicat/internal/profile"
	"github.com/John-Robertt/anicat/internal/resolver"
)

// Options 是站点管线的运行参数。
type Options struct {
	// Concurrency 同时约束首页分区抓取与直链解析的扇出。
	Concurrency    int
	ResolveTimeout time.Duration
	Log            *zerolog.Logger
}

// Site 是 profile 驱动的站点实现。并发安全（只读字段）。
type Site struct {
	profile  profile.Profile
	fetcher  Fetcher
	resolver resolver.Resolver
	opts     Options
	log      zerolog.Logger
}

// New 要求 p 已经过 profile.Normalize。
func New(p profile.Profile, f Fetcher, r resolver.Resolver, opts Options) *Site {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	log := zerolog.Nop()
	if opts.Log != nil {
		log = *opts.Log
	}
	return &Site{
		profile:  p,
		fetcher:  f,
		resolver: r,
		opts:     opts,
		log:      log.With().Str("site", p.Name).Logger(),
	}
}

func (s *Site) Name() string             { return s.profile.Name }
func (s *Site) Profile() profile.Profile { return s.profile }

func (s *Site) extractOptions() extract.Options {
	o := s.profile.Options()
	o.Log = &s.log
	return o
}

func (s *Site) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if s.fetcher == nil {
		return nil, &Error{Site: s.Name(), Stage: StageFetch, Err: errors.New("fetcher 未配置")}
	}
	doc, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, &Error{Site: s.Name(), Stage: StageFetch, Err: err}
	}
	return doc, nil
}

// Asset 下载站内静态资源（海报等），与页面走同一条抓取链（含快照）。
func (s *Site) Asset(ctx context.Context, ref string) ([]byte, error) {
	rf, ok := s.fetcher.(RawFetcher)
	if !ok {
		return nil, &Error{Site: s.Name(), Stage: StageFetch, Err: errors.New("fetcher 不支持原始下载")}
	}
	b, err := rf.FetchRaw(ctx, ref)
	if err != nil {
		return nil, &Error{Site: s.Name(), Stage: StageFetch, Err: err}
	}
	return b, nil
}

// Search 返回搜索结果（文档顺序）。零结果是成功。
func (s *Site) Search(ctx context.Context, query string) ([]domain.CatalogEntry, error) {
	u := s.profile.SearchURL(query)
	doc, err := s.fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	sel := s.profile.ListingFor(s.profile.SearchEntry)
	return extract.Listing(doc.Selection, u, sel, s.extractOptions()), nil
}

// SectionPage 抓取某个首页分区的第 page 页。
// 分区不分页且 page>1 时返回空行（HasNext=false），不发请求。
func (s *Site) SectionPage(ctx context.Context, sec profile.Section, page int) (domain.HomeRow, error) {
	row := domain.HomeRow{Name: sec.Name}
	u, ok := s.profile.SectionURL(sec, page)
	if !ok {
		row.Entries = []domain.CatalogEntry{}
		return row, nil
	}
	doc, err := s.fetch(ctx, u)
	if err != nil {
		return row, err
	}
	row.Entries = extract.Listing(doc.Selection, u, s.profile.ListingFor(sec.Entry), s.extractOptions())
	row.HasNext = sec.PagedPath != "" && len(row.Entries) > 0
	return row, nil
}

// Home 并发抓取所有分区的第 page 页，按 profile 声明顺序返回非空行。
// 单个分区失败只记日志；全部失败才返回错误。
func (s *Site) Home(ctx context.Context, page int) ([]domain.HomeRow, error) {
	if page < 1 {
		page = 1
	}
	sections := make([]profile.Section, 0, len(s.profile.Sections))
	for _, sec := range s.profile.Sections {
		if page == 1 || sec.PagedPath != "" {
			sections = append(sections, sec)
		}
	}
	if len(sections) == 0 {
		return []domain.HomeRow{}, nil
	}

	type result struct {
		row domain.HomeRow
		err error
	}
	mapper := iter.Mapper[profile.Section, result]{MaxGoroutines: s.opts.Concurrency}
	results := mapper.Map(sections, func(sec *profile.Section) result {
		row, err := s.SectionPage(ctx, *sec, page)
		return result{row: row, err: err}
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows := make([]domain.HomeRow, 0, len(results))
	var lastErr error
	failed := 0
	for i, r := range results {
		if r.err != nil {
			failed++
			lastErr = r.err
			s.log.Warn().Err(r.err).Str("section", sections[i].Name).Int("page", page).Msg("首页分区抓取失败，已跳过")
			continue
		}
		if len(r.row.Entries) == 0 {
			continue
		}
		rows = append(rows, r.row)
	}
	if failed == len(results) {
		return nil, fmt.Errorf("首页所有分区均失败：%w", lastErr)
	}
	return rows, nil
}

// Load 抓取并解析详情页。
func (s *Site) Load(ctx context.Context, detailRef string) (domain.TitleRecord, error) {
	doc, err := s.fetch(ctx, detailRef)
	if err != nil {
		return domain.TitleRecord{}, err
	}
	rec, err := extract.Detail(doc.Selection, detailRef, s.profile.Detail, s.extractOptions())
	if err != nil {
		return domain.TitleRecord{}, &Error{Site: s.Name(), Stage: StageParse, Err: err}
	}
	return rec, nil
}

// Links 抓取剧集页并并发解析所有嵌入播放器。
func (s *Site) Links(ctx context.Context, episodeRef string) (domain.Playback, error) {
	doc, err := s.fetch(ctx, episodeRef)
	if err != nil {
		return domain.Playback{}, err
	}
	if s.resolver == nil {
		return domain.Playback{}, &Error{Site: s.Name(), Stage: StageResolve, Err: errors.New("resolver 未配置")}
	}
	pb, err := extract.Streams(ctx, doc.Selection, episodeRef, s.profile.Servers, s.resolver, extract.StreamOptions{
		Concurrency: s.opts.Concurrency,
		Timeout:     s.opts.ResolveTimeout,
		Log:         &s.log,
	})
	if err != nil {
		return domain.Playback{}, &Error{Site: s.Name(), Stage: StageResolve, Err: err}
	}
	return pb, nil
}
