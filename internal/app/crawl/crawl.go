// Package crawl 按页聚合某个目录分区，并可选地加载每个条目的详情。
//
// 单页失败或单条详情失败只降级为对应结果，不影响其他页/条目。
package crawl

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/anicat/internal/domain"
	"github.com/John-Robertt/anicat/internal/profile"
	"github.com/John-Robertt/anicat/internal/provider"
)

const DefaultMaxPages = 10

// Source 是 crawl 需要的站点能力；*provider.Site 满足它。
type Source interface {
	Name() string
	Profile() profile.Profile
	SectionPage(ctx context.Context, sec profile.Section, page int) (domain.HomeRow, error)
	Load(ctx context.Context, detailRef string) (domain.TitleRecord, error)
}

type Options struct {
	Section  profile.Section
	MaxPages int
	Details  bool

	// Concurrency 同时用于目录页与详情两个阶段。
	Concurrency int
	Log         *zerolog.Logger
}

// FindSection 按名称查找分区（忽略大小写与首尾空白）。
// name 为空时选第一个可分页的分区；都不可分页则选第一个分区。
func FindSection(p profile.Profile, name string) (profile.Section, error) {
	if len(p.Sections) == 0 {
		return profile.Section{}, fmt.Errorf("站点 %q 没有声明任何分区", p.Name)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		for _, s := range p.Sections {
			if s.PagedPath != "" {
				return s, nil
			}
		}
		return p.Sections[0], nil
	}
	names := make([]string, 0, len(p.Sections))
	for _, s := range p.Sections {
		if strings.EqualFold(strings.TrimSpace(s.Name), name) {
			return s, nil
		}
		names = append(names, s.Name)
	}
	return profile.Section{}, fmt.Errorf("站点 %q 没有分区 %q（可选：%s）", p.Name, name, strings.Join(names, ", "))
}

// Execute 执行一次 crawl，返回对外稳定的 CrawlReport。
func Execute(ctx context.Context, src Source, opts Options) domain.CrawlReport {
	return ExecuteWithObserver(ctx, src, opts, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 输出进度。
func ExecuteWithObserver(ctx context.Context, src Source, opts Options, obs Observer) domain.CrawlReport {
	if obs == nil {
		obs = nopObserver{}
	}
	log := zerolog.Nop()
	if opts.Log != nil {
		log = *opts.Log
	}
	workers := opts.Concurrency
	if workers < 1 {
		workers = 1
	}
	maxPages := opts.MaxPages
	if maxPages < 1 {
		maxPages = DefaultMaxPages
	}
	if opts.Section.PagedPath == "" {
		maxPages = 1
	}

	p := src.Profile()
	rep := domain.CrawlReport{
		Site:      src.Name(),
		BaseURL:   p.BaseURL,
		StartedAt: time.Now().UTC(),
	}
	obs.OnStart(src.Name(), opts.Section.Name, maxPages)

	pagesStarted := time.Now()
	pages := crawlPages(ctx, src, p, opts.Section, maxPages, workers, obs, &log)
	entries, dups := mergeEntries(pages)
	rep.Entries = entries
	rep.Summary.Duplicates = dups
	for _, pg := range pages {
		rep.Pages = append(rep.Pages, pg.res)
	}
	obs.OnPhaseDone("pages", map[string]any{
		"pages":      len(pages),
		"entries":    len(entries),
		"duplicates": dups,
	}, time.Since(pagesStarted))

	if opts.Details && len(entries) > 0 {
		titlesStarted := time.Now()
		rep.Titles = loadTitles(ctx, src, entries, workers, obs, &log)
		obs.OnPhaseDone("titles", map[string]any{"titles": len(rep.Titles)}, time.Since(titlesStarted))
	}

	rep.FinishedAt = time.Now().UTC()
	rep.Finalize()
	return rep
}

type pageOutcome struct {
	res     domain.PageResult
	entries []domain.CatalogEntry
}

// crawlPages 用 worker pool 抓取 1..maxPages。
// 某页成功但 HasNext=false 后，更靠后且尚未开始的页直接跳过；已在途的页照常记录。
func crawlPages(ctx context.Context, src Source, p profile.Profile, sec profile.Section, maxPages, workers int, obs Observer, log *zerolog.Logger) []pageOutcome {
	if workers > maxPages {
		workers = maxPages
	}

	var lastPage atomic.Int64
	lastPage.Store(int64(maxPages))

	type done struct {
		out pageOutcome
		dur time.Duration
	}
	jobs := make(chan int)
	results := make(chan done, maxPages)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for page := range jobs {
				if int64(page) > lastPage.Load() {
					continue
				}
				started := time.Now()
				out := crawlPage(ctx, src, p, sec, page)
				if out.res.Status != domain.PageStatusFailed && !out.hasNext {
					lowerLastPage(&lastPage, int64(page))
				}
				results <- done{out: out.pageOutcome, dur: time.Since(started)}
			}
		}()
	}

	go func() {
		for page := 1; page <= maxPages; page++ {
			if int64(page) > lastPage.Load() || ctx.Err() != nil {
				break
			}
			jobs <- page
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	out := make([]pageOutcome, 0, maxPages)
	n := 0
	for r := range results {
		n++
		out = append(out, r.out)
		if r.out.res.Status == domain.PageStatusFailed {
			log.Warn().
				Int("page", r.out.res.Page).
				Str("url", r.out.res.URL).
				Str("error_code", r.out.res.ErrorCode).
				Msg("目录页抓取失败")
		}
		obs.OnPageDone(n, r.out.res, r.dur)
	}
	return out
}

func lowerLastPage(v *atomic.Int64, page int64) {
	for {
		cur := v.Load()
		if page >= cur || v.CompareAndSwap(cur, page) {
			return
		}
	}
}

type pageRun struct {
	pageOutcome
	hasNext bool
}

func crawlPage(ctx context.Context, src Source, p profile.Profile, sec profile.Section, page int) pageRun {
	u, _ := p.SectionURL(sec, page)
	res := domain.PageResult{Page: page, URL: u}

	row, err := src.SectionPage(ctx, sec, page)
	if err != nil {
		res.Status = domain.PageStatusFailed
		res.ErrorCode = provider.ErrorCode(err)
		res.ErrorMsg = err.Error()
		return pageRun{pageOutcome: pageOutcome{res: res}}
	}
	res.Entries = len(row.Entries)
	res.Status = domain.PageStatusOK
	if len(row.Entries) == 0 {
		res.Status = domain.PageStatusEmpty
	}
	return pageRun{
		pageOutcome: pageOutcome{res: res, entries: row.Entries},
		hasNext:     row.HasNext,
	}
}

// mergeEntries 按页码、页内顺序合并，DetailRef 相同只保留第一次出现。
func mergeEntries(pages []pageOutcome) ([]domain.CatalogEntry, int) {
	byPage := make(map[int][]domain.CatalogEntry, len(pages))
	maxPage := 0
	for _, pg := range pages {
		byPage[pg.res.Page] = pg.entries
		if pg.res.Page > maxPage {
			maxPage = pg.res.Page
		}
	}

	seen := make(map[string]struct{})
	out := make([]domain.CatalogEntry, 0)
	dups := 0
	for page := 1; page <= maxPage; page++ {
		for _, e := range byPage[page] {
			if _, ok := seen[e.DetailRef]; ok {
				dups++
				continue
			}
			seen[e.DetailRef] = struct{}{}
			out = append(out, e)
		}
	}
	return out, dups
}

func loadTitles(ctx context.Context, src Source, entries []domain.CatalogEntry, workers int, obs Observer, log *zerolog.Logger) []domain.TitleResult {
	type done struct {
		res domain.TitleResult
		dur time.Duration
	}
	jobs := make(chan string)
	results := make(chan done, len(entries))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ref := range jobs {
				started := time.Now()
				results <- done{res: loadTitle(ctx, src, ref), dur: time.Since(started)}
			}
		}()
	}

	go func() {
		for _, e := range entries {
			jobs <- e.DetailRef
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	out := make([]domain.TitleResult, 0, len(entries))
	for r := range results {
		out = append(out, r.res)
		if !r.res.OK {
			log.Warn().
				Str("detail_ref", r.res.DetailRef).
				Str("error_code", r.res.ErrorCode).
				Msg("详情加载失败")
		}
		obs.OnTitleDone(len(out), len(entries), r.res, r.dur)
	}
	return out
}

func loadTitle(ctx context.Context, src Source, ref string) domain.TitleResult {
	res := domain.TitleResult{DetailRef: ref}
	if err := ctx.Err(); err != nil {
		res.ErrorCode = provider.ErrorCode(err)
		res.ErrorMsg = err.Error()
		return res
	}
	rec, err := src.Load(ctx, ref)
	if err != nil {
		res.ErrorCode = provider.ErrorCode(err)
		res.ErrorMsg = err.Error()
		return res
	}
	res.OK = true
	res.Record = &rec
	return res
}
