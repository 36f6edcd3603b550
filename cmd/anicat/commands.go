package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/anicat/internal/app/crawl"
	"github.com/John-Robertt/anicat/internal/config"
	"github.com/John-Robertt/anicat/internal/domain"
	"github.com/John-Robertt/anicat/internal/infra/imgx"
	"github.com/John-Robertt/anicat/internal/nfo"
	"github.com/John-Robertt/anicat/internal/profile"
	"github.com/John-Robertt/anicat/internal/provider"
)

type command struct {
	usage string
	check func(cliArgs) error
	run   func(*env) int
}

var commands = map[string]command{
	"home": {
		usage: "用法：\n  anicat home [--page N]\n\n输出首页分区（HomeRow 数组）。第 2 页起只包含可分页的分区。\n\n" + globalFlags,
		check: func(a cliArgs) error {
			if len(a.Positional) > 0 {
				return fmt.Errorf("home 不接受位置参数：%v", a.Positional)
			}
			if a.PageSet && a.Page < 1 {
				return fmt.Errorf("--page 必须 >= 1")
			}
			return a.allowOnly("home", "page")
		},
		run: homeCmd,
	},
	"search": {
		usage: "用法：\n  anicat search QUERY...\n\n多个位置参数以空格拼接为查询词。输出 CatalogEntry 数组。\n\n" + globalFlags,
		check: func(a cliArgs) error {
			if strings.TrimSpace(strings.Join(a.Positional, " ")) == "" {
				return fmt.Errorf("search 需要查询词")
			}
			return a.allowOnly("search")
		},
		run: searchCmd,
	},
	"info": {
		usage: "用法：\n  anicat info DETAIL_REF [--nfo DIR] [--force]\n\n输出 TitleRecord。--nfo 同时写出 tvshow.nfo/movie.nfo；已存在时需要 --force 覆盖。\n\n" + globalFlags,
		check: func(a cliArgs) error {
			if len(a.Positional) != 1 {
				return fmt.Errorf("info 需要且只需要一个 DETAIL_REF")
			}
			if a.has("force") && a.NFODir == "" {
				return fmt.Errorf("--force 只能与 --nfo 一起使用")
			}
			return a.allowOnly("info", "nfo", "force")
		},
		run: infoCmd,
	},
	"links": {
		usage: "用法：\n  anicat links EPISODE_REF\n  anicat links DETAIL_REF --episode N\n  anicat links DETAIL_REF --latest\n\n输出 Playback（sources + subtitles）。\n\n" + globalFlags,
		check: func(a cliArgs) error {
			if len(a.Positional) != 1 {
				return fmt.Errorf("links 需要且只需要一个 REF")
			}
			if a.EpisodeSet && a.Latest {
				return fmt.Errorf("--episode 与 --latest 不能同时使用")
			}
			if a.EpisodeSet && a.Episode < 1 {
				return fmt.Errorf("--episode 必须 >= 1")
			}
			return a.allowOnly("links", "episode", "latest")
		},
		run: linksCmd,
	},
	"crawl": {
		usage: fmt.Sprintf("用法：\n  anicat crawl [--section NAME] [--pages N] [--details]\n\n"+
			"按页抓取目录分区（默认第一个可分页分区，最多 %d 页），按 detail_ref 去重后输出 CrawlReport。\n"+
			"遇到空页即停止；单页/单条失败不影响其他结果，但退出码为 1。\n\n", crawl.DefaultMaxPages) + globalFlags,
		check: func(a cliArgs) error {
			if len(a.Positional) > 0 {
				return fmt.Errorf("crawl 不接受位置参数：%v", a.Positional)
			}
			if a.has("pages") && a.Pages < 1 {
				return fmt.Errorf("--pages 必须 >= 1")
			}
			return a.allowOnly("crawl", "section", "pages", "details")
		},
		run: crawlCmd,
	},
	"profiles": {
		usage: "用法：\n  anicat profiles\n\n列出内置与 --profiles 文件中的站点 profile。\n\n" + globalFlags,
		check: func(a cliArgs) error {
			if len(a.Positional) > 0 {
				return fmt.Errorf("profiles 不接受位置参数：%v", a.Positional)
			}
			return a.allowOnly("profiles")
		},
		run: profilesCmd,
	},
}

func homeCmd(e *env) int {
	if !e.setup() {
		return 1
	}
	s, ok := e.site()
	if !ok {
		return 1
	}
	page := 1
	if e.args.PageSet {
		page = e.args.Page
	}
	rows, err := s.Home(e.ctx, page)
	if err != nil {
		e.fail("", err)
		return 1
	}
	if rows == nil {
		rows = []domain.HomeRow{}
	}
	return exit(e.emit(rows))
}

func searchCmd(e *env) int {
	if !e.setup() {
		return 1
	}
	s, ok := e.site()
	if !ok {
		return 1
	}
	entries, err := s.Search(e.ctx, strings.Join(e.args.Positional, " "))
	if err != nil {
		e.fail("", err)
		return 1
	}
	if len(entries) == 0 {
		e.log.Info().Str("query", strings.Join(e.args.Positional, " ")).Msg("没有搜索结果")
		entries = []domain.CatalogEntry{}
	}
	return exit(e.emit(entries))
}

func infoCmd(e *env) int {
	if !e.setup() {
		return 1
	}
	s, ok := e.site()
	if !ok {
		return 1
	}
	rec, err := s.Load(e.ctx, e.args.Positional[0])
	if err != nil {
		e.fail("", err)
		return 1
	}

	if dir := e.args.NFODir; dir != "" {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(e.cwd, dir)
		}
		name, err := nfo.Write(dir, rec, e.args.Force)
		if err != nil {
			if nfo.IsExist(err) {
				err = fmt.Errorf("%s 已存在（使用 --force 覆盖）：%w", filepath.Join(dir, nfo.FileName(rec)), err)
			}
			e.fail("nfo_write_failed", err)
			return 1
		}
		e.log.Info().Str("path", filepath.Join(dir, name)).Msg("已写出 NFO")
		if rec.PosterRef != "" {
			writePoster(e, s, dir, rec.PosterRef)
		}
	}
	return exit(e.emit(rec))
}

// writePoster 下载并写出 poster.jpg。海报是可选产物：失败只记日志，不影响退出码。
func writePoster(e *env, s *provider.Site, dir, ref string) {
	b, err := s.Asset(e.ctx, ref)
	if err == nil {
		b, err = imgx.PosterJPEG(b)
	}
	if err == nil {
		err = nfo.WritePoster(dir, b, e.args.Force)
	}
	switch {
	case err == nil:
		e.log.Info().Str("path", filepath.Join(dir, nfo.PosterFileName)).Msg("已写出海报")
	case nfo.IsExist(err):
		e.log.Info().Str("path", filepath.Join(dir, nfo.PosterFileName)).Msg("海报已存在，跳过")
	default:
		e.log.Warn().Err(err).Str("poster", ref).Msg("海报下载失败，已跳过")
	}
}

func linksCmd(e *env) int {
	if !e.setup() {
		return 1
	}
	s, ok := e.site()
	if !ok {
		return 1
	}

	ref := e.args.Positional[0]
	if e.args.EpisodeSet || e.args.Latest {
		rec, err := s.Load(e.ctx, ref)
		if err != nil {
			e.fail("", err)
			return 1
		}
		var ep domain.Episode
		var found bool
		if e.args.Latest {
			ep, found = rec.Episodes.Latest()
		} else {
			ep, found = rec.Episodes.ByNumber(e.args.Episode)
		}
		if !found {
			e.fail("episode_not_found", fmt.Errorf("%s 中没有找到指定剧集（共 %d 集）", rec.Title, len(rec.Episodes)))
			return 1
		}
		e.log.Debug().Str("episode", ep.Ref).Int("number", ep.Number).Msg("已选择剧集")
		ref = ep.Ref
	}

	pb, err := s.Links(e.ctx, ref)
	if err != nil {
		e.fail("", err)
		return 1
	}
	if pb.Sources == nil {
		pb.Sources = []domain.StreamSource{}
	}
	if pb.Subtitles == nil {
		pb.Subtitles = []domain.SubtitleTrack{}
	}
	if pb.Empty() {
		e.log.Warn().Str("episode", ref).Msg("没有解析出任何可播放源")
	}
	return exit(e.emit(pb))
}

func crawlCmd(e *env) int {
	if !e.setup() {
		return 1
	}
	s, ok := e.site()
	if !ok {
		return 1
	}
	sec, err := crawl.FindSection(s.Profile(), e.args.Section)
	if err != nil {
		e.fail(config.ErrCodeInvalid, err)
		return 1
	}

	var obs crawl.Observer
	if isTTY(e.stderr) {
		obs = newProgressUI(e.stderr)
	}
	rep := crawl.ExecuteWithObserver(e.ctx, s, crawl.Options{
		Section:     sec,
		MaxPages:    e.args.Pages,
		Details:     e.args.Details,
		Concurrency: e.eff.Concurrency,
		Log:         &e.log,
	}, obs)

	if !e.emit(rep) {
		return 1
	}
	sm := rep.Summary
	fmt.Fprintf(e.stderr, "完成：pages_ok=%d pages_empty=%d pages_failed=%d entries=%d duplicates=%d titles_ok=%d titles_failed=%d\n",
		sm.PagesOK, sm.PagesEmpty, sm.PagesFailed, sm.Entries, sm.Duplicates, sm.TitlesOK, sm.TitlesFailed,
	)
	if err := e.ctx.Err(); err != nil {
		return 1
	}
	if sm.PagesFailed > 0 || sm.TitlesFailed > 0 {
		return 1
	}
	return 0
}

type profileInfo struct {
	Name     string            `json:"name"`
	Title    string            `json:"title"`
	BaseURL  string            `json:"base_url"`
	Lang     string            `json:"lang,omitempty"`
	Sections []profile.Section `json:"sections"`
	Selected bool              `json:"selected"`
}

func profilesCmd(e *env) int {
	if !e.setup() {
		return 1
	}
	out := make([]profileInfo, 0, len(e.catalog.Names()))
	for _, name := range e.catalog.Names() {
		p, _ := e.catalog.Get(name)
		if p.Name == e.eff.Site && e.eff.BaseURL != "" {
			p.BaseURL = e.eff.BaseURL
		}
		out = append(out, profileInfo{
			Name:     p.Name,
			Title:    p.Title,
			BaseURL:  p.BaseURL,
			Lang:     p.Lang,
			Sections: p.Sections,
			Selected: p.Name == e.eff.Site,
		})
	}
	if _, ok := e.catalog.Get(e.eff.Site); !ok {
		e.log.Warn().Str("site", e.eff.Site).Msg("当前选择的站点没有对应 profile")
	}
	return exit(e.emit(out))
}

func exit(ok bool) int {
	if ok {
		return 0
	}
	return 1
}
