package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/anicat/internal/domain"
	"github.com/John-Robertt/anicat/internal/extract"
	"github.com/John-Robertt/anicat/internal/infra/cache"
	"github.com/John-Robertt/anicat/internal/profile"
	"github.com/John-Robertt/anicat/internal/resolver"
)

const homeHTML = `<html><body>
<article class="item tvshows"><div class="poster"><img src="/p/naruto.jpg"></div>
  <a href="/anime/naruto/"><h3 class="movie-title">Naruto</h3></a><span class="features-type">ซับไทย</span></article>
<article class="item movies"><a href="/movie/kimetsu/"><h3 class="movie-title">Kimetsu no Yaiba เดอะมูฟวี่</h3></a>
  <span class="features-type">พากย์ไทย</span></article>
</body></html>`

const catalogHTML = `<html><body>
<article class="item"><a href="/anime/frieren/"><h3 class="movie-title">Sousou no Frieren</h3></a></article>
<article class="item"><a href="/anime/naruto/"><h3 class="movie-title">Naruto</h3></a></article>
</body></html>`

const searchHTML = `<html><body>
<article class="item tvshows"><a href="/anime/one-piece/"><h3 class="movie-title">One Piece</h3></a></article>
<article class="item"><a href="/ads/"><h3 class="movie-title">ไม่ใช่ผลการค้นหา</h3></a></article>
</body></html>`

const detailHTML = `<html><body>
<h1 class="entry-title">Sousou no Frieren (ยังไม่จบ)</h1>
<div class="poster"><img src="/p/frieren.jpg"></div>
<div class="entry-content"><p>เอลฟ์ผู้ใช้เวท</p></div>
<span class="year">2023</span>
<div class="genre-info"><a>Fantasy</a></div>
<ul class="episodelist">
  <li><a href="/frieren-ep-1/">ตอนที่ 1</a></li>
  <li><a href="/frieren-ep-2/">ตอนที่ 2</a></li>
</ul>
</body></html>`

const challengeHTML = `<!DOCTYPE html><html><head><title>Just a moment...</title></head>
<body><script src="/cdn-cgi/challenge-platform/h/b/orchestrate/chl_page/v1"></script></body></html>`

type fakeSite struct {
	srv         *httptest.Server
	catalogFail atomic.Bool
	hits        atomic.Int32
	searchQuery atomic.Value
}

func newFakeSite(t *testing.T) *fakeSite {
	t.Helper()
	fs := &fakeSite{}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fs.hits.Add(1)
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Has("s") {
			fs.searchQuery.Store(r.URL.RawQuery)
			_, _ = w.Write([]byte(searchHTML))
			return
		}
		_, _ = w.Write([]byte(homeHTML))
	})
	catalog := func(w http.ResponseWriter, r *http.Request) {
		fs.hits.Add(1)
		if fs.catalogFail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(catalogHTML))
	}
	mux.HandleFunc("/catalog", catalog)
	mux.HandleFunc("/catalog/page/2", catalog)
	mux.HandleFunc("/anime/frieren/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(detailHTML))
	})
	mux.HandleFunc("/anime/broken/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><ul class="episodelist"><li><a href="/x">ตอนที่ 1</a></li></ul></body></html>`))
	})
	mux.HandleFunc("/frieren-ep-1/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="player"><iframe src="/embed/1"></iframe></div>
<div class="servers"><div class="server-item" data-src="/embed/dead"></div></div>
<track kind="subtitles" srclang="th" src="/subs/ep1.vtt"></body></html>`))
	})
	mux.HandleFunc("/embed/1", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.Header.Get("Referer"), "/frieren-ep-1/") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`<script>player.setup({file: "/hls/1080/master.m3u8"})</script>`))
	})
	mux.HandleFunc("/embed/dead", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})
	mux.HandleFunc("/blocked/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(challengeHTML))
	})
	fs.srv = httptest.NewServer(mux)
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeSite) profile(t *testing.T) profile.Profile {
	t.Helper()
	p := profile.AnimeYuzu()
	p.BaseURL = fs.srv.URL
	n, err := profile.Normalize(p)
	if err != nil {
		t.Fatalf("profile 校验失败：%v", err)
	}
	return n
}

func (fs *fakeSite) site(t *testing.T) *Site {
	t.Helper()
	f := HTTPFetcher{Client: fs.srv.Client()}
	return New(fs.profile(t), f, resolver.Default(fs.srv.Client()), Options{Concurrency: 2})
}

func TestSite_SearchLocatorAndResults(t *testing.T) {
	fs := newFakeSite(t)
	s := fs.site(t)

	got, err := s.Search(context.Background(), "  one   piece ")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if q, _ := fs.searchQuery.Load().(string); q != "s=one+piece" {
		t.Fatalf("搜索地址的 query 应为 s=one+piece，实际 %q", q)
	}
	// 搜索使用 search_entry（只匹配 tvshows/movies），普通 article.item 不算结果。
	if len(got) != 1 || got[0].Title != "One Piece" || got[0].DetailRef != fs.srv.URL+"/anime/one-piece/" {
		t.Fatalf("搜索结果不符合预期：%+v", got)
	}
}

func TestSite_HomeRows(t *testing.T) {
	fs := newFakeSite(t)
	s := fs.site(t)

	rows, err := s.Home(context.Background(), 1)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(rows) != 2 || rows[0].Name != "อัพเดทล่าสุด" || rows[1].Name != "อนิเมะทั้งหมด" {
		t.Fatalf("行顺序应与 profile 声明一致：%+v", rows)
	}
	if rows[0].HasNext || !rows[1].HasNext {
		t.Fatalf("只有分页分区有下一页：%+v", rows)
	}
	latest := rows[0].Entries
	if len(latest) != 2 || latest[1].Kind != domain.KindMovie || latest[1].Variant != domain.VariantDubbed {
		t.Fatalf("首页条目不符合预期：%+v", latest)
	}
	if latest[0].PosterRef != fs.srv.URL+"/p/naruto.jpg" || latest[0].Variant != domain.VariantSubbed {
		t.Fatalf("首页条目不符合预期：%+v", latest[0])
	}
}

func TestSite_HomePageTwoSkipsUnpagedSections(t *testing.T) {
	fs := newFakeSite(t)
	s := fs.site(t)

	rows, err := s.Home(context.Background(), 2)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(rows) != 1 || rows[0].Name != "อนิเมะทั้งหมด" {
		t.Fatalf("第 2 页只应包含分页分区：%+v", rows)
	}
	if fs.hits.Load() != 1 {
		t.Fatalf("第 2 页只应请求一次：hits=%d", fs.hits.Load())
	}
}

func TestSite_HomeSectionFailureIsSkipped(t *testing.T) {
	fs := newFakeSite(t)
	fs.catalogFail.Store(true)
	s := fs.site(t)

	rows, err := s.Home(context.Background(), 1)
	if err != nil {
		t.Fatalf("单个分区失败不应导致整体失败：%v", err)
	}
	if len(rows) != 1 || rows[0].Name != "อัพเดทล่าสุด" {
		t.Fatalf("期望只剩最新更新行：%+v", rows)
	}

	if _, err := s.Home(context.Background(), 2); err == nil {
		t.Fatalf("所有分区都失败时应返回错误")
	}
}

func TestSite_Load(t *testing.T) {
	fs := newFakeSite(t)
	s := fs.site(t)

	rec, err := s.Load(context.Background(), fs.srv.URL+"/anime/frieren/")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if rec.Title != "Sousou no Frieren (ยังไม่จบ)" || rec.Year != 2023 || rec.Status != domain.StatusOngoing {
		t.Fatalf("详情不符合预期：%+v", rec)
	}
	// anime-yuzu 声明 oldest_first：规范化后最新一集在前。
	if ep, ok := rec.Episodes.Latest(); !ok || ep.Number != 2 {
		t.Fatalf("最新一集应为第 2 集：%+v", rec.Episodes)
	}
}

func TestSite_LoadMissingTitle(t *testing.T) {
	fs := newFakeSite(t)
	s := fs.site(t)

	_, err := s.Load(context.Background(), fs.srv.URL+"/anime/broken/")
	var mf *extract.MissingFieldError
	if !errors.As(err, &mf) {
		t.Fatalf("期望 MissingFieldError，实际 %v", err)
	}
	var pe *Error
	if !errors.As(err, &pe) || pe.Stage != StageParse {
		t.Fatalf("期望 stage=parse 的 *Error，实际 %v", err)
	}
	if code := ErrorCode(err); code != domain.ErrCodeMissingTitle {
		t.Fatalf("error_code 期望 %s，实际 %s", domain.ErrCodeMissingTitle, code)
	}
}

func TestSite_LinksEndToEnd(t *testing.T) {
	fs := newFakeSite(t)
	s := fs.site(t)

	pb, err := s.Links(context.Background(), fs.srv.URL+"/frieren-ep-1/")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(pb.Sources) != 1 || pb.Sources[0].EmbedRef != fs.srv.URL+"/embed/1" {
		t.Fatalf("失败的 embed 应被丢弃：%+v", pb.Sources)
	}
	link := pb.Sources[0].ResolvedLinks[0]
	if link.URL != fs.srv.URL+"/hls/1080/master.m3u8" || link.Kind != domain.StreamHLS || link.Quality != 1080 {
		t.Fatalf("直链不符合预期：%+v", link)
	}
	if len(pb.Subtitles) != 1 || pb.Subtitles[0].Ref != fs.srv.URL+"/subs/ep1.vtt" {
		t.Fatalf("字幕不符合预期：%+v", pb.Subtitles)
	}
}

func TestHTTPFetcher_Errors(t *testing.T) {
	fs := newFakeSite(t)
	f := HTTPFetcher{Client: fs.srv.Client()}

	_, err := f.Fetch(context.Background(), fs.srv.URL+"/blocked/")
	var be *BlockedError
	if !errors.As(err, &be) || be.Reason != "cloudflare" {
		t.Fatalf("期望 BlockedError，实际 %v", err)
	}
	if ErrorCode(err) != domain.ErrCodeBlocked {
		t.Fatalf("error_code 应为 blocked：%s", ErrorCode(err))
	}

	_, err = f.Fetch(context.Background(), fs.srv.URL+"/nope")
	var se *HTTPStatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("期望 HTTP 404，实际 %v", err)
	}

	_, err = f.Fetch(context.Background(), "http://127.0.0.1:1/")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("期望 TransportError，实际 %v", err)
	}
	if ErrorCode(err) != domain.ErrCodeFetchFailed {
		t.Fatalf("error_code 应为 fetch_failed：%s", ErrorCode(err))
	}
}

func TestSnapshotFetcher_SaveThenReplay(t *testing.T) {
	fs := newFakeSite(t)
	store := cache.New(t.TempDir(), false)
	u := fs.srv.URL + "/anime/frieren/"

	online := SnapshotFetcher{Next: HTTPFetcher{Client: fs.srv.Client()}, Store: store}
	if _, err := online.Fetch(context.Background(), u); err != nil {
		t.Fatalf("在线抓取失败：%v", err)
	}
	fs.srv.Close()

	offline := SnapshotFetcher{Store: cache.New(store.Root, true), Offline: true}
	doc, err := offline.Fetch(context.Background(), u)
	if err != nil {
		t.Fatalf("离线回放失败：%v", err)
	}
	if got := strings.TrimSpace(doc.Find("h1").Text()); got != "Sousou no Frieren (ยังไม่จบ)" {
		t.Fatalf("回放内容不符合预期：%q", got)
	}

	_, err = offline.Fetch(context.Background(), fs.srv.URL+"/catalog")
	if !errors.Is(err, ErrNotSaved) {
		t.Fatalf("期望 ErrNotSaved，实际 %v", err)
	}
}

func TestRegistry(t *testing.T) {
	fs := newFakeSite(t)
	a := fs.site(t)
	if _, err := NewRegistry(a, a); err == nil {
		t.Fatalf("重复 site 应报错")
	}
	reg, err := NewRegistry(a)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if got, ok := reg.Get(" ANIME-YUZU "); !ok || got != a {
		t.Fatalf("应能按名称找到 site")
	}
	if _, ok := reg.Get("nope"); ok {
		t.Fatalf("未注册的名称不应命中")
	}
}

type docOnlyFetcher struct{}

func (docOnlyFetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	return nil, errors.New("unused")
}

func TestSite_Asset(t *testing.T) {
	fs := newFakeSite(t)
	s := fs.site(t)

	b, err := s.Asset(context.Background(), fs.srv.URL+"/anime/frieren/")
	if err != nil || !strings.Contains(string(b), "Sousou no Frieren") {
		t.Fatalf("应返回原始内容：%v", err)
	}

	_, err = s.Asset(context.Background(), fs.srv.URL+"/p/missing.jpg")
	var hs *HTTPStatusError
	if !errors.As(err, &hs) || hs.StatusCode != http.StatusNotFound {
		t.Fatalf("期望 404 HTTPStatusError，实际 %v", err)
	}

	bare := New(fs.profile(t), docOnlyFetcher{}, nil, Options{})
	if _, err := bare.Asset(context.Background(), fs.srv.URL+"/"); ErrorCode(err) != domain.ErrCodeFetchFailed {
		t.Fatalf("不支持原始下载的 fetcher 应返回 fetch_failed：%v", err)
	}
}
