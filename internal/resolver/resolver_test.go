package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/John-Robertt/anicat/internal/domain"
)

func TestDirect(t *testing.T) {
	cases := []struct {
		in   string
		kind domain.StreamKind
		q    int
		ok   bool
	}{
		{"https://cdn.test/v/720p/index.m3u8", domain.StreamHLS, 720, true},
		{"https://cdn.test/movie_1080.mp4?t=1", domain.StreamFile, 1080, true},
		{"https://cdn.test/manifest.mpd", domain.StreamDASH, 0, true},
		{"https://player.test/e/abc", "", 0, false},
		{"/relative/index.m3u8", "", 0, false},
	}
	for _, tc := range cases {
		res, err := Direct{}.Resolve(context.Background(), tc.in, "https://site.test/")
		if !tc.ok {
			if !errors.Is(err, ErrUnsupported) {
				t.Fatalf("%s：期望 ErrUnsupported，实际 %v", tc.in, err)
			}
			continue
		}
		if err != nil || len(res.Links) != 1 {
			t.Fatalf("%s：不期望错误：%v %+v", tc.in, err, res)
		}
		d := res.Links[0]
		if d.Kind != tc.kind || d.Quality != tc.q || d.Referer != "https://site.test/" {
			t.Fatalf("%s：描述不符合预期：%+v", tc.in, d)
		}
	}
}

const playerHTML = `<!doctype html><html><body>
<video id="p"><source src="/hls/master.m3u8" type="application/x-mpegURL"></video>
<track kind="subtitles" srclang="en" src="/subs/en.vtt">
<track kind="subtitles" label="ไทย" src="/subs/th.vtt">
<script>
jwplayer("p").setup({ sources: [{ file: "https:\/\/cdn.test\/v\/1080\/index.m3u8" }], image: "/poster.jpg" });
var backup = 'https://cdn2.test/v/720/video.mp4';
</script>
</body></html>`

func TestScan_CollectsVideoScriptAndTracks(t *testing.T) {
	res, err := Scan("page", []byte(playerHTML), "https://player.test/e/abc")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := []string{
		"https://player.test/hls/master.m3u8",
		"https://cdn.test/v/1080/index.m3u8",
		"https://cdn2.test/v/720/video.mp4",
	}
	if len(res.Links) != len(want) {
		t.Fatalf("期望 %d 条直链，实际 %+v", len(want), res.Links)
	}
	for i, w := range want {
		if res.Links[i].URL != w {
			t.Fatalf("第 %d 条期望 %s，实际 %s", i, w, res.Links[i].URL)
		}
		if res.Links[i].Referer != "https://player.test/e/abc" {
			t.Fatalf("直链 Referer 应为播放页：%+v", res.Links[i])
		}
	}
	if res.Links[1].Quality != 1080 || res.Links[2].Kind != domain.StreamFile {
		t.Fatalf("分辨率/类型推断不符合预期：%+v", res.Links)
	}
	if len(res.Subtitles) != 2 || res.Subtitles[0].Language != "en" || res.Subtitles[1].Language != "ไทย" {
		t.Fatalf("字幕不符合预期：%+v", res.Subtitles)
	}
}

func TestPage_SendsRefererAndResolves(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Referer") != "https://www.anime-yuzu.com/ep-1/" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`<video src="/v/480/a.mp4"></video>`))
	}))
	defer srv.Close()

	p := Page{Client: srv.Client()}
	res, err := p.Resolve(context.Background(), srv.URL+"/e/1", "https://www.anime-yuzu.com/ep-1/")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(res.Links) != 1 || res.Links[0].URL != srv.URL+"/v/480/a.mp4" || res.Links[0].Source != "page" {
		t.Fatalf("结果不符合预期：%+v", res.Links)
	}

	if _, err := p.Resolve(context.Background(), srv.URL+"/e/1", ""); err == nil {
		t.Fatalf("无 Referer 被拒绝时应返回错误")
	}
}

func TestRouter_HostRoutingAndFallbacks(t *testing.T) {
	var calls []string
	named := func(name string, res Result, err error) Resolver {
		return Func(func(ctx context.Context, embed, referer string) (Result, error) {
			calls = append(calls, name)
			return res, err
		})
	}
	hit := Result{Links: []domain.StreamDescriptor{{Source: "x", URL: "https://cdn.test/a.m3u8", Kind: domain.StreamHLS}}}

	rt := Router{
		Routes: []Route{
			{Name: "other", Hosts: []string{"other.test"}, Resolver: named("other", hit, nil)},
			{Name: "streamsb", Hosts: []string{"sbembed.test"}, Resolver: named("streamsb", Result{}, errors.New("decode failed"))},
		},
		Fallbacks: []Route{
			{Name: "unsupported", Resolver: named("unsupported", Result{}, ErrUnsupported)},
			{Name: "empty", Resolver: named("empty", Result{}, nil)},
			{Name: "page", Resolver: named("page", hit, nil)},
		},
	}

	res, err := rt.Resolve(context.Background(), "https://www.sbembed.test/e/1", "")
	if err != nil || len(res.Links) != 1 {
		t.Fatalf("期望 fallback 成功：%v %+v", err, res)
	}
	want := []string{"streamsb", "unsupported", "empty", "page"}
	if len(calls) != len(want) {
		t.Fatalf("调用顺序不符合预期：%v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("调用顺序不符合预期：%v", calls)
		}
	}
}

func TestRouter_AllFailReturnsLastError(t *testing.T) {
	rt := Router{Fallbacks: []Route{
		{Name: "a", Resolver: Func(func(ctx context.Context, e, r string) (Result, error) { return Result{}, errors.New("boom") })},
		{Name: "b", Resolver: Direct{}},
	}}
	_, err := rt.Resolve(context.Background(), "https://player.test/e/1", "")
	var re *Error
	if !errors.As(err, &re) || re.Resolver != "a" {
		t.Fatalf("期望 resolver=a 的 *Error，实际 %v", err)
	}

	_, err = Router{}.Resolve(context.Background(), "https://player.test/e/1", "")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("无候选时应为 ErrUnsupported：%v", err)
	}
}
