package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/anicat/internal/domain"
)

const maxEmbedBody = 4 << 20

var (
	// jwplayer/videojs 配置里的 file: "..." / src: '...'
	configURLRE = regexp.MustCompile(`(?i)["']?(?:file|src|source|hls)["']?\s*:\s*["']([^"']+)["']`)
	bareMediaRE = regexp.MustCompile(`https?:\\?/\\?/[^\s"'<>]+?\.(?:m3u8|mpd|mp4)(?:\?[^\s"'<>]*)?`)
)

// Page 是通用播放页解析器：抓取 embed 页面（带 Referer），
// 从 <video>/<source> 与脚本中的播放器配置里收集直链，并收集 <track> 字幕。
type Page struct {
	Name   string
	Client *http.Client
}

func (p Page) name() string {
	if strings.TrimSpace(p.Name) == "" {
		return "page"
	}
	return p.Name
}

func (p Page) Resolve(ctx context.Context, embedRef, referer string) (Result, error) {
	if p.Client == nil {
		return Result{}, errors.New("http client 不能为空")
	}
	body, finalURL, err := p.fetch(ctx, embedRef, referer)
	if err != nil {
		return Result{}, err
	}
	return Scan(p.name(), body, finalURL)
}

func (p Page) fetch(ctx context.Context, embedRef, referer string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, embedRef, nil)
	if err != nil {
		return nil, "", err
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
		if u, err := url.Parse(referer); err == nil && u.Host != "" {
			req.Header.Set("Origin", u.Scheme+"://"+u.Host)
		}
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxEmbedBody))
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("embed HTTP %d", resp.StatusCode)
	}
	final := embedRef
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return b, final, nil
}

// Scan 从一个已取得的播放页中收集直链与字幕（纯函数，便于离线测试）。
// 直链的 Referer 是播放页本身：媒体 CDN 通常校验的是播放器域名。
func Scan(source string, body []byte, pageURL string) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return Result{}, err
	}

	var (
		links []domain.StreamDescriptor
		seen  = map[string]struct{}{}
	)
	add := func(raw string) {
		abs := absolute(base, raw)
		if abs == "" {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		if d, ok := Describe(source, abs, pageURL); ok {
			seen[abs] = struct{}{}
			links = append(links, d)
		}
	}

	doc.Find("video[src], video source[src], source[src]").Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("src")
		add(v)
	})
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		js := s.Text()
		for _, m := range configURLRE.FindAllStringSubmatch(js, -1) {
			add(m[1])
		}
		for _, m := range bareMediaRE.FindAllString(js, -1) {
			add(m)
		}
	})

	var subs []domain.SubtitleTrack
	subSeen := map[string]struct{}{}
	doc.Find("track[src]").Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("src")
		abs := absolute(base, v)
		if abs == "" {
			return
		}
		if _, dup := subSeen[abs]; dup {
			return
		}
		subSeen[abs] = struct{}{}
		lang := strings.TrimSpace(s.AttrOr("srclang", ""))
		if lang == "" {
			lang = strings.TrimSpace(s.AttrOr("label", ""))
		}
		subs = append(subs, domain.SubtitleTrack{Language: lang, Ref: abs})
	})

	return Result{Links: links, Subtitles: subs}, nil
}

func absolute(base *url.URL, raw string) string {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, `\/`, "/"))
	if raw == "" || strings.HasPrefix(raw, "blob:") || strings.HasPrefix(raw, "data:") {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
