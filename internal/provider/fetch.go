package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/anicat/internal/infra/cache"
)

const maxPageBody = 8 << 20

// Fetcher 把页面地址变成可查询的文档。
//
// 约束：
// - 不做缓存与重试（由 httpx / SnapshotFetcher 统一实现）
// - 非 2xx、拦截页、空 body 都是错误
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// RawFetcher 返回原始 HTML（快照需要保存字节而不是 DOM）。
type RawFetcher interface {
	FetchRaw(ctx context.Context, pageURL string) ([]byte, error)
}

// HTTPFetcher 是基于 *http.Client 的实现。
type HTTPFetcher struct {
	Client *http.Client
	// Referer 非空时附加在每个请求上（部分站点对站内跳转才返回完整页面）。
	Referer string
}

func (f HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	b, err := f.FetchRaw(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return parseDocument(b)
}

func (f HTTPFetcher) FetchRaw(ctx context.Context, pageURL string) ([]byte, error) {
	if f.Client == nil {
		return nil, errors.New("http client 不能为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if f.Referer != "" {
		req.Header.Set("Referer", f.Referer)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	// 先把 body 读出来：拦截页判断需要内容。
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBody))
	if err != nil {
		return nil, &TransportError{URL: pageURL, Err: err}
	}

	if reason := challengeReason(resp, b); reason != "" {
		return nil, &BlockedError{URL: pageURL, Reason: reason}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{URL: pageURL, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, &TransportError{URL: pageURL, Err: errors.New("empty response body")}
	}
	return b, nil
}

// challengeReason 识别 Cloudflare 的 JS/人机验证页。
func challengeReason(resp *http.Response, b []byte) string {
	if resp.Header.Get("Cf-Mitigated") == "challenge" {
		return "cloudflare"
	}
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusServiceUnavailable && resp.StatusCode != http.StatusOK {
		return ""
	}
	head := b
	if len(head) > 16<<10 {
		head = head[:16<<10]
	}
	if bytes.Contains(head, []byte("<title>Just a moment...</title>")) ||
		bytes.Contains(head, []byte("/cdn-cgi/challenge-platform/")) ||
		bytes.Contains(head, []byte("cf-chl-")) {
		return "cloudflare"
	}
	return ""
}

func parseDocument(b []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("解析 HTML 失败：%w", err)
	}
	return doc, nil
}

// ErrNotSaved 表示离线模式下没有该页面的快照。
var ErrNotSaved = errors.New("离线模式：页面没有快照")

// SnapshotFetcher 在 Next 之上叠加页面快照：
// - Offline=true：只读快照，缺失即 ErrNotSaved（不访问网络）
// - 否则：走 Next，成功后写入快照（写失败只记日志）
type SnapshotFetcher struct {
	Next    RawFetcher
	Store   cache.Store
	Offline bool
	Log     *zerolog.Logger
}

func (f SnapshotFetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	b, err := f.FetchRaw(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return parseDocument(b)
}

func (f SnapshotFetcher) FetchRaw(ctx context.Context, pageURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Offline {
		b, ok, err := f.Store.ReadPage(pageURL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w：%s", ErrNotSaved, pageURL)
		}
		return b, nil
	}
	if f.Next == nil {
		return nil, errors.New("SnapshotFetcher.Next 不能为空")
	}
	b, err := f.Next.FetchRaw(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if werr := f.Store.WritePage(pageURL, b); werr != nil && f.Log != nil {
		f.Log.Warn().Err(werr).Str("url", pageURL).Msg("保存页面快照失败")
	}
	return b, nil
}

