package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// Route 把一组域名（按后缀匹配）绑定到一个 resolver。
type Route struct {
	Name     string
	Hosts    []string
	Resolver Resolver
}

func (r Route) matches(host string) bool {
	for _, h := range r.Hosts {
		h = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "."))
		if h == "" {
			continue
		}
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// Router 按 embed 域名选择 resolver，再依次尝试 Fallbacks。
//
// 规则：
// - 第一个产出直链的候选胜出
// - ErrUnsupported / 空结果 => 继续下一个
// - 其它错误记录下来继续尝试；全部失败时返回最后一个错误
type Router struct {
	Routes    []Route
	Fallbacks []Route
}

func (rt Router) Resolve(ctx context.Context, embedRef, referer string) (Result, error) {
	u, err := url.Parse(embedRef)
	if err != nil || u.Host == "" {
		return Result{}, &Error{Resolver: "router", EmbedRef: embedRef, Err: ErrUnsupported}
	}
	host := strings.ToLower(u.Hostname())

	candidates := make([]Route, 0, len(rt.Routes)+len(rt.Fallbacks))
	for _, r := range rt.Routes {
		if r.matches(host) {
			candidates = append(candidates, r)
		}
	}
	candidates = append(candidates, rt.Fallbacks...)

	var (
		lastErr error
		subs    Result
	)
	for _, c := range candidates {
		if c.Resolver == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		res, err := c.Resolver.Resolve(ctx, embedRef, referer)
		if errors.Is(err, ErrUnsupported) {
			continue
		}
		if err != nil {
			lastErr = &Error{Resolver: c.Name, EmbedRef: embedRef, Err: err}
			continue
		}
		if len(res.Links) > 0 {
			return res, nil
		}
		subs.Subtitles = append(subs.Subtitles, res.Subtitles...)
	}
	if lastErr != nil {
		return Result{}, lastErr
	}
	if len(subs.Subtitles) > 0 {
		return subs, nil
	}
	return Result{}, &Error{Resolver: "router", EmbedRef: embedRef, Err: ErrUnsupported}
}

// Default 是 CLI 使用的解析链：直链优先，其次通用播放页。
func Default(c *http.Client) Router {
	return Router{
		Fallbacks: []Route{
			{Name: "direct", Resolver: Direct{}},
			{Name: "page", Resolver: Page{Name: "page", Client: c}},
		},
	}
}
