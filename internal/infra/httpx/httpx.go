// Package httpx 固化抓取用的网络策略：UA 池、代理、cookie、有界重试与总超时。
//
// 站点适配层只负责“定位页面 + 解析 HTML”，不关心这些细节。
package httpx

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/net/publicsuffix"
)

const (
	DefaultTimeout  = 20 * time.Second
	DefaultRetryMax = 2
	defaultBackoff  = 300 * time.Millisecond
)

// Transport 是带 UA 池与有界重试的 RoundTripper。
type Transport struct {
	Base *http.Transport

	ua *uaPool

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 2 表示最多 3 次尝试。
	RetryMax int
	// Backoff 是首次重试前的等待；之后指数增长。
	Backoff time.Duration

	// AcceptLanguage 非空时作为默认 Accept-Language（泰语站对语言头敏感）。
	AcceptLanguage string

	// DisableKeepAlives 决定是否对 Request 设置 Close=true（额外保险）。
	// 真正禁用 keep-alive 依赖 Base.DisableKeepAlives。
	DisableKeepAlives bool
}

// retryableStatus 只包含“换个时机再试可能成功”的状态码。
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

type statusErr int

func (e statusErr) Error() string { return fmt.Sprintf("HTTP %d", int(e)) }

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只对“可重放”的请求做重试：GET/HEAD 且无 body。
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && (req.Body == nil || req.Body == http.NoBody)
	max := t.RetryMax
	if max < 0 || !canRetry {
		max = 0
	}
	attempts := uint(max + 1)
	backoff := t.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	var n uint
	return retry.DoWithData(
		func() (*http.Response, error) {
			n++
			r := req.Clone(req.Context())
			if r.Header.Get("User-Agent") == "" {
				r.Header.Set("User-Agent", t.ua.random())
			}
			if t.AcceptLanguage != "" && r.Header.Get("Accept-Language") == "" {
				r.Header.Set("Accept-Language", t.AcceptLanguage)
			}
			if t.DisableKeepAlives {
				r.Close = true
			}

			resp, err := t.Base.RoundTrip(r)
			if err != nil {
				return nil, err
			}
			// 最后一次尝试：把响应原样交给调用方，由上层生成 HTTPStatusError。
			if retryableStatus(resp.StatusCode) && n < attempts {
				_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
				_ = resp.Body.Close()
				return nil, statusErr(resp.StatusCode)
			}
			return resp, nil
		},
		retry.Context(req.Context()),
		retry.Attempts(attempts),
		retry.Delay(backoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

// Options 描述一个抓取 client。
type Options struct {
	Proxy    string
	Timeout  time.Duration
	RetryMax int
	// Backoff 为 0 时使用默认值。
	Backoff time.Duration
	// Cookies=true 时挂载 cookie jar（按公共后缀隔离域）。
	Cookies        bool
	AcceptLanguage string
}

// NewClient 构造用于页面抓取的 HTTP client。
//
// 规则：
// - Proxy 非空：必须走代理，且禁用 keep-alive（每请求新连接）
// - 内置 UA 池：每个请求随机 UA
// - 有界重试 + 总超时
func NewClient(o Options) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}
	disableKeepAlives := false

	if p := strings.TrimSpace(o.Proxy); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("proxy 必须是绝对地址：%q", p)
		}
		base.Proxy = http.ProxyURL(u)
		// proxy 模式强制每请求新连接（代理池轮换依赖该行为）。
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	retryMax := o.RetryMax
	if retryMax < 0 {
		retryMax = 0
	}
	tr := &Transport{
		Base:              base,
		ua:                globalUA,
		RetryMax:          retryMax,
		Backoff:           o.Backoff,
		AcceptLanguage:    strings.TrimSpace(o.AcceptLanguage),
		DisableKeepAlives: disableKeepAlives,
	}

	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}
	if o.Cookies {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, err
		}
		c.Jar = jar
	}
	return c, nil
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = newUAPool()

func newUAPool() *uaPool {
	uas := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Mobile Safari/537.36",
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}
