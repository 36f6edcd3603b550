package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewClient_ProxyDisablesKeepAlive(t *testing.T) {
	c, err := NewClient(Options{Proxy: "http://127.0.0.1:8080"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr, ok := c.Transport.(*Transport)
	if !ok {
		t.Fatalf("期望 *Transport，实际 %T", c.Transport)
	}
	if tr.Base.Proxy == nil {
		t.Fatalf("期望启用代理，但 Proxy=nil")
	}
	if !tr.Base.DisableKeepAlives || !tr.DisableKeepAlives {
		t.Fatalf("代理模式应禁用 keep-alive")
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr := c.Transport.(*Transport)
	if tr.Base.Proxy != nil || tr.Base.DisableKeepAlives {
		t.Fatalf("无代理时应保持默认连接策略")
	}
	if c.Timeout != DefaultTimeout {
		t.Fatalf("默认超时应为 %v，实际 %v", DefaultTimeout, c.Timeout)
	}
	if c.Jar != nil {
		t.Fatalf("未开启 Cookies 时不应挂载 jar")
	}
}

func TestNewClient_InvalidProxyURL(t *testing.T) {
	for _, p := range []string{"http://[::1", "127.0.0.1:8080"} {
		if _, err := NewClient(Options{Proxy: p}); err == nil {
			t.Fatalf("期望错误（proxy=%q），但得到 nil", p)
		}
	}
}

func TestTransport_RetriesTransientStatus(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("请求应带 UA")
		}
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, err := NewClient(Options{RetryMax: 2, Backoff: time.Millisecond})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("重试后应成功：%v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("期望第 3 次成功：status=%d hits=%d", resp.StatusCode, hits)
	}
}

func TestTransport_LastAttemptReturnsResponse(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := NewClient(Options{RetryMax: 1, Backoff: time.Millisecond})
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("最后一次尝试应返回响应而不是错误：%v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway || atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("status=%d hits=%d", resp.StatusCode, hits)
	}
}

func TestTransport_NotFoundIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c, _ := NewClient(Options{RetryMax: 3, Backoff: time.Millisecond})
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp.Body.Close()
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("404 不应重试：hits=%d", hits)
	}
}

func TestTransport_CanceledContextStopsRetry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := NewClient(Options{RetryMax: 5, Backoff: 200 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	if _, err := c.Do(req); err == nil {
		t.Fatalf("ctx 超时后应返回错误")
	}
	if n := atomic.LoadInt32(&hits); n > 2 {
		t.Fatalf("ctx 结束后不应继续重试：hits=%d", n)
	}
}

func TestNewClient_CookieJarKeepsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/set" {
			http.SetCookie(w, &http.Cookie{Name: "cf", Value: "1", Path: "/"})
			return
		}
		if _, err := r.Cookie("cf"); err != nil {
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	c, err := NewClient(Options{Cookies: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	for _, p := range []string{"/set", "/check"} {
		resp, err := c.Get(srv.URL + p)
		if err != nil {
			t.Fatalf("请求失败：%v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s 期望 200，实际 %d", p, resp.StatusCode)
		}
	}
}
