package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/anicat/internal/domain"
	"github.com/John-Robertt/anicat/internal/extract"
)

const (
	StageFetch   = "fetch"
	StageParse   = "parse"
	StageResolve = "resolve"
)

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// BlockedError 表示拿到的是验证/拦截页（Cloudflare challenge 等）。
// 不尝试绕过：直接失败，提示用户换代理或稍后再试。
type BlockedError struct {
	URL    string
	Reason string // 例如 "cloudflare"
}

func (e *BlockedError) Error() string {
	if e == nil {
		return "blocked"
	}
	if strings.TrimSpace(e.Reason) == "" {
		return "blocked"
	}
	return "blocked: " + strings.TrimSpace(e.Reason)
}

// TransportError 包装网络层失败（DNS、连接、TLS、读 body、超时）。
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("请求失败 %s：%v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Error 是站点管线阶段的可追溯错误。
// 上层据此把失败归类为 fetch_failed / parse_failed，并写入 report。
type Error struct {
	Site  string
	Stage string // fetch / parse / resolve
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("site=%s stage=%s: %v", e.Site, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorCode 把错误映射为 report 中稳定的 error_code。
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var (
		blocked *BlockedError
		missing *extract.MissingFieldError
		pe      *Error
	)
	switch {
	case errors.Is(err, context.Canceled):
		return domain.ErrCodeCanceled
	case errors.As(err, &blocked):
		return domain.ErrCodeBlocked
	case errors.As(err, &missing):
		return domain.ErrCodeMissingTitle
	case errors.As(err, &pe) && pe.Stage == StageParse:
		return domain.ErrCodeParseFailed
	}
	return domain.ErrCodeFetchFailed
}
