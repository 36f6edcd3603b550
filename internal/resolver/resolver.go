// Package resolver 把嵌入播放器引用（iframe src / data-src）解析为可播放直链。
//
// 对核心流程而言 Resolver 是黑盒：embedRef -> 零或多个 StreamDescriptor（或失败）。
// 本包同时提供几种通用实现（直链、通用播放页、按域名路由），站点特有的解码器可以按需追加。
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/John-Robertt/anicat/internal/domain"
)

// Result 是一次解析的产物。Links 为空不是错误（调用方自行决定是否丢弃）。
type Result struct {
	Links     []domain.StreamDescriptor
	Subtitles []domain.SubtitleTrack
}

// Resolver 解析单个嵌入引用。
//
// 约束：
// - 必须尊重 ctx 的取消与超时
// - 失败只影响这一个 embed；不要 panic
// - 并发安全：编排器会同时调用多次
type Resolver interface {
	Resolve(ctx context.Context, embedRef, referer string) (Result, error)
}

// Func 把普通函数适配为 Resolver。
type Func func(ctx context.Context, embedRef, referer string) (Result, error)

func (f Func) Resolve(ctx context.Context, embedRef, referer string) (Result, error) {
	return f(ctx, embedRef, referer)
}

// ErrUnsupported 表示该 resolver 不处理此类引用；Router 会继续尝试下一个。
var ErrUnsupported = errors.New("resolver: unsupported embed")

// Error 带上 embed 与 resolver 名，便于日志定位。
type Error struct {
	Resolver string
	EmbedRef string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("resolver=%s embed=%s: %v", e.Resolver, e.EmbedRef, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
