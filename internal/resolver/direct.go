package resolver

import (
	"context"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/John-Robertt/anicat/internal/domain"
)

var qualityRE = regexp.MustCompile(`(?i)(?:^|[^0-9])(2160|1440|1080|720|480|360|240)p?(?:[^0-9]|$)`)

// kindOf 依据路径扩展名判断直链类型；非媒体地址返回 ok=false。
func kindOf(raw string) (domain.StreamKind, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".m3u8":
		return domain.StreamHLS, true
	case ".mpd":
		return domain.StreamDASH, true
	case ".mp4", ".webm", ".mkv":
		return domain.StreamFile, true
	}
	return "", false
}

// guessQuality 从 URL 中提取常见分辨率；未知为 0。
func guessQuality(raw string) int {
	m := qualityRE.FindStringSubmatch(raw)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// Describe 把一个媒体地址包装成 StreamDescriptor；不是媒体地址时 ok=false。
func Describe(source, raw, referer string) (domain.StreamDescriptor, bool) {
	k, ok := kindOf(raw)
	if !ok {
		return domain.StreamDescriptor{}, false
	}
	return domain.StreamDescriptor{
		Source:  source,
		URL:     raw,
		Referer: referer,
		Quality: guessQuality(raw),
		Kind:    k,
	}, true
}

// Direct 处理“embed 本身就是直链”的情况；否则返回 ErrUnsupported。
type Direct struct{}

func (Direct) Resolve(ctx context.Context, embedRef, referer string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	d, ok := Describe("direct", embedRef, referer)
	if !ok {
		return Result{}, ErrUnsupported
	}
	return Result{Links: []domain.StreamDescriptor{d}}, nil
}
