package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/anicat/internal/domain"
)

func TestProgressUI_Lines(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressUI(&buf)

	p.OnStart("anime-yuzu", "อนิเมะทั้งหมด", 3)
	p.OnPageDone(1, domain.PageResult{Page: 1, Status: domain.PageStatusOK, Entries: 24}, time.Second)
	p.OnPageDone(2, domain.PageResult{Page: 2, Status: domain.PageStatusFailed, ErrorCode: domain.ErrCodeBlocked, ErrorMsg: "blocked: cloudflare"}, time.Second)
	p.OnPhaseDone("pages", map[string]any{"pages": 2, "entries": 24, "duplicates": 0}, 2*time.Second)
	rec := domain.TitleRecord{Title: "Naruto"}
	p.OnTitleDone(1, 2, domain.TitleResult{DetailRef: "https://x.test/a/", OK: true, Record: &rec}, time.Second)
	p.OnTitleDone(2, 2, domain.TitleResult{DetailRef: "https://x.test/b/", ErrorCode: domain.ErrCodeMissingTitle}, time.Second)
	p.OnPhaseDone("titles", map[string]any{"titles": 2}, time.Second)

	out := buf.String()
	for _, want := range []string{
		"site=anime-yuzu",
		"[page 1] OK entries=24",
		"[page 2] FAIL blocked",
		"目录: pages=2 entries=24",
		"[1/2] OK Naruto",
		"[2/2] FAIL https://x.test/b/ missing_title",
		"详情: titles=2 ok=1 fail=1",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("缺少输出 %q：\n%s", want, out)
		}
	}
	if p.tickerStarted {
		t.Fatalf("全部完成后 ticker 应已停止")
	}
}

func TestTruncate_RuneSafe(t *testing.T) {
	if got := truncate("อนิเมะทั้งหมด", 5); got != "อน..." {
		t.Fatalf("截断应按 rune：%q", got)
	}
	if got := truncate(" short ", 10); got != "short" {
		t.Fatalf("短字符串只去空白：%q", got)
	}
}
