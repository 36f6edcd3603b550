package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/anicat/internal/app/crawl"
	"github.com/John-Robertt/anicat/internal/domain"
)

var _ crawl.Observer = (*progressUI)(nil)

// progressUI 是 crawl 的交互终端进度输出。
//
// 所有过程信息写到 stderr，不污染 stdout 的 JSON 报告。
// 详情阶段长时间无条目完成时，ticker 会定期补一行 keepalive。
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	total int
	done  int
	ok    int
	fail  int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(site, section string, maxPages int) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}
	fmt.Fprintf(p.w, "[%s] anicat crawl site=%s section=%q max_pages=%d\n", now.Format("15:04:05"), site, section, maxPages)
	p.lastPrinted = now
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "pages":
		fmt.Fprintf(p.w, "目录: pages=%d entries=%d duplicates=%d (%s)\n",
			intField(fields, "pages"), intField(fields, "entries"), intField(fields, "duplicates"), formatShortDuration(dur),
		)
	case "titles":
		fmt.Fprintf(p.w, "详情: titles=%d ok=%d fail=%d (%s)\n",
			intField(fields, "titles"), p.ok, p.fail, formatShortDuration(dur),
		)
		p.stopTickerLocked()
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnPageDone(done int, res domain.PageResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch res.Status {
	case domain.PageStatusFailed:
		fmt.Fprintf(p.w, "[page %d] FAIL %s: %s (%s)\n", res.Page, res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur))
	case domain.PageStatusEmpty:
		fmt.Fprintf(p.w, "[page %d] EMPTY (%s)\n", res.Page, formatShortDuration(dur))
	default:
		fmt.Fprintf(p.w, "[page %d] OK entries=%d (%s)\n", res.Page, res.Entries, formatShortDuration(dur))
	}
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnTitleDone(done, total int, res domain.TitleResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = done
	p.total = total
	if !p.tickerStarted && done < total {
		p.startTickerLocked()
	}

	if res.OK {
		p.ok++
		title := ""
		if res.Record != nil {
			title = res.Record.Title
		}
		fmt.Fprintf(p.w, "[%d/%d] OK %s (%s)\n", done, total, truncate(title, 80), formatShortDuration(dur))
	} else {
		p.fail++
		fmt.Fprintf(p.w, "[%d/%d] FAIL %s %s: %s (%s)\n",
			done, total, truncate(res.DetailRef, 100), res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	}
	p.lastPrinted = time.Now()

	if done >= total {
		p.stopTickerLocked()
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}
	stopCh := p.stopCh

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && time.Since(p.lastPrinted) > threshold {
					fmt.Fprintf(p.w, "进度: done=%d/%d ok=%d fail=%d elapsed=%s\n",
						p.done, p.total, p.ok, p.fail, formatElapsed(time.Since(p.startedAt)),
					)
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stopCh:
				return
			}
		}
	}()
}

func (p *progressUI) stopTickerLocked() {
	if !p.tickerStarted {
		return
	}
	close(p.stopCh)
	p.tickerStarted = false
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}
