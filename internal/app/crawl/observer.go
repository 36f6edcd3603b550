package crawl

import (
	"time"

	"github.com/John-Robertt/anicat/internal/domain"
)

// Observer 把抓取进度从核心流程中解耦出来。
//
// 约束：
// - crawl 包只发事件，不做任何输出（stdout 留给 JSON 报告）。
// - 实现必须并发安全：事件可能来自多个 worker goroutine。
type Observer interface {
	// OnStart 在开始时调用一次。
	OnStart(site, section string, maxPages int)
	// OnPhaseDone 在阶段结束时调用（"pages" / "titles"）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnPageDone 在每个目录页完成时调用；done 为已完成页数。
	OnPageDone(done int, res domain.PageResult, dur time.Duration)
	// OnTitleDone 在每个详情加载完成时调用。
	OnTitleDone(done, total int, res domain.TitleResult, dur time.Duration)
}

type nopObserver struct{}

func (nopObserver) OnStart(string, string, int) {}
func (nopObserver) OnPhaseDone(string, map[string]any, time.Duration) {}
func (nopObserver) OnPageDone(int, domain.PageResult, time.Duration) {}
func (nopObserver) OnTitleDone(int, int, domain.TitleResult, time.Duration) {}
