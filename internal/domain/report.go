package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	PageStatusOK     = "ok"
	PageStatusEmpty  = "empty"
	PageStatusFailed = "failed"
)

const (
	ErrCodeFetchFailed   = "fetch_failed"
	ErrCodeBlocked       = "blocked"
	ErrCodeParseFailed   = "parse_failed"
	ErrCodeMissingTitle  = "missing_title"
	ErrCodeCanceled      = "canceled"
	ErrCodeConfigInvalid = "config_invalid"
)

// CrawlReport 是 crawl 的对外稳定输出（stdout JSON / report 文件）。
type CrawlReport struct {
	Site    string `json:"site"`
	BaseURL string `json:"base_url"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary CrawlSummary   `json:"summary"`
	Pages   []PageResult   `json:"pages"`
	Entries []CatalogEntry `json:"entries"`
	Titles  []TitleResult  `json:"titles,omitempty"`
}

type CrawlSummary struct {
	PagesOK     int `json:"pages_ok"`
	PagesEmpty  int `json:"pages_empty"`
	PagesFailed int `json:"pages_failed"`

	Entries    int `json:"entries"`
	Duplicates int `json:"duplicates"`

	TitlesOK     int `json:"titles_ok"`
	TitlesFailed int `json:"titles_failed"`
}

// PageResult 记录一个目录页的抓取/解析结果。
// “抓取成功但 0 条”（empty）与“抓取失败”（failed）必须可区分。
type PageResult struct {
	Page    int    `json:"page"`
	URL     string `json:"url"`
	Status  string `json:"status"`
	Entries int    `json:"entries"`

	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`
}

// TitleResult 记录一次详情加载（仅在 crawl --details 时出现）。
type TitleResult struct {
	DetailRef string `json:"detail_ref"`
	OK        bool   `json:"ok"`

	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`

	Record *TitleRecord `json:"record,omitempty"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) pages 按页码稳定排序；titles 按 detail_ref 排序
// 3) summary 由 pages/titles 计算得出（entries/duplicates 由 crawl 直接写入）
func (r *CrawlReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Pages, func(i, j int) bool { return r.Pages[i].Page < r.Pages[j].Page })
	sort.SliceStable(r.Titles, func(i, j int) bool { return r.Titles[i].DetailRef < r.Titles[j].DetailRef })

	s := CrawlSummary{
		Entries:    len(r.Entries),
		Duplicates: r.Summary.Duplicates,
	}
	for _, p := range r.Pages {
		switch p.Status {
		case PageStatusOK:
			s.PagesOK++
		case PageStatusEmpty:
			s.PagesEmpty++
		case PageStatusFailed:
			s.PagesFailed++
		}
	}
	for _, t := range r.Titles {
		if t.OK {
			s.TitlesOK++
		} else {
			s.TitlesFailed++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// nil 切片统一输出为 []，方便下游脚本处理。
func (r CrawlReport) MarshalJSON() ([]byte, error) {
	type Alias CrawlReport
	a := Alias(r)
	if a.Pages == nil {
		a.Pages = []PageResult{}
	}
	if a.Entries == nil {
		a.Entries = []CatalogEntry{}
	}
	return json.Marshal(a)
}
