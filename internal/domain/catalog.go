package domain

// CatalogEntry 是列表页（首页分区/目录页/搜索结果）中的一条作品。
//
// 约束：Title 与 DetailRef 必须同时存在；缺任一字段的节点直接丢弃，不构造“半条”记录。
type CatalogEntry struct {
	Title     string    `json:"title"`
	DetailRef string    `json:"detail_ref"` // 绝对 URL
	PosterRef string    `json:"poster_ref,omitempty"`
	Kind      MediaKind `json:"kind"`
	Variant   Variant   `json:"variant"`
}

// TitleRecord 是详情页解析结果。
//
// 约束：
// - 字段缺失允许为空（""/0/空切片），但 Title 必须存在
// - Episodes 永远是 newest-first
// - 构造后只读；调用方独占
type TitleRecord struct {
	Title     string `json:"title"`
	DetailRef string `json:"detail_ref"`
	PosterRef string `json:"poster_ref,omitempty"`
	Synopsis  string `json:"synopsis,omitempty"`
	Year      int    `json:"year,omitempty"` // 0 表示缺失

	Tags []string `json:"tags"`

	Kind    MediaKind `json:"kind"`
	Status  Status    `json:"status"`
	Variant Variant   `json:"variant"`

	Episodes EpisodeList `json:"episodes"`
}

// Episode 是单集。Number 恒 >= 1（正则未命中时回退为源顺序中的 1-based 位置）。
type Episode struct {
	Ref         string `json:"ref"`
	DisplayName string `json:"display_name"`
	Number      int    `json:"number"`
}

// EpisodeList 的规范顺序是 newest-first。
type EpisodeList []Episode

// Latest 返回最新一集；列表为空时 ok=false。
func (l EpisodeList) Latest() (Episode, bool) {
	if len(l) == 0 {
		return Episode{}, false
	}
	return l[0], true
}

// ByNumber 按集数查找（同号多集时返回列表中的第一条，即较新的那条）。
func (l EpisodeList) ByNumber(n int) (Episode, bool) {
	for _, ep := range l {
		if ep.Number == n {
			return ep, true
		}
	}
	return Episode{}, false
}

// HomeRow 是首页的一行（例如“最新更新”“全部动画”）。
type HomeRow struct {
	Name    string         `json:"name"`
	Entries []CatalogEntry `json:"entries"`
	HasNext bool           `json:"has_next"`
}
