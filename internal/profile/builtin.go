package profile

import (
	"github.com/John-Robertt/anicat/internal/domain"
	"github.com/John-Robertt/anicat/internal/extract"
)

// AnimeYuzu 是 www.anime-yuzu.com（泰语字幕/配音站，DooPlay 系模板）的内置 profile。
func AnimeYuzu() Profile {
	return Profile{
		Name:    "anime-yuzu",
		Title:   "Anime Yuzu",
		BaseURL: "https://www.anime-yuzu.com",
		Lang:    "th",

		SearchPath:  DefaultSearchPath,
		SearchEntry: "article.item.tvshows, article.item.movies",

		Listing: extract.ListingSelectors{
			Entry:       "article.item",
			Title:       ".movie-title",
			Link:        "a",
			Poster:      ".poster img",
			PosterAttrs: []string{"src", "data-lazy-src"},
			TypeTag:     ".features-type",
			KindAttr:    "class",
		},
		Sections: []Section{
			{Name: "อัพเดทล่าสุด", Path: "/", Entry: "article.item.tvshows, article.item.movies"},
			{Name: "อนิเมะทั้งหมด", Path: "/catalog", PagedPath: "/catalog/page/{page}", Entry: "article.item"},
		},
		Detail: extract.DetailSelectors{
			Title:         "h1.entry-title, h1",
			Poster:        "div.poster img, div.thumbnail img",
			Synopsis:      "div.entry-content p, .description p",
			Year:          "span.year",
			Tags:          "div.genre-info a, span.genre a",
			Episode:       "ul.episodelist li, div.eplist ul li",
			EpisodeLink:   "a",
			NumberPattern: `ตอนที่ (\d+)`,
			// 页面按第 1 集在前排列。
			SourceOrder:   domain.OldestFirst,
			MovieURLHints: []string{"movie"},
		},
		Servers: extract.ServerSelectors{
			Server:   "div.player iframe, div.servers div.server-item",
			Attrs:    []string{"src", "data-src"},
			Subtitle: "track[src]",
		},
		DefaultVariant: domain.VariantSubbed,
	}
}

// Builtin 返回所有内置 profile（未校验；由 Catalog 统一 Normalize）。
func Builtin() []Profile {
	return []Profile{AnimeYuzu()}
}
