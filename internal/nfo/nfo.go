// Package nfo 把 TitleRecord 导出为 Kodi/Jellyfin/Emby 可读取的 NFO（XML）。
package nfo

import (
	"encoding/xml"
	"errors"
	"os"
	"strings"

	"github.com/John-Robertt/anicat/internal/domain"
	"github.com/John-Robertt/anicat/internal/infra/fsx"
)

type thumb struct {
	Aspect string `xml:"aspect,attr,omitempty"`
	URL    string `xml:",chardata"`
}

// show 同时用于 <tvshow> 与 <movie>；根元素名由 XMLName 决定。
type show struct {
	XMLName xml.Name

	Title     string `xml:"title"`
	SortTitle string `xml:"sorttitle,omitempty"`
	Plot      string `xml:"plot,omitempty"`
	Year      int    `xml:"year,omitempty"`
	Status    string `xml:"status,omitempty"`

	Thumb *thumb `xml:"thumb,omitempty"`

	Genres []string `xml:"genre,omitempty"`
	Tags   []string `xml:"tag,omitempty"`

	Episodes int    `xml:"episode,omitempty"`
	Website  string `xml:"website,omitempty"`
}

// FileName 返回该记录对应的 NFO 文件名：剧集为 tvshow.nfo，电影为 movie.nfo。
func FileName(rec domain.TitleRecord) string {
	if rec.Kind == domain.KindMovie {
		return "movie.nfo"
	}
	return "tvshow.nfo"
}

// Encode 把 TitleRecord 转成 NFO。
//
// 规则：
// - 字段缺失允许为空；列表去空白、去重、保持输入顺序
// - variant（subbed/dubbed）写成 tag，方便在媒体库中筛选
func Encode(rec domain.TitleRecord) ([]byte, error) {
	root := "tvshow"
	status := ""
	if rec.Kind == domain.KindMovie {
		root = "movie"
	} else {
		switch rec.Status {
		case domain.StatusOngoing:
			status = "Continuing"
		case domain.StatusCompleted:
			status = "Ended"
		}
	}

	s := show{
		XMLName:   xml.Name{Local: root},
		Title:     strings.TrimSpace(rec.Title),
		SortTitle: strings.TrimSpace(rec.Title),
		Plot:      strings.TrimSpace(rec.Synopsis),
		Year:      rec.Year,
		Status:    status,
		Genres:    normList(rec.Tags),
		Website:   strings.TrimSpace(rec.DetailRef),
	}
	if v := rec.Variant; v != domain.VariantUnknown {
		s.Tags = []string{v.String()}
	}
	if p := strings.TrimSpace(rec.PosterRef); p != "" {
		s.Thumb = &thumb{Aspect: "poster", URL: p}
	}
	if root == "tvshow" {
		s.Episodes = len(rec.Episodes)
	}

	b, err := xml.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	const header = `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>` + "\n"
	return append([]byte(header), b...), nil
}

// Write 把 NFO 原子写入 dir，返回文件名。force=false 时已有文件返回 os.ErrExist。
func Write(dir string, rec domain.TitleRecord, force bool) (string, error) {
	b, err := Encode(rec)
	if err != nil {
		return "", err
	}
	name := FileName(rec)
	if force {
		err = fsx.WriteFileAtomic(dir, name, b)
	} else {
		err = fsx.WriteFileAtomicNoOverwrite(dir, name, b)
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// PosterFileName 是与 NFO 同目录的海报文件名。
const PosterFileName = "poster.jpg"

// WritePoster 把已规范化的 JPEG 写为 dir/poster.jpg；覆盖规则与 Write 相同。
func WritePoster(dir string, jpeg []byte, force bool) error {
	if force {
		return fsx.WriteFileAtomic(dir, PosterFileName, jpeg)
	}
	return fsx.WriteFileAtomicNoOverwrite(dir, PosterFileName, jpeg)
}

// IsExist 判断 Write 是否因为目标已存在而失败。
func IsExist(err error) bool { return errors.Is(err, os.ErrExist) }

func normList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	m := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := m[s]; ok {
			continue
		}
		m[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
