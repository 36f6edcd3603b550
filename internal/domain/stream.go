package domain

// StreamKind 描述直链的封装格式（播放器据此选择 demuxer）。
type StreamKind string

const (
	StreamHLS  StreamKind = "hls"
	StreamDASH StreamKind = "dash"
	StreamFile StreamKind = "file"
)

// StreamDescriptor 是 resolver 返回的一条可播放直链。
type StreamDescriptor struct {
	Source  string            `json:"source"` // resolver/服务名
	URL     string            `json:"url"`
	Referer string            `json:"referer,omitempty"`
	Quality int               `json:"quality,omitempty"` // 纵向分辨率（720/1080），0 表示未知
	Kind    StreamKind        `json:"kind"`
	Headers map[string]string `json:"headers,omitempty"`
}

// StreamSource 对应页面上的一个嵌入播放器引用及其解析结果。
type StreamSource struct {
	EmbedRef      string             `json:"embed_ref"`
	ResolvedLinks []StreamDescriptor `json:"resolved_links"`
}

type SubtitleTrack struct {
	Language string `json:"language"`
	Ref      string `json:"ref"`
}

// Playback 是一次 Links 调用的完整产物。
// 空 Sources 是合法结果（页面没有可发现的播放器），不是错误。
type Playback struct {
	Sources   []StreamSource  `json:"sources"`
	Subtitles []SubtitleTrack `json:"subtitles"`
}

// Empty 判断是否没有任何可播放源。
func (p Playback) Empty() bool { return len(p.Sources) == 0 }
