package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// ErrCodeNotFound 表示 --config 指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeProfileInvalid 表示 profiles 文件无法加载或某个 profile 校验失败。
	ErrCodeProfileInvalid = "profile_invalid"
	// ErrCodeSiteUnknown 表示选择的站点没有对应 profile。
	ErrCodeSiteUnknown = "site_unknown"
)

const (
	FileName = "anicat.json"

	DefaultSite           = "anime-yuzu"
	DefaultConcurrency    = 4
	DefaultFetchTimeout   = 20 * time.Second
	DefaultResolveTimeout = 15 * time.Second
	DefaultRetryMax       = 2
	DefaultLogLevel       = "info"

	maxConcurrency = 32
)

// CLIArgs 是 CLI 暴露的覆盖项，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --concurrency 必须能覆盖配置文件中的值。
type CLIArgs struct {
	ConfigPath string

	Site    string
	SiteSet bool

	Concurrency    int
	ConcurrencySet bool

	Proxy    string
	ProxySet bool

	ProfilesFile    string
	ProfilesFileSet bool

	SnapshotDir    string
	SnapshotDirSet bool
	Offline        bool

	LogLevel    string
	LogLevelSet bool
	LogFile     string
	LogFileSet  bool
}

// FileConfig 对应 anicat.json。
type FileConfig struct {
	Site string `json:"site"`
	// BaseURL 覆盖所选 profile 的 base_url（站点换域名时使用）。
	BaseURL        string       `json:"base_url"`
	Concurrency    int          `json:"concurrency"`
	Proxy          *ProxyConfig `json:"proxy"`
	FetchTimeout   string       `json:"fetch_timeout"`
	ResolveTimeout string       `json:"resolve_timeout"`
	RetryMax       *int         `json:"retry_max"`
	ProfilesFile   string       `json:"profiles_file"`
	SnapshotDir    string       `json:"snapshot_dir"`
	Log            *LogConfig   `json:"log"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

type LogConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

// EffectiveConfig 是合并并规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// ConfigPath 为实际读取的配置文件；未读取任何文件时为空。
	ConfigPath string

	Site    string
	BaseURL string

	Concurrency    int
	ProxyURL       string
	FetchTimeout   time.Duration
	ResolveTimeout time.Duration
	RetryMax       int

	ProfilesFile string
	SnapshotDir  string
	Offline      bool

	LogLevel zerolog.Level
	LogFile  string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则：
// 1) CLI 提供 --config：该文件必须存在
// 2) 否则尝试 <cwd>/anicat.json（可选）
//
// 覆盖优先级：CLI > 配置文件 > 默认值。
// 配置文件中的相对路径以配置文件所在目录为基准；CLI 中的相对路径以 cwd 为基准。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
		exists  bool
	)
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		cfgPath = filepath.Join(cwdAbs, FileName)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	}

	cfgDir := cwdAbs
	if exists {
		cfgDir = filepath.Dir(cfgPath)
	} else {
		cfgPath = ""
	}
	return merge(cwdAbs, cfgDir, cli, fc, cfgPath)
}

func merge(cwd, cfgDir string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	eff := EffectiveConfig{ConfigPath: cfgPath, Offline: cli.Offline}

	// site：CLI > config > 默认
	eff.Site = DefaultSite
	if cli.SiteSet {
		eff.Site = cli.Site
	} else if strings.TrimSpace(fc.Site) != "" {
		eff.Site = fc.Site
	}
	eff.Site = strings.ToLower(strings.TrimSpace(eff.Site))
	if eff.Site == "" {
		return invalid(errors.New("site 不能为空"))
	}

	if b := strings.TrimSpace(fc.BaseURL); b != "" {
		u, err := url.Parse(b)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return invalid(fmt.Errorf("base_url 必须是 http/https 绝对地址：%q", b))
		}
		eff.BaseURL = strings.TrimRight(b, "/")
	}

	concurrency := fc.Concurrency
	if cli.ConcurrencySet {
		concurrency = cli.Concurrency
	}
	eff.Concurrency = clampConcurrency(concurrency)

	proxy := ""
	if fc.Proxy != nil {
		proxy = strings.TrimSpace(fc.Proxy.URL)
	}
	if cli.ProxySet {
		proxy = strings.TrimSpace(cli.Proxy)
	}
	if proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid(fmt.Errorf("proxy.url 无效：%q", proxy))
		}
	}
	eff.ProxyURL = proxy

	var err error
	if eff.FetchTimeout, err = parseTimeout("fetch_timeout", fc.FetchTimeout, DefaultFetchTimeout); err != nil {
		return invalid(err)
	}
	if eff.ResolveTimeout, err = parseTimeout("resolve_timeout", fc.ResolveTimeout, DefaultResolveTimeout); err != nil {
		return invalid(err)
	}

	eff.RetryMax = DefaultRetryMax
	if fc.RetryMax != nil {
		if *fc.RetryMax < 0 || *fc.RetryMax > 10 {
			return invalid(fmt.Errorf("retry_max 必须在 [0, 10]：%d", *fc.RetryMax))
		}
		eff.RetryMax = *fc.RetryMax
	}

	eff.ProfilesFile = pickPath(cwd, cfgDir, cli.ProfilesFileSet, cli.ProfilesFile, fc.ProfilesFile)
	eff.SnapshotDir = pickPath(cwd, cfgDir, cli.SnapshotDirSet, cli.SnapshotDir, fc.SnapshotDir)
	if eff.Offline && eff.SnapshotDir == "" {
		return invalid(errors.New("--offline 需要 snapshot_dir（或 --save-pages DIR）"))
	}

	var fileLog LogConfig
	if fc.Log != nil {
		fileLog = *fc.Log
	}
	levelS := fileLog.Level
	if cli.LogLevelSet {
		levelS = cli.LogLevel
	}
	if strings.TrimSpace(levelS) == "" {
		levelS = DefaultLogLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(levelS)))
	if err != nil {
		return invalid(fmt.Errorf("log.level 无效：%q", levelS))
	}
	eff.LogLevel = lvl
	eff.LogFile = pickPath(cwd, cfgDir, cli.LogFileSet, cli.LogFile, fileLog.File)

	return eff, nil
}

// clampConcurrency：0 表示默认；范围 [1, 32]，超出截断。
func clampConcurrency(n int) int {
	if n == 0 {
		return DefaultConcurrency
	}
	if n < 1 {
		return 1
	}
	if n > maxConcurrency {
		return maxConcurrency
	}
	return n
}

func parseTimeout(field, s string, def time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s 必须是正的时长（例如 \"20s\"）：%q", field, s)
	}
	return d, nil
}

func pickPath(cwd, cfgDir string, cliSet bool, cliVal, fileVal string) string {
	if cliSet {
		return absCleanFrom(cwd, cliVal)
	}
	return absCleanFrom(cfgDir, fileVal)
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute；空串保持为空。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
