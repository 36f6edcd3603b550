package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/anicat/internal/config"
	"github.com/John-Robertt/anicat/internal/infra/cache"
	"github.com/John-Robertt/anicat/internal/infra/httpx"
	"github.com/John-Robertt/anicat/internal/infra/logx"
	"github.com/John-Robertt/anicat/internal/profile"
	"github.com/John-Robertt/anicat/internal/provider"
	"github.com/John-Robertt/anicat/internal/resolver"
)

// env 是一次命令调用的运行环境。配置、日志与站点按需惰性构造。
type env struct {
	ctx    context.Context
	cwd    string
	stdout io.Writer
	stderr io.Writer
	args   cliArgs
	name   string

	eff     config.EffectiveConfig
	log     zerolog.Logger
	closeFn func() error
	catalog profile.Catalog
}

// errorOutput 是失败时写到 stdout 的 JSON，保证下游始终能解析 stdout。
type errorOutput struct {
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// setup 加载配置、日志与 profile 目录。失败时已输出错误，返回 false。
func (e *env) setup() bool {
	eff, err := config.LoadEffective(e.cwd, e.args.Config)
	if err != nil {
		e.fail(config.Code(err), err)
		return false
	}
	e.eff = eff

	l, closeFn, err := logx.New(logx.Options{
		Level:   eff.LogLevel,
		File:    eff.LogFile,
		Console: e.stderr,
		NoColor: !isTTY(e.stderr),
	})
	if err != nil {
		e.fail(config.ErrCodeInvalid, fmt.Errorf("打开日志文件失败：%w", err))
		return false
	}
	e.closeFn = closeFn
	e.log = logx.WithRequest(l, e.name)
	e.log.Debug().
		Str("config", eff.ConfigPath).
		Str("site", eff.Site).
		Int("concurrency", eff.Concurrency).
		Bool("proxy", eff.ProxyURL != "").
		Str("snapshot_dir", eff.SnapshotDir).
		Bool("offline", eff.Offline).
		Msg("配置已加载")

	cat, err := config.LoadProfiles(eff)
	if err != nil {
		e.fail(config.Code(err), err)
		return false
	}
	e.catalog = cat
	return true
}

// site 按生效配置组装站点管线：
// httpx client -> HTTPFetcher -> (可选) SnapshotFetcher -> provider.Site。
func (e *env) site() (*provider.Site, bool) {
	sel, err := config.SelectProfile(e.catalog, e.eff)
	if err != nil {
		e.fail(config.Code(err), err)
		return nil, false
	}

	client, err := httpx.NewClient(httpx.Options{
		Proxy:          e.eff.ProxyURL,
		Timeout:        e.eff.FetchTimeout,
		RetryMax:       e.eff.RetryMax,
		Cookies:        true,
		AcceptLanguage: sel.Lang,
	})
	if err != nil {
		e.fail(config.ErrCodeInvalid, fmt.Errorf("proxy.url 无效：%w", err))
		return nil, false
	}

	var fetcher provider.Fetcher = provider.HTTPFetcher{Client: client, Referer: sel.BaseURL + "/"}
	if e.eff.SnapshotDir != "" {
		fetcher = provider.SnapshotFetcher{
			Next:    provider.HTTPFetcher{Client: client, Referer: sel.BaseURL + "/"},
			Store:   cache.New(e.eff.SnapshotDir, e.eff.Offline),
			Offline: e.eff.Offline,
			Log:     &e.log,
		}
	}
	opts := provider.Options{
		Concurrency:    e.eff.Concurrency,
		ResolveTimeout: e.eff.ResolveTimeout,
		Log:            &e.log,
	}

	// 所有 profile 共用同一条抓取管线；只有选中的站点带 base_url 覆盖。
	sites := make([]*provider.Site, 0, len(e.catalog.Names()))
	for _, name := range e.catalog.Names() {
		p, _ := e.catalog.Get(name)
		if p.Name == sel.Name {
			p = sel
		}
		sites = append(sites, provider.New(p, fetcher, resolver.Default(client), opts))
	}
	reg, err := provider.NewRegistry(sites...)
	if err != nil {
		e.fail(config.ErrCodeProfileInvalid, err)
		return nil, false
	}
	s, _ := reg.Get(sel.Name)
	return s, true
}

func (e *env) emit(v any) bool {
	enc := json.NewEncoder(e.stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(e.stderr, "写出 JSON 失败：%v\n", err)
		return false
	}
	return true
}

// fail 输出错误：stdout 一个 errorOutput JSON，stderr 一行人类可读信息。
func (e *env) fail(code string, err error) {
	if code == "" {
		code = provider.ErrorCode(err)
	}
	e.emit(errorOutput{ErrorCode: code, ErrorMsg: err.Error()})
	fmt.Fprintf(e.stderr, "%s: %v\n", code, err)
}

func (e *env) close() {
	if e.closeFn != nil {
		_ = e.closeFn()
	}
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
