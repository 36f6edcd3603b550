// Package cache 是抓取页面的快照存储（--save-pages 写入，--offline 回放）。
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/John-Robertt/anicat/internal/infra/fsx"
)

// Store 提供 <root>/pages/<host>/<hash>.html 的读写。
//
// 约束：
// - 回放（offline）：只允许读（ReadOnly=true）
// - 保存（save-pages）：允许写
type Store struct {
	Root     string
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

// PagePath 返回页面快照的路径。同一 URL（忽略 fragment）始终映射到同一文件。
func (s Store) PagePath(pageURL string) (string, error) {
	host, key, err := pageKey(pageURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, "pages", host, key+".html"), nil
}

func (s Store) ReadPage(pageURL string) ([]byte, bool, error) {
	path, err := s.PagePath(pageURL)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s Store) WritePage(pageURL string, html []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	path, err := s.PagePath(pageURL)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(filepath.Dir(path), filepath.Base(path), html)
}

var hostRE = regexp.MustCompile(`^[a-z0-9.-]+$`)

func pageKey(pageURL string) (host, key string, err error) {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return "", "", err
	}
	host = strings.ToLower(u.Hostname())
	// 只接受普通主机名，避免路径穿越。
	if host == "" || !hostRE.MatchString(host) || strings.Contains(host, "..") {
		return "", "", fmt.Errorf("非法页面地址：%q", pageURL)
	}
	u.Fragment, u.RawFragment = "", ""
	u.Host = strings.ToLower(u.Host)
	sum := sha256.Sum256([]byte(u.String()))
	return host, hex.EncodeToString(sum[:12]), nil
}
