package profile

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

// File 是 profiles YAML 文件的顶层结构。
type File struct {
	Profiles []Profile `yaml:"profiles"`
}

// Catalog 是校验后的只读 profile 集合（按 name 索引）。
type Catalog struct {
	byName map[string]Profile
}

// LoadFile 读取并解析 YAML profile 文件（未知字段报错，防止拼写错误被静默忽略）。
func LoadFile(path string) ([]Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse 解析 YAML 内容。
func Parse(b []byte) ([]Profile, error) {
	var f File
	if err := yaml.UnmarshalWithOptions(b, &f, yaml.DisallowUnknownField()); err != nil {
		return nil, err
	}
	if len(f.Profiles) == 0 {
		return nil, fmt.Errorf("profiles 为空")
	}
	return f.Profiles, nil
}

// NewCatalog 合并内置与外部 profile 并逐个校验。
// 同名时外部覆盖内置；同一批内部重名视为错误。
func NewCatalog(builtin, extra []Profile) (Catalog, error) {
	byName := make(map[string]Profile, len(builtin)+len(extra))
	for _, group := range [][]Profile{builtin, extra} {
		seen := make(map[string]struct{}, len(group))
		for _, p := range group {
			n, err := Normalize(p)
			if err != nil {
				return Catalog{}, err
			}
			if _, dup := seen[n.Name]; dup {
				return Catalog{}, fmt.Errorf("重复的 profile：%q", n.Name)
			}
			seen[n.Name] = struct{}{}
			byName[n.Name] = n
		}
	}
	return Catalog{byName: byName}, nil
}

func (c Catalog) Get(name string) (Profile, bool) {
	if c.byName == nil {
		return Profile{}, false
	}
	p, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Names 返回排序后的 profile 名称（用于帮助信息与错误提示）。
func (c Catalog) Names() []string {
	out := make([]string, 0, len(c.byName))
	for n := range c.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
