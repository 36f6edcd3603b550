package provider

import (
	"fmt"
	"sort"
	"strings"
)

// Registry 是站点的只读注册表（按 name 索引）。
// 站点数量极小，map 足够。
type Registry struct {
	byName map[string]*Site
}

func NewRegistry(sites ...*Site) (Registry, error) {
	byName := make(map[string]*Site, len(sites))
	for _, s := range sites {
		if s == nil {
			return Registry{}, fmt.Errorf("site 不能为空")
		}
		name := strings.ToLower(strings.TrimSpace(s.Name()))
		if name == "" {
			return Registry{}, fmt.Errorf("site.Name 不能为空")
		}
		if _, ok := byName[name]; ok {
			return Registry{}, fmt.Errorf("重复的 site：%q", name)
		}
		byName[name] = s
	}
	return Registry{byName: byName}, nil
}

func (r Registry) Get(name string) (*Site, bool) {
	if r.byName == nil {
		return nil, false
	}
	name = strings.ToLower(strings.TrimSpace(name))
	s, ok := r.byName[name]
	return s, ok
}

func (r Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
