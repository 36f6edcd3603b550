package extract

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ResolveRef 把页面上的相对引用补全为绝对 URL；无法解析时原样返回。
func ResolveRef(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	// javascript:/data:/# 之类的伪链接不是可用引用。
	if strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	// 协议相对引用沿用页面的 scheme；页面地址本身缺 scheme 时才退回 https。
	if strings.HasPrefix(href, "//") && bu.Scheme == "" {
		return "https:" + href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

// textOf 读取第一个匹配节点的规范化文本；sel 为空或无匹配时 ok=false。
func textOf(scope *goquery.Selection, sel string) (string, bool) {
	if sel == "" {
		return "", false
	}
	n := scope.Find(sel).First()
	if n.Length() == 0 {
		return "", false
	}
	return normSpace(n.Text()), true
}

// attrChain 按声明顺序读取属性，返回首个非空值（主属性 -> 回退属性 -> 缺失）。
func attrChain(n *goquery.Selection, attrs []string) string {
	for _, a := range attrs {
		if v, ok := n.Attr(a); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// selfOrFind：候选节点本身匹配时取自身，否则取后代中的第一个匹配。
func selfOrFind(scope *goquery.Selection, sel string) *goquery.Selection {
	if scope.Is(sel) {
		return scope.First()
	}
	return scope.Find(sel).First()
}

func normList(in []string) []string {
	m := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = normSpace(s)
		if s == "" {
			continue
		}
		if _, ok := m[s]; ok {
			continue
		}
		m[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// firstInt 提取首个连续数字段（“ปี 2023”、“2023 / TV” 都能拿到 2023）。
func firstInt(s string) int {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			break
		}
	}
	if b.Len() == 0 {
		return 0
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return n
}
