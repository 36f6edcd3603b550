package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/John-Robertt/anicat/internal/config"
)

// cliArgs 是所有命令共用的解析结果；各命令在 check 中拒绝不属于自己的参数。
type cliArgs struct {
	Config     config.CLIArgs
	Positional []string

	Page    int
	PageSet bool

	Section string
	Pages   int
	Details bool

	NFODir string
	Force  bool

	Episode    int
	EpisodeSet bool
	Latest     bool

	// seen 记录出现过的命令参数名（不含全局参数），用于 check。
	seen map[string]bool
}

func (a cliArgs) has(name string) bool { return a.seen[name] }

func parseArgs(args []string) (cliArgs, error) {
	ca := cliArgs{seen: map[string]bool{}}

	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			ca.Positional = append(ca.Positional, args[i+1:]...)
			break
		}
		if !strings.HasPrefix(a, "--") {
			if strings.HasPrefix(a, "-") && len(a) > 1 {
				return cliArgs{}, fmt.Errorf("未知参数 %q", a)
			}
			ca.Positional = append(ca.Positional, a)
			continue
		}

		name, val, hasVal := strings.Cut(strings.TrimPrefix(a, "--"), "=")
		value := func() (string, error) {
			if hasVal {
				return val, nil
			}
			if i+1 >= len(args) {
				return "", fmt.Errorf("--%s 需要一个值", name)
			}
			i++
			return args[i], nil
		}
		flag := func() (bool, error) {
			if !hasVal {
				return true, nil
			}
			switch val {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
			return false, fmt.Errorf("--%s 只能是 true 或 false，实际是 %q", name, val)
		}

		var err error
		switch name {
		case "config":
			ca.Config.ConfigPath, err = value()
		case "site":
			ca.Config.Site, err = value()
			ca.Config.SiteSet = true
		case "profiles":
			ca.Config.ProfilesFile, err = value()
			ca.Config.ProfilesFileSet = true
		case "concurrency":
			ca.Config.Concurrency, err = intValue(name, value)
			ca.Config.ConcurrencySet = true
		case "proxy":
			ca.Config.Proxy, err = value()
			ca.Config.ProxySet = true
		case "save-pages":
			ca.Config.SnapshotDir, err = value()
			ca.Config.SnapshotDirSet = true
		case "offline":
			ca.Config.Offline, err = flag()
		case "log-level":
			ca.Config.LogLevel, err = value()
			ca.Config.LogLevelSet = true
		case "log-file":
			ca.Config.LogFile, err = value()
			ca.Config.LogFileSet = true

		case "page":
			ca.Page, err = intValue(name, value)
			ca.PageSet = true
		case "section":
			ca.Section, err = value()
		case "pages":
			ca.Pages, err = intValue(name, value)
		case "details":
			ca.Details, err = flag()
		case "nfo":
			ca.NFODir, err = value()
		case "force":
			ca.Force, err = flag()
		case "episode":
			ca.Episode, err = intValue(name, value)
			ca.EpisodeSet = true
		case "latest":
			ca.Latest, err = flag()
		default:
			return cliArgs{}, fmt.Errorf("未知参数 %q", a)
		}
		if err != nil {
			return cliArgs{}, err
		}
		if _, global := globalNames[name]; !global {
			ca.seen[name] = true
		}
	}
	return ca, nil
}

var globalNames = map[string]struct{}{
	"config": {}, "site": {}, "profiles": {}, "concurrency": {}, "proxy": {},
	"save-pages": {}, "offline": {}, "log-level": {}, "log-file": {},
}

func intValue(name string, value func() (string, error)) (int, error) {
	s, err := value()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("--%s 需要整数，实际是 %q", name, s)
	}
	return n, nil
}

// allowOnly 拒绝不属于当前命令的参数。
func (a cliArgs) allowOnly(cmd string, names ...string) error {
	ok := make(map[string]bool, len(names))
	for _, n := range names {
		ok[n] = true
	}
	for n := range a.seen {
		if !ok[n] {
			return fmt.Errorf("%s 不支持 --%s", cmd, n)
		}
	}
	return nil
}
