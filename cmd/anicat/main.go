package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		os.Exit(1)
	}
	code := run(ctx, os.Args[1:], cwd, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run 是可测试的入口：返回进程退出码（0 成功，1 运行失败，2 参数错误）。
func run(ctx context.Context, args []string, cwd string, stdout, stderr io.Writer) int {
	if len(args) == 0 || isHelp(args[0]) {
		printUsage(stdout)
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "未知命令：%q\n\n", args[0])
		printUsage(stderr)
		return 2
	}
	for _, a := range args[1:] {
		if isHelp(a) {
			fmt.Fprint(stdout, cmd.usage)
			return 0
		}
	}

	ca, err := parseArgs(args[1:])
	if err == nil {
		err = cmd.check(ca)
	}
	if err != nil {
		fmt.Fprintf(stderr, "参数错误：%v\n\n", err)
		fmt.Fprint(stderr, cmd.usage)
		return 2
	}

	e := &env{ctx: ctx, cwd: cwd, stdout: stdout, stderr: stderr, args: ca, name: args[0]}
	defer e.close()
	return cmd.run(e)
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

const globalFlags = `全局参数：
  --config FILE         配置文件（默认读取当前目录的 anicat.json，不存在则忽略）
  --site NAME           站点 profile（默认 anime-yuzu）
  --profiles FILE       追加/覆盖站点 profile 的 YAML 文件
  --concurrency N       并发上限（1-32，默认 4）
  --proxy URL           HTTP 代理；--proxy= 显式关闭配置文件中的代理
  --save-pages DIR      把抓到的页面保存为快照
  --offline             只读快照，不访问网络（需要 --save-pages 或 snapshot_dir）
  --log-level LEVEL     debug|info|warn|error（默认 info）
  --log-file FILE       额外写入滚动日志（JSON 行）
  -h, --help            显示帮助
`

func printUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  anicat <命令> [参数]

命令：
  home [--page N]                      首页分区（第 N 页）
  search QUERY...                      搜索作品
  info DETAIL_REF [--nfo DIR] [--force]  作品详情；可导出 NFO
  links EPISODE_REF                    解析剧集页的播放直链
  links DETAIL_REF --episode N|--latest  先加载详情再解析指定集
  crawl [--section NAME] [--pages N] [--details]  按页聚合目录分区
  profiles                             列出可用站点 profile

stdout 只输出 JSON；日志与进度写 stderr。

`+globalFlags+`
使用 "anicat <命令> --help" 查看详细说明。
`)
}
