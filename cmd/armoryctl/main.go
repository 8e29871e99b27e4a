// armoryctl 是 armory 数据核心的命令行工具。
//
// 用法:
//
//	armoryctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config   配置文件路径 (默认: armory.yaml)
//	-t, --timeout  命令超时时间 (默认: 30s)
//
// 命令:
//
//	fetch          读取一个资源并输出 JSON（经配额、缓存与回源全链路）
//	stats          查看当前配额使用快照
//	invalidate     删除资源的缓存条目
//	help           显示帮助信息
//
// 退出码:
//
//	0: 命令执行成功
//	1: 命令执行失败
//
// 示例:
//
//	armoryctl -c /etc/armory/armory.yaml fetch --region us --class profile \
//	    --category character --id tichondrius:thrall \
//	    --path /profile/wow/character/tichondrius/thrall --namespace profile-us
//	armoryctl stats --caller web-frontend
//	armoryctl invalidate --region us --class profile --category character --all
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
)

// defaultTimeout 默认命令超时时间。
const defaultTimeout = 30 * time.Second

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args))
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "armoryctl",
		Usage:   "armory 数据核心命令行工具",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径",
				Value:   "armory.yaml",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "命令超时时间",
				Value:   defaultTimeout,
			},
		},
		Commands:       createCommands(),
		DefaultCommand: "help",
	}
}

func run(args []string) int {
	app := createApp()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}
