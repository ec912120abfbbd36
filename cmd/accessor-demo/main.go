// Package main 提供 Accessor 演示程序
//
// 演示程序创建一组视图，每个视图通过一种 Accessor 形态订阅定时事件源，
// 并按固定间隔切换视图的 attach 状态。会话结束后输出每个视图收到的消息数。
//
// 使用方法:
//
//	go run ./cmd/accessor-demo -duration 10s -toggle 2s
//	go run ./cmd/accessor-demo -config demo.json -metrics 127.0.0.1:9090
//
// 日志由环境变量控制:
//
//	ACCESSOR_LOG_LEVEL=accessor=debug,info go run ./cmd/accessor-demo
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/dep2p/go-accessor/config"
	"github.com/dep2p/go-accessor/internal/app"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("❌ 错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 解析命令行参数
	configPath := flag.String("config", "", "JSON 配置文件路径")
	duration := flag.Duration("duration", 0, "演示总时长（覆盖配置）")
	toggle := flag.Duration("toggle", 0, "视图切换间隔（覆盖配置）")
	interval := flag.Duration("interval", 0, "定时事件间隔（覆盖配置）")
	metricsAddr := flag.String("metrics", "", "Prometheus 指标监听地址，为空时不启用")
	verbose := flag.Bool("v", false, "输出 fx 依赖注入事件")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *duration > 0 {
		cfg.Demo.Duration = config.Duration(*duration)
	}
	if *toggle > 0 {
		cfg.Demo.ToggleInterval = config.Duration(*toggle)
	}
	if *interval > 0 {
		cfg.Ticker.Interval = config.Duration(*interval)
	}
	if *metricsAddr != "" {
		cfg.Metrics.Enable = true
		cfg.Metrics.Addr = *metricsAddr
	}

	b := app.NewBootstrap(cfg, app.WithVerboseFx(*verbose))
	demo, err := b.Build()
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.Stop(ctx); err != nil {
			fmt.Printf("⚠️ 停止失败: %v\n", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("演示开始: 时长 %s，切换间隔 %s，事件间隔 %s\n",
		cfg.Demo.Duration, cfg.Demo.ToggleInterval, cfg.Ticker.Interval)
	if addr := b.MetricsAddr(); addr != "" {
		fmt.Printf("指标地址: http://%s/metrics\n", addr)
	}
	fmt.Println("按 Ctrl+C 提前结束")

	report, err := demo.Run(ctx)
	printReport(report)
	return err
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.NewConfig(), nil
	}
	return config.LoadFile(path)
}

// printReport 打印会话统计
func printReport(r app.Report) {
	names := make([]string, 0, len(r.Messages))
	for name := range r.Messages {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println()
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("切换次数: %d\n", r.Steps)
	for _, name := range names {
		fmt.Printf("  %-14s %d 条消息\n", name, r.Messages[name])
	}
	fmt.Printf("剩余订阅: %d\n", r.ActiveSubscriptions)
	fmt.Printf("公告订阅: %d\n", r.Announcements)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}
