package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"bwmon/config"
	"bwmon/input"
	"bwmon/model"
	"bwmon/output"
	"bwmon/sched"
)

const usage = `bwmon - 网卡带宽监控

用法:
  bwmon [选项]

选项:
  -f FILE     配置文件 (默认 /etc/bwmon.yaml，不存在则忽略)
  -r SECS     读取间隔 (默认 1.0)
  -s SECS     单次睡眠上限 (默认 0.02)
  -p POLICY   接口接受策略，例如 eth*,!lo
  -a          也显示没有 up 的网卡
  -i MODPARM  主采集模块，例如 proc:notc
  -I MODPARM  辅助采集模块，例如 wireguard
  -o MODPARM  主输出模块，例如 ascii:diagram=details;quitafter=5
  -O MODPARM  辅助输出模块，例如 prometheus:listen=:9102
  -L          列出所有模块
  -w FILE     把生效的配置写入 FILE 后退出

  MODPARM := MODULE[:OPT[=VAL];...],MODULE...；选项 help 打印模块帮助

环境变量 (.env 也会被读取):
  BWMON_READ_INTERVAL BWMON_SLEEP_TIME BWMON_LIFETIME BWMON_POLICY
  BWMON_INPUT BWMON_OUTPUT BWMON_LOG_LEVEL BWMON_LOG_FORMAT BWMON_LOG_FILE
`

func main() {
	// 1. 命令行参数
	fs := flag.NewFlagSet("bwmon", flag.ExitOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	cfgPath := fs.String("f", config.DefaultPath, "config file")
	readInterval := fs.Float64("r", config.DefaultReadInterval, "read interval")
	sleepTime := fs.Float64("s", config.DefaultSleepTime, "max sleep")
	policy := fs.String("p", "", "interface policy")
	showAll := fs.Bool("a", false, "show links that are not up")
	in := fs.String("i", "", "primary input")
	in2 := fs.String("I", "", "secondary input")
	out := fs.String("o", "", "primary output")
	out2 := fs.String("O", "", "secondary output")
	listModules := fs.Bool("L", false, "list modules")
	writeCfg := fs.String("w", "", "write effective config and exit")
	fs.Parse(os.Args[1:])

	// 2. 配置：默认值 < 配置文件 < 环境变量 < 命令行
	cfg, err := config.LoadOptional(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	config.ApplyEnv(&cfg)
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "r":
			cfg.ReadInterval = *readInterval
		case "s":
			cfg.SleepTime = *sleepTime
		case "p":
			cfg.Policy = *policy
		case "a":
			running := !*showAll
			cfg.OnlyRunning = &running
		case "i":
			cfg.Input = *in
		case "I":
			cfg.SecondaryInput = *in2
		case "o":
			cfg.Output = *out
		case "O":
			cfg.SecondaryOutput = *out2
		}
	})
	config.Sanitize(&cfg)

	if *writeCfg != "" {
		if err := config.Save(*writeCfg, cfg); err != nil {
			log.Fatalf("write config: %v", err)
		}
		fmt.Printf("config written to %s\n", *writeCfg)
		return
	}

	// 3. 挑选采集端和输出端
	providers := input.Builtin(input.Settings{OnlyRunning: cfg.Running()})
	consumers := output.Builtin(outputSettings(cfg))
	if *listModules {
		fmt.Printf("input:  %v\noutput: %v\n", input.Names(providers), output.Names(consumers))
		return
	}

	inputs, err := input.Select(mustModules(cfg.Input), mustModules(cfg.SecondaryInput), providers)
	exitOnHelp(err)
	if err != nil {
		log.Fatalf("select input: %v", err)
	}
	outputs, err := output.Select(mustModules(cfg.Output), mustModules(cfg.SecondaryOutput), consumers)
	exitOnHelp(err)
	if err != nil {
		log.Fatalf("select output: %v", err)
	}

	// 4. 日志：curses 占用终端时，没有指定日志文件就丢弃日志
	logFile := setupLogging(cfg, outputs.Has("curses"))
	if logFile != nil {
		defer logFile.Close()
	}

	// 5. 核心状态
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "localhost"
	}
	st := model.NewState(hostname)
	st.ReadInterval = cfg.ReadInterval
	st.Lifetime = cfg.Lifetime
	st.SetPolicy(cfg.Policy)

	// 6. 退出清理只执行一次：正常结束、q 退出、信号、致命错误都走这里
	shutdown := onceShutdown(outputs, inputs)
	defer shutdown()
	fatalf := func(format string, args ...interface{}) {
		shutdown()
		log.Fatalf(format, args...)
	}

	if err := inputs.Init(); err != nil {
		fatalf("init input: %v", err)
	}
	if err := outputs.Init(); err != nil {
		fatalf("init output: %v", err)
	}
	log.WithFields(log.Fields{
		"host":     hostname,
		"interval": cfg.ReadInterval,
		"inputs":   input.Names(inputs.Providers()),
		"outputs":  output.Names(outputs.Consumers()),
	}).Info("bwmon started")

	// 7. 主循环：Pre 处理按键，到点读取并绘制，直到信号或输出端要求退出
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := sched.New(cfg.ReadInterval, secondsToDuration(cfg.SleepTime))
	err = runGuarded(shutdown, func() error {
		return loop.Run(ctx, sched.Hooks{
			Pre: func(ctx context.Context) error {
				return outputs.Pre(ctx, st)
			},
			Tick: func(ctx context.Context, read model.Timestamp) error {
				st.LastRead = read
				inputs.Read(ctx, st)
				return outputs.Draw(st)
			},
			Post: func(context.Context) error {
				return outputs.Post(st)
			},
		})
	})

	v := loop.Timing().Variance
	if v.Count > 0 {
		log.WithFields(log.Fields{
			"min": v.Min,
			"max": v.Max,
			"avg": v.Total / float64(v.Count),
		}).Debug("scheduler variance (% of interval)")
	}

	switch {
	case err == nil, errors.Is(err, output.ErrQuit), errors.Is(err, context.Canceled):
		log.Info("bwmon stopped")
	default:
		log.Fatalf("poll loop: %v", err)
	}
}

type shutdowner interface {
	Shutdown()
}

// onceShutdown 按顺序关闭各部分，多次调用只执行一次
func onceShutdown(parts ...shutdowner) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			for _, p := range parts {
				p.Shutdown()
			}
		})
	}
}

// runGuarded 运行 fn，返回或 panic 之前都会先执行 cleanup，
// 保证终端被恢复、metrics 服务被关掉
func runGuarded(cleanup func(), fn func() error) error {
	defer cleanup()
	return fn()
}

func mustModules(s string) []config.Module {
	mods, err := config.ParseModules(s)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return mods
}

// exitOnHelp 模块参数里带 help 时打印帮助并退出
func exitOnHelp(err error) {
	var he *config.HelpError
	if errors.As(err, &he) {
		fmt.Print(he.Text)
		os.Exit(0)
	}
}

func outputSettings(cfg config.Config) output.Settings {
	return output.Settings{
		XUnit:       model.ParseXUnit(cfg.XUnit),
		YUnit:       model.ParseYUnit(cfg.YUnit),
		FgChar:      []rune(cfg.FgChar)[0],
		BgChar:      []rune(cfg.BgChar)[0],
		NoiseChar:   []rune(cfg.NoiseChar)[0],
		GraphHeight: cfg.GraphHeight,
		Out:         os.Stdout,
	}
}

// setupLogging 配置 logrus 标准 logger，返回打开的日志文件 (如果有)
func setupLogging(cfg config.Config, curses bool) *os.File {
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("unknown log level %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("open log file: %v", err)
		}
		log.SetOutput(f)
		return f
	}

	if curses {
		log.SetOutput(io.Discard)
	}
	return nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
