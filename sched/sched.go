// Package sched 固定间隔的读取循环，自动补偿上一轮的时间误差
package sched

import (
	"context"
	"time"

	"bwmon/model"

	log "github.com/sirupsen/logrus"
)

// Variance 调度误差统计，单位是读取间隔的百分比
type Variance struct {
	Error float64 // 最近一次
	Total float64 // 累计
	Min   float64
	Max   float64
	Count int
}

// Timing 读取时间线
//
//	E  := 当前时间     NR := 下次读取
//	LR := 上次读取     RI := 读取间隔
//	C  := 修正量 (NR - E，总是 <= 0)
type Timing struct {
	NextRead model.Timestamp
	LastRead model.Timestamp
	Variance Variance
}

// Hooks 每轮循环的回调；任何一个返回错误都会结束循环
type Hooks struct {
	Pre  func(ctx context.Context) error                       // 每次醒来都调用 (比如处理键盘输入)
	Tick func(ctx context.Context, read model.Timestamp) error // 到点才调用：读取 + 绘制
	Post func(ctx context.Context) error                       // Tick 之后调用
}

// Loop 单线程调度器，同一时刻只有一个 读取-计算-绘制 周期
type Loop struct {
	interval model.Timestamp
	sleep    time.Duration
	timing   Timing

	// 测试时替换
	now   func() model.Timestamp
	pause func(ctx context.Context, d time.Duration) error
}

// New readInterval 单位秒；sleep 是单次睡眠的上限
func New(readInterval float64, sleep time.Duration) *Loop {
	return &Loop{
		interval: model.FromFloat(readInterval),
		sleep:    sleep,
		timing: Timing{
			Variance: Variance{Min: 10000000.0},
		},
		now:   model.Now,
		pause: pause,
	}
}

// Timing 当前时间线和误差统计的副本
func (l *Loop) Timing() Timing {
	return l.timing
}

// Run 一直运行到 ctx 取消或某个回调出错
func (l *Loop) Run(ctx context.Context, h Hooks) error {
	// NR := E
	l.timing.NextRead = l.now()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if h.Pre != nil {
			if err := h.Pre(ctx); err != nil {
				return err
			}
		}

		e := l.now()
		if err := l.step(ctx, e, h); err != nil {
			return err
		}

		if err := l.pause(ctx, l.sleepFor(e)); err != nil {
			return err
		}
	}
}

// step 到点 (NR <= E) 就执行一轮，并把误差带入下一次的唤醒时间
func (l *Loop) step(ctx context.Context, e model.Timestamp, h Hooks) error {
	if !l.timing.NextRead.LE(e) {
		return nil
	}

	// C := NR - E
	c := l.timing.NextRead.Sub(e)
	l.calcVariance(c)

	// LR := E
	l.timing.LastRead = e

	// NR := E + RI + C
	l.timing.NextRead = e.Add(l.interval).Add(c)

	log.WithFields(log.Fields{
		"correction": c.Float(),
		"variance":   l.timing.Variance.Error,
	}).Debug("poll tick")

	if h.Tick != nil {
		if err := h.Tick(ctx, e); err != nil {
			return err
		}
	}
	if h.Post != nil {
		return h.Post(ctx)
	}
	return nil
}

func (l *Loop) calcVariance(c model.Timestamp) {
	ri := l.interval.Float()
	if ri <= 0 {
		return
	}
	v := c.Float() / ri * 100.0

	vr := &l.timing.Variance
	vr.Error = v
	vr.Total += v
	vr.Count++
	if v > vr.Max {
		vr.Max = v
	}
	if v < vr.Min {
		vr.Min = v
	}
}

// sleepFor 睡眠时间取配置值和 (NR - E) 中较小的那个
func (l *Loop) sleepFor(e model.Timestamp) time.Duration {
	st := l.sleep
	if rest := l.timing.NextRead.Sub(e).Duration(); rest < st {
		st = rest
	}
	if st < 0 {
		st = 0
	}
	return st
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
