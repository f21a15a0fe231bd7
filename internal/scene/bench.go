package scene

import (
	"context"
	"fmt"
	"math"
	"time"

	"epdemo/internal/display"
	appLog "epdemo/internal/log"
	"epdemo/internal/text"
)

// benchPause separates two benchmark iterations.
const benchPause = 100 * time.Microsecond

// Result holds partial refresh timings in microseconds.
type Result struct {
	Count int
	Min   int64
	Max   int64
	Total int64
}

// Add records one sample.
func (r *Result) Add(us int64) {
	if r.Count == 0 || us < r.Min {
		r.Min = us
	}
	if us > r.Max {
		r.Max = us
	}
	r.Total += us
	r.Count++
}

// AvgMs is the mean duration in milliseconds. The mean is taken in whole
// microseconds first.
func (r Result) AvgMs() float64 {
	if r.Count == 0 {
		return 0
	}
	return float64(r.Total/int64(r.Count)) / 1000.0
}

// AvgFPS is 1000 / AvgMs.
func (r Result) AvgFPS() float64 {
	return 1000.0 / r.AvgMs()
}

// MaxFPS is the rate of the fastest iteration.
func (r Result) MaxFPS() float64 {
	return 1e6 / float64(r.Min)
}

// Bench times count partial refreshes of the (x, y, w, h) window, filling it
// black and white alternately.
func Bench(ctx context.Context, env *Env, x, y, w, h, count int) (Result, error) {
	s := env.Session
	s.SetPartialWindow(x, y, w, h)

	var res Result
	for i := range count {
		col := display.White
		if i%2 == 0 {
			col = display.Black
		}
		start := env.now()
		if err := s.Paint(func(c *display.Canvas) {
			c.FillRect(x, y, w, h, col)
		}); err != nil {
			return res, err
		}
		res.Add(env.now().Sub(start).Microseconds())
		if err := env.Hold(ctx, benchPause); err != nil {
			return res, err
		}
	}
	return res, nil
}

// fps formats a rate; a zero duration yields "Inf".
func fps(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "Inf"
	}
	return fmt.Sprintf("%.2f", v)
}

// ShowResult draws the benchmark summary with a full refresh.
func ShowResult(env *Env, res Result) error {
	s := env.Session
	s.SetFullWindow()
	w := int16(s.Width())
	cjk := env.Fonts.CJK

	count := fmt.Sprintf("测试次数：%d次", res.Count)
	minLine := fmt.Sprintf("最小耗时：%dμs", res.Min)
	maxLine := fmt.Sprintf("最大耗时：%dμs", res.Max)
	avg := fmt.Sprintf("平均：%s FPS", fps(res.AvgFPS()))
	best := fmt.Sprintf("最大：%s FPS", fps(res.MaxFPS()))

	return s.Paint(func(c *display.Canvas) {
		text.DrawUniversal(c, w/2, 20, "刷新率测试结果", cjk, display.Black, text.AlignCenter)
		text.DrawUniversal(c, 10, 50, count, cjk, display.Black, text.AlignLeft)
		text.DrawUniversal(c, 10, 75, minLine, cjk, display.Black, text.AlignLeft)
		text.DrawUniversal(c, 10, 100, maxLine, cjk, display.Black, text.AlignLeft)
		text.DrawUniversal(c, w-10, 75, avg, cjk, display.Black, text.AlignRight)
		text.DrawUniversal(c, w-10, 100, best, cjk, display.Black, text.AlignRight)
	})
}

// refreshBenchmark measures the partial refresh rate, shows the results and
// powers the panel off.
func refreshBenchmark(ctx context.Context, env *Env) error {
	b := env.Config.Benchmark
	res, err := Bench(ctx, env, b.X, b.Y, b.W, b.H, b.Count)
	if err != nil {
		return err
	}
	appLog.Info("refresh benchmark",
		"count", res.Count,
		"min_us", res.Min,
		"max_us", res.Max,
		"avg_ms", fmt.Sprintf("%.3f", res.AvgMs()),
		"avg_fps", fps(res.AvgFPS()),
		"max_fps", fps(res.MaxFPS()),
	)
	if err := ShowResult(env, res); err != nil {
		return err
	}
	return env.Session.PowerOff()
}
