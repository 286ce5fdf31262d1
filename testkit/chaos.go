package testkit

import (
	"math/rand"
	"time"
)

// Chaos 故障注入器：以给定概率丢弃操作、随机拖慢执行，
// 用于演练超时路径和"请求方永远等不到回复"的放弃场景。
type Chaos struct {
	// DropProbability 丢弃概率，[0, 1]
	DropProbability float64
	// MaxDelay 执行前随机延迟的上限，零表示不延迟
	MaxDelay time.Duration
	// Rand 随机源，nil 时按当前时间播种
	Rand *rand.Rand
}

func (c Chaos) source() *rand.Rand {
	if c.Rand != nil {
		return c.Rand
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// jitter 返回本次注入的随机延迟。
func (c Chaos) jitter(r *rand.Rand) time.Duration {
	if c.MaxDelay <= 0 {
		return 0
	}
	return time.Duration(r.Int63n(int64(c.MaxDelay)))
}

// Apply 对 fn 施加故障效果，返回 fn 是否真正执行。
func (c Chaos) Apply(fn func()) bool {
	r := c.source()
	if c.DropProbability > 0 && r.Float64() < c.DropProbability {
		return false
	}
	if d := c.jitter(r); d > 0 {
		time.Sleep(d)
	}
	fn()
	return true
}
