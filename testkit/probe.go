package testkit

import (
	"testing"
	"time"
)

// Probe 测试探针：在测试里充当消息的接收端，
// 用于断言某条消息到达（或确实没有到达）。
type Probe struct {
	// t 所属测试，用于 Helper 标记
	t testing.TB
	// ch 收到的消息按序排队于此
	ch chan any
	// fail 断言失败时的上报函数，默认 t.Fatalf
	fail func(string, ...any)
}

// NewProbe 创建探针。buffer 非正时取 1024。
func NewProbe(t testing.TB, buffer int) *Probe {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Probe{t: t, ch: make(chan any, buffer), fail: t.Fatalf}
}

// Chan 暴露底层通道，供 select 场景直接使用。
func (p *Probe) Chan() <-chan any { return p.ch }

// Put 投递一条消息到探针，通常挂在被测 Actor 的处理函数里。
func (p *Probe) Put(v any) { p.ch <- v }

// Expect 等待下一条消息，超时（默认 1 秒）则测试失败。
func (p *Probe) Expect(timeout time.Duration) any {
	p.t.Helper()
	if timeout <= 0 {
		timeout = time.Second
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case v := <-p.ch:
		return v
	case <-deadline.C:
		p.fail("timeout waiting message")
		return nil
	}
}

// ExpectNoMessage 在窗口期（默认 50 毫秒）内收到任何消息都判失败。
func (p *Probe) ExpectNoMessage(timeout time.Duration) {
	p.t.Helper()
	if timeout <= 0 {
		timeout = 50 * time.Millisecond
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case v := <-p.ch:
		p.fail("unexpected message: %#v", v)
	case <-deadline.C:
	}
}
