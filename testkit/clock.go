package testkit

import (
	"sync"
	"time"
)

// FakeClock 手动推进的时钟，用来测试超时、熔断恢复、
// 退避重启这类时间逻辑而不真实等待。
type FakeClock struct {
	mu sync.Mutex
	// now 当前虚拟时刻
	now time.Time
	// waiters 尚未到期的 After 等待者
	waiters []waiter
}

// waiter 一次 After 调用登记的到期点和通知通道。
type waiter struct {
	due time.Time
	ch  chan time.Time
}

// NewFakeClock 以 start 为起点创建时钟，零值起点取 Unix 纪元。
func NewFakeClock(start time.Time) *FakeClock {
	if start.IsZero() {
		start = time.Unix(0, 0)
	}
	return &FakeClock{now: start}
}

// Now 返回当前虚拟时刻。
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After 对应 time.After，但只有 Advance 能让它触发。
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.mu.Lock()
	c.waiters = append(c.waiters, waiter{due: c.now.Add(d), ch: ch})
	c.mu.Unlock()
	return ch
}

// Advance 把虚拟时刻推进 d，并触发所有到期的等待者。
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	pending := c.waiters[:0]
	var due []waiter
	for _, w := range c.waiters {
		if w.due.After(now) {
			pending = append(pending, w)
		} else {
			due = append(due, w)
		}
	}
	c.waiters = pending
	c.mu.Unlock()

	for _, w := range due {
		select {
		case w.ch <- now:
		default:
		}
		close(w.ch)
	}
}
