package actor

import (
	"sync"
	"time"
)

// TokenBucket 是系统级的令牌桶限流器。
// 令牌按 QPS 匀速补充，桶容量 burst 决定允许的突发量。
// 速率可通过 SetQPS 在运行时调整；qps <= 0 视为不限流。
type TokenBucket struct {
	// mu 保护以下全部字段
	mu sync.Mutex
	// qps 每秒补充的令牌数
	qps int64
	// burst 桶容量
	burst int64
	// avail 当前可用令牌
	avail int64
	// lastNS 上次补充的时间戳（UnixNano）
	lastNS int64
}

// NewTokenBucket 构造令牌桶，初始为满。
// burst <= 0 时退化为 qps（qps 也非正时取 1）。
func NewTokenBucket(qps int64, burst int64) *TokenBucket {
	if burst <= 0 {
		if qps > 0 {
			burst = qps
		} else {
			burst = 1
		}
	}
	return &TokenBucket{
		qps:    qps,
		burst:  burst,
		avail:  burst,
		lastNS: time.Now().UnixNano(),
	}
}

// SetQPS 在线调整速率。先按旧速率结算到当前时刻，
// 再切换；qps <= 0 时直接把桶置满，等价于关闭限流。
func (tb *TokenBucket) SetQPS(qps int64) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refillLocked(time.Now().UnixNano())
	tb.qps = qps
	if qps <= 0 {
		tb.avail = tb.burst
	}
}

// Allow 尝试取走 n 个令牌，不足立即返回 false。
func (tb *TokenBucket) Allow(n int64) bool {
	if n <= 0 {
		return true
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refillLocked(time.Now().UnixNano())
	if tb.avail < n {
		return false
	}
	tb.avail -= n
	return true
}

// Wait 阻塞取走 n 个令牌，取不到时短暂休眠后重试。
func (tb *TokenBucket) Wait(n int64) {
	if n <= 0 {
		return
	}
	for !tb.Allow(n) {
		time.Sleep(200 * time.Microsecond)
	}
}

// refillLocked 按流逝时间结算令牌，调用方需持有 mu。
func (tb *TokenBucket) refillLocked(nowNS int64) {
	if tb.qps <= 0 {
		tb.lastNS = nowNS
		tb.avail = tb.burst
		return
	}
	if nowNS <= tb.lastNS {
		return
	}
	add := (nowNS - tb.lastNS) * tb.qps / int64(time.Second)
	if add <= 0 {
		return
	}
	tb.lastNS = nowNS
	tb.avail += add
	if tb.avail > tb.burst {
		tb.avail = tb.burst
	}
}
