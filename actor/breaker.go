package actor

import (
	"sync/atomic"
	"time"
)

const (
	// phaseClosed 闭合：调用正常放行，同时统计连续失败
	phaseClosed uint32 = iota
	// phaseOpen 熔断：一律拒绝，直到冷却期结束
	phaseOpen
	// phaseProbing 探测：冷却期满后放行单个试探调用
	phaseProbing
)

// CircuitBreaker 按目标统计连续失败次数的熔断器。
// 连续失败达到阈值后进入熔断，冷却期内快速拒绝；冷却期满
// 放行一个试探调用，成功即恢复闭合，失败则重新熔断。
// 所有方法都可并发调用。
type CircuitBreaker struct {
	// phase 当前阶段，取值为 phaseClosed / phaseOpen / phaseProbing
	phase atomic.Uint32
	// errStreak 闭合阶段累计的连续失败数，成功时清零
	errStreak atomic.Uint64
	// trippedNS 最近一次熔断的时间戳（UnixNano）
	trippedNS atomic.Int64
	// probing 探测阶段是否已派出试探调用
	probing atomic.Bool

	// threshold 触发熔断的连续失败阈值
	threshold uint64
	// cooldown 熔断后拒绝调用的时长
	cooldown time.Duration
}

// NewCircuitBreaker 构造熔断器。threshold 或 cooldown 传零时
// 分别取默认值 50 次和 30 秒。
func NewCircuitBreaker(threshold uint64, cooldown time.Duration) *CircuitBreaker {
	if threshold == 0 {
		threshold = 50
	}
	if cooldown == 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{threshold: threshold, cooldown: cooldown}
}

// Allow 判定 now 时刻的调用是否放行。
// 熔断阶段在冷却期满时自动转入探测阶段，且只放行第一个调用。
func (b *CircuitBreaker) Allow(now time.Time) bool {
	for {
		switch b.phase.Load() {
		case phaseClosed:
			return true
		case phaseOpen:
			if now.UnixNano()-b.trippedNS.Load() < int64(b.cooldown) {
				return false
			}
			if b.phase.CompareAndSwap(phaseOpen, phaseProbing) {
				b.probing.Store(false)
			}
			// 竞争失败时重读阶段再判定
		case phaseProbing:
			return b.probing.CompareAndSwap(false, true)
		default:
			return false
		}
	}
}

// OnSuccess 上报一次成功调用，熔断器恢复闭合。
func (b *CircuitBreaker) OnSuccess() {
	b.errStreak.Store(0)
	b.probing.Store(false)
	b.phase.Store(phaseClosed)
}

// OnFailure 上报一次失败调用。探测阶段的失败立即重新熔断，
// 闭合阶段累计到阈值后熔断。
func (b *CircuitBreaker) OnFailure(now time.Time) {
	if b.phase.Load() == phaseProbing {
		b.trip(now)
		return
	}
	if b.errStreak.Add(1) >= b.threshold {
		b.trip(now)
	}
}

// trip 进入熔断阶段并记录时间戳。
func (b *CircuitBreaker) trip(now time.Time) {
	b.trippedNS.Store(now.UnixNano())
	b.probing.Store(false)
	b.phase.Store(phaseOpen)
}
