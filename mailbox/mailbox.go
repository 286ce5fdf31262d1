package mailbox

import (
	"errors"
	"runtime"
	"sync/atomic"
	"time"
)

var (
	// ErrMailboxClosed 当向已关闭的邮箱推送消息时返回此错误。
	ErrMailboxClosed = errors.New("mailbox closed")
	// ErrMailboxFull 当扩展策略下队列达到容量上限时返回此错误。
	ErrMailboxFull = errors.New("mailbox full")
)

// BackpressurePolicy 定义邮箱满时的背压策略。
type BackpressurePolicy uint8

const (
	// BackpressureExpand 扩展策略：入队直到达到容量，然后返回错误。
	// 这是最常用的策略，提供明确的背压信号。
	BackpressureExpand BackpressurePolicy = iota
	// BackpressureBlock 阻塞策略：阻塞发送者直到有空间或邮箱关闭。
	// 适用于需要保证消息不丢失的场景，但可能导致发送者阻塞。
	BackpressureBlock
	// BackpressureDropNewest 丢弃策略：邮箱满时丢弃新消息。
	// 适用于允许消息丢失的场景，如日志收集、监控数据等。
	BackpressureDropNewest
)

// PersistHook 是持久化钩子函数，在带 Persist 标志的推送上调用。
// 参数为编码后的消息负载，返回可能的错误。
type PersistHook func([]byte) error

// PushOptions 控制单次推送的通道选择和持久化。
type PushOptions struct {
	// Urgent 是否走紧急通道
	Urgent bool
	// Persist 是否先写持久化钩子
	Persist bool
}

// Options 配置邮箱的容量、背压策略和可选的持久化。
type Options[T any] struct {
	// Capacity 普通队列的初始容量，默认 65536
	Capacity uint64
	// UrgentCapacity 紧急队列的初始容量，默认 1024
	UrgentCapacity uint64
	// MaxSegments 最大分段数，默认 8
	MaxSegments uint64
	// Policy 背压策略，默认 BackpressureExpand
	Policy BackpressurePolicy
	// Persist 持久化钩子函数
	Persist PersistHook
	// EncodeForPersist 消息编码函数，用于持久化前编码
	EncodeForPersist func(T) ([]byte, bool)
}

// Mailbox 是一个双队列邮箱，包含紧急通道和普通通道。
// 紧急通道用于高优先级条目（如响应角色的信封），普通通道用于常规条目。
// 邮箱对条目类型泛型化，支持多种背压策略和可选的条目持久化。
type Mailbox[T any] struct {
	// urgent 紧急队列
	urgent *SegmentedQueue[T]
	// normal 普通队列
	normal *SegmentedQueue[T]
	// policy 背压策略
	policy BackpressurePolicy
	// closed 关闭信号通道
	closed chan struct{}
	// notify 新条目通知通道
	notify chan struct{}
	// size 当前队列中的条目总数
	size atomic.Int64
	// persist 持久化钩子
	persist PersistHook
	// encode 条目编码函数
	encode func(T) ([]byte, bool)
}

// New 创建一个新的邮箱，使用默认配置（普通=65536，紧急=1024，最大分段=8）。
func New[T any](opts Options[T]) *Mailbox[T] {
	capacity := opts.Capacity
	if capacity == 0 {
		capacity = 65536
	}
	uc := opts.UrgentCapacity
	if uc == 0 {
		uc = 1024
	}
	ms := opts.MaxSegments
	if ms == 0 {
		ms = 8
	}
	p := opts.Policy
	if p == 0 {
		p = BackpressureExpand
	}
	return &Mailbox[T]{
		urgent:  NewSegmentedQueue[T](uc, ms),
		normal:  NewSegmentedQueue[T](capacity, ms),
		policy:  p,
		closed:  make(chan struct{}),
		notify:  make(chan struct{}, 1),
		persist: opts.Persist,
		encode:  opts.EncodeForPersist,
	}
}

// Closed 返回一个通道，在邮箱关闭时该通道会被关闭。
// 可用于 select 语句中检测邮箱是否已关闭。
func (m *Mailbox[T]) Closed() <-chan struct{} { return m.closed }

// Close 关闭邮箱并解除等待者的阻塞。
// 关闭后不能再推送条目，但可以继续弹出已入队的条目。
func (m *Mailbox[T]) Close() {
	select {
	case <-m.closed:
	default:
		close(m.closed)
	}
}

// Push 根据通道选择和背压策略将条目入队。
// 如果设置了 Persist 且配置了持久化钩子，会先持久化条目。
func (m *Mailbox[T]) Push(v T, opt PushOptions) error {
	select {
	case <-m.closed:
		return ErrMailboxClosed
	default:
	}
	if opt.Persist && m.persist != nil && m.encode != nil {
		if b, ok := m.encode(v); ok {
			_ = m.persist(b)
		}
	}
	q := m.normal
	if opt.Urgent {
		q = m.urgent
	}
	switch m.policy {
	case BackpressureExpand:
		if q.Enqueue(&v) {
			m.bump()
			return nil
		}
		return ErrMailboxFull
	case BackpressureDropNewest:
		if q.Enqueue(&v) {
			m.bump()
		}
		return nil
	case BackpressureBlock:
		backoff := time.Microsecond
		for {
			if q.Enqueue(&v) {
				m.bump()
				return nil
			}
			select {
			case <-m.closed:
				return ErrMailboxClosed
			default:
			}
			runtime.Gosched()
			time.Sleep(backoff)
			if backoff < 2*time.Millisecond {
				backoff *= 2
			}
		}
	default:
		return errors.New("unknown backpressure policy")
	}
}

// bump 更新计数并发出非阻塞的新条目通知。
func (m *Mailbox[T]) bump() {
	m.size.Add(1)
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Pop 弹出一个条目，紧急通道优先。
func (m *Mailbox[T]) Pop() (T, bool) {
	if v, ok := m.urgent.Dequeue(); ok && v != nil {
		m.size.Add(-1)
		return *v, true
	}
	if v, ok := m.normal.Dequeue(); ok && v != nil {
		m.size.Add(-1)
		return *v, true
	}
	var zero T
	return zero, false
}

// Len 返回队列中条目的近似数量。
func (m *Mailbox[T]) Len() int64 { return m.size.Load() }

// Wait 阻塞直到至少有一个条目入队或邮箱关闭。
// 返回 true 表示有条目可处理，false 表示邮箱已关闭。
func (m *Mailbox[T]) Wait() bool {
	select {
	case <-m.notify:
		return true
	case <-m.closed:
		return false
	}
}
