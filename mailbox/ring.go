package mailbox

import (
	"math/bits"
	"sync/atomic"
)

// slot 环形缓冲区的一个槽位。seq 与 head/tail 指针的差值
// 标记槽位处于可写、可读还是被对端占用的状态。
type slot[T any] struct {
	seq atomic.Uint64
	val atomic.Pointer[T]
}

// Ring 有界无锁 MPMC 环形缓冲区（Dmitry Vyukov 的序列号算法）。
// 入队方 CAS 抢占 tail 后写值并发布 seq，出队方 CAS 抢占 head
// 后取值并把槽位的 seq 推进一圈让给生产者。
type Ring[T any] struct {
	// mask 下标掩码，容量恒为 2 的幂
	mask uint64
	// buf 槽位数组
	buf []slot[T]
	// head 消费指针
	head atomic.Uint64
	// tail 生产指针
	tail atomic.Uint64
}

// NewRing 创建环形缓冲区，容量向上取整到 2 的幂（最小 2）。
func NewRing[T any](capacity uint64) *Ring[T] {
	if capacity < 2 {
		capacity = 2
	}
	c := uint64(1) << bits.Len64(capacity-1)
	r := &Ring[T]{mask: c - 1, buf: make([]slot[T], c)}
	for i := range r.buf {
		r.buf[i].seq.Store(uint64(i))
	}
	return r
}

// Capacity 返回实际容量。
func (r *Ring[T]) Capacity() uint64 { return uint64(len(r.buf)) }

// Enqueue 无锁入队，已满返回 false。
func (r *Ring[T]) Enqueue(v *T) bool {
	for {
		tail := r.tail.Load()
		s := &r.buf[tail&r.mask]
		switch delta := int64(s.seq.Load()) - int64(tail); {
		case delta == 0:
			if r.tail.CompareAndSwap(tail, tail+1) {
				s.val.Store(v)
				s.seq.Store(tail + 1)
				return true
			}
		case delta < 0:
			// 槽位还在上一圈的消费方手里，即缓冲区已满
			return false
		}
	}
}

// Dequeue 无锁出队，为空返回 false。
func (r *Ring[T]) Dequeue() (*T, bool) {
	for {
		head := r.head.Load()
		s := &r.buf[head&r.mask]
		switch delta := int64(s.seq.Load()) - int64(head+1); {
		case delta == 0:
			if r.head.CompareAndSwap(head, head+1) {
				v := s.val.Load()
				s.val.Store(nil)
				s.seq.Store(head + r.mask + 1)
				return v, true
			}
		case delta < 0:
			return nil, false
		}
	}
}
