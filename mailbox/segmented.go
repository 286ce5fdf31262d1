package mailbox

import (
	"sync/atomic"
)

// segment 分段队列的一段：一个环加指向下一段的原子指针。
type segment[T any] struct {
	q    *Ring[T]
	next atomic.Pointer[segment[T]]
}

// SegmentedQueue 按需增长的无锁队列。写满当前段时链上新段，
// 段数到达上限后拒绝入队；消费端取空一段即释放一段。
type SegmentedQueue[T any] struct {
	// head 消费端所在段
	head atomic.Pointer[segment[T]]
	// tail 生产端所在段
	tail atomic.Pointer[segment[T]]
	// segs 当前段数
	segs atomic.Uint64
	// segCap 每段容量
	segCap uint64
	// maxSeg 段数上限
	maxSeg uint64
}

// NewSegmentedQueue 创建分段队列。
// segmentCapacity 为每段容量，maxSegments 为段数上限（0 按 1 处理）。
func NewSegmentedQueue[T any](segmentCapacity, maxSegments uint64) *SegmentedQueue[T] {
	if maxSegments == 0 {
		maxSegments = 1
	}
	q := &SegmentedQueue[T]{segCap: segmentCapacity, maxSeg: maxSegments}
	first := &segment[T]{q: NewRing[T](segmentCapacity)}
	q.head.Store(first)
	q.tail.Store(first)
	q.segs.Store(1)
	return q
}

// Capacity 返回总容量（段容量 × 段数上限）。
func (q *SegmentedQueue[T]) Capacity() uint64 { return q.segCap * q.maxSeg }

// LenSegments 返回当前段数。
func (q *SegmentedQueue[T]) LenSegments() uint64 { return q.segs.Load() }

// grow 在 t 之后接一个新段并把 tail 推过去。
// 并发竞争下只有一个调用方真正建段，其余帮忙推进 tail。
func (q *SegmentedQueue[T]) grow(t *segment[T]) {
	if n := t.next.Load(); n != nil {
		q.tail.CompareAndSwap(t, n)
		return
	}
	ns := &segment[T]{q: NewRing[T](q.segCap)}
	if t.next.CompareAndSwap(nil, ns) {
		q.tail.CompareAndSwap(t, ns)
		q.segs.Add(1)
	}
}

// Enqueue 入队；当前段满且段数到顶时返回 false。
func (q *SegmentedQueue[T]) Enqueue(v *T) bool {
	for {
		t := q.tail.Load()
		if t.q.Enqueue(v) {
			return true
		}
		if q.segs.Load() >= q.maxSeg {
			return false
		}
		q.grow(t)
	}
}

// Dequeue 出队；当前段取空后滑到下一段继续。
func (q *SegmentedQueue[T]) Dequeue() (*T, bool) {
	for {
		h := q.head.Load()
		if v, ok := h.q.Dequeue(); ok {
			return v, true
		}
		n := h.next.Load()
		if n == nil {
			return nil, false
		}
		q.head.Store(n)
		q.segs.Add(^uint64(0))
	}
}
