package actor

import (
	"sync"
	"time"
)

// Future 表示一次尚未到达的响应结果。
// 只能完成一次；支持阻塞等待和完成回调两种消费方式。
// 发起方持有 Future，响应角色信封被派发时由系统填入结果。
type Future[T any] struct {
	// fired 完成信号，complete 时关闭
	fired chan struct{}

	// mu 保护以下三个字段
	mu sync.Mutex
	// settled 是否已完成
	settled bool
	// val 完成后的结果值
	val T
	// waiters 完成前注册的回调
	waiters []func(T)
}

// newFuture 创建未完成的 Future。
func newFuture[T any]() *Future[T] {
	return &Future[T]{fired: make(chan struct{})}
}

// complete 写入结果并触发所有回调，重复调用被忽略。
func (f *Future[T]) complete(v T) {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return
	}
	f.settled = true
	f.val = v
	ws := f.waiters
	f.waiters = nil
	f.mu.Unlock()

	close(f.fired)
	for _, w := range ws {
		w(v)
	}
}

// OnComplete 注册完成回调。已完成的 Future 会在当前
// goroutine 中立即回调。
func (f *Future[T]) OnComplete(cb func(T)) {
	f.mu.Lock()
	if !f.settled {
		f.waiters = append(f.waiters, cb)
		f.mu.Unlock()
		return
	}
	v := f.val
	f.mu.Unlock()
	cb(v)
}

// Await 阻塞等待结果。timeout <= 0 表示无限等待；
// 第二个返回值为 false 表示超时。
func (f *Future[T]) Await(timeout time.Duration) (T, bool) {
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-f.fired:
		case <-t.C:
			var zero T
			return zero, false
		}
	} else {
		<-f.fired
	}
	f.mu.Lock()
	v := f.val
	f.mu.Unlock()
	return v, true
}

// Then 派生新 Future：原 Future 完成时对结果应用 fn。
func Then[A any, B any](fa *Future[A], fn func(A) B) *Future[B] {
	fb := newFuture[B]()
	fa.OnComplete(func(a A) { fb.complete(fn(a)) })
	return fb
}

// All 聚合一组 Future，全部完成后按输入顺序返回结果切片。
// 输入为空时返回已完成的空结果。
func All[T any](fs ...*Future[T]) *Future[[]T] {
	out := newFuture[[]T]()
	if len(fs) == 0 {
		out.complete(nil)
		return out
	}
	var mu sync.Mutex
	vals := make([]T, len(fs))
	left := len(fs)
	for i, f := range fs {
		i, f := i, f
		f.OnComplete(func(v T) {
			mu.Lock()
			vals[i] = v
			left--
			fire := left == 0
			mu.Unlock()
			if fire {
				out.complete(vals)
			}
		})
	}
	return out
}
