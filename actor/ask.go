package actor

import "time"

// mergeSendOptions 以 defTimeout 为缺省超时合并调用方传入的选项。
func mergeSendOptions(defTimeout time.Duration, opts []SendOptions) SendOptions {
	o := SendOptions{Timeout: defTimeout}
	if len(opts) == 0 {
		return o
	}
	in := opts[0]
	if in.Timeout != 0 {
		o.Timeout = in.Timeout
	}
	o.Priority = in.Priority
	o.Persist = in.Persist
	o.OnComplete = in.OnComplete
	o.AllowDegrade = in.AllowDegrade
	o.Via = in.Via
	return o
}

// SendAsync 发出请求信封并立即返回 Future，响应到达或超时后完成。
// 缺省超时 30 秒；opts.Via 为回复预置转发链。
func (a *BaseActor) SendAsync(target IActor, msg any, opts ...SendOptions) *Future[*Reply] {
	o := mergeSendOptions(30*time.Second, opts)
	f := newFuture[*Reply]()
	if a.system == nil {
		f.complete(&Reply{Err: ErrActorNotFound})
		return f
	}
	mid := NewRequestID()
	a.system.TrackPending(mid, f, o.Timeout)
	if o.OnComplete != nil {
		f.OnComplete(o.OnComplete)
	}
	_ = a.system.sendRequest(a, target, mid, msg, o)
	return f
}

// SyncAsk 发出请求并阻塞等到响应或超时，缺省超时 5 秒。
func (a *BaseActor) SyncAsk(target IActor, msg any, opts ...SendOptions) (*Reply, error) {
	resp, _, err := a.Ask(target, msg, mergeSendOptions(5*time.Second, opts))
	return resp, err
}

// Ask 请求-响应的主入口，过熔断器和等待令牌后发出请求。
//
// 三个返回值的组合：同步拿到响应时返回 (resp, f, nil)；
// 系统饱和且 AllowDegrade 时降级，返回 (nil, f, ErrDegradedToAsync)，
// 调用方改在 Future 上收结果；超时或对端报错时 error 非空。
func (a *BaseActor) Ask(target IActor, msg any, opt SendOptions) (*Reply, *Future[*Reply], error) {
	if a.system == nil {
		return nil, nil, ErrActorNotFound
	}
	b := a.system.breakerFor(target)
	if b != nil && !b.Allow(time.Now()) {
		return nil, nil, ErrCircuitOpen
	}
	timeout := opt.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	fwd := SendOptions{Timeout: timeout, Priority: opt.Priority, Persist: opt.Persist, OnComplete: opt.OnComplete, Via: opt.Via}
	if opt.AllowDegrade && !a.system.tryAcquireWaitToken() {
		return nil, a.SendAsync(target, msg, fwd), ErrDegradedToAsync
	}
	if !opt.AllowDegrade {
		a.system.acquireWaitToken()
	}
	defer a.system.releaseWaitToken()

	start := time.Now()
	f := a.SendAsync(target, msg, fwd)
	resp, ok := f.Await(timeout)
	if a.system.metrics != nil {
		a.system.metrics.ObserveLatency(time.Since(start))
	}
	switch {
	case !ok || resp == nil:
		if b != nil {
			b.OnFailure(time.Now())
		}
		return nil, f, ErrAskTimeout
	case resp.Err != nil:
		if b != nil {
			b.OnFailure(time.Now())
		}
		return resp, f, resp.Err
	default:
		if b != nil {
			b.OnSuccess()
		}
		return resp, f, nil
	}
}
