package actor

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
)

type dummyActor struct {
	id  string
	got chan any
}

func (d *dummyActor) ID() string { return d.id }
func (d *dummyActor) Start()     {}
func (d *dummyActor) Stop()      {}
func (d *dummyActor) Receive(msg any) {
	if d.got != nil {
		d.got <- msg
	}
}
func (d *dummyActor) Send(target IActor, msg any) {}

func TestCoverageRemainingBranches(t *testing.T) {
	sys := NewSystem()
	sys.EnablePersistence(t.TempDir())
	_ = sys.actorWALPath("")
	_ = sys.actorWALPath("x")

	a := NewBaseActor(sys, BaseActorOptions{Name: "a", Receive: func(ctx *Context, msg any) {
		ctx.Respond(nil, nil)
	}})
	a.Start()
	defer a.Stop()

	a.Receive("x")
	a.Send(nil, "x")
	NewBaseActor(nil, BaseActorOptions{Name: "n"}).Send(a, "x")

	d := &dummyActor{id: "dummy", got: make(chan any, 1)}
	sys.registry.Register(d.ID(), "dn", d)
	defer sys.registry.Unregister(d.ID(), "dn")
	if err := sys.deliverEnvelope(d.ID(), MakeEnvelope(a, 0, nil, "m"), PriorityNormal, false); err != nil {
		t.Fatalf("deliver dummy: %v", err)
	}
	select {
	case <-d.got:
	case <-time.After(time.Second):
		t.Fatalf("timeout")
	}

	got := make(chan any, 1)
	recv := &dummyActor{got: got}
	sys.Tell(a, recv, PriorityMessage{Priority: PriorityUrgent, Msg: "p"}, SendOptions{})
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatalf("timeout")
	}

	sys.SetLocation("id2", "127.0.0.1:1")
	_ = sys.deliverEnvelope("id2", MakeEnvelope(nil, 0, nil, "x"), PriorityNormal, false)

	_ = sys.breakerFor(nil)
	_ = sys.breakerFor(&dummyActor{})
	_ = sys.breakerFor(&dummyActor{id: ""})
	_ = sys.breakerFor(a)

	sys.tryAcquireWaitToken()
	sys.waitTokens = make(chan struct{}, 0)
	_ = sys.tryAcquireWaitToken()

	gs := &GobSerializer{}
	_, _ = gs.Unmarshal([]byte{1, 2, 3})

	f := newFuture[int]()
	f.complete(1)
	f.complete(2)
	_, _ = f.Await(0)
	_, _ = f.Await(1 * time.Nanosecond)
	_ = All[int]()

	cb := NewCircuitBreaker(0, 0)
	cb.OnFailure(time.Now())
	cb.phase.Store(phaseProbing)
	cb.OnFailure(time.Now())

	tb := NewTokenBucket(-1, 0)
	tb.Allow(0)
	tb.Wait(1)

	if err := sys.EnableRemote("bad:addr"); err == nil {
		t.Fatalf("expected remote enable error")
	}
	sys.StopRemote()

	if _, err := (gobCodec{}).Marshal(func() {}); err == nil {
		t.Fatalf("expected codec error")
	}

	rt := &remoteTransport{sys: sys}
	_, _ = rt.Deliver(context.Background(), &remoteEnvelope{Payload: []byte{1}})
	_, _ = rt.Deliver(context.Background(), &remoteEnvelope{ToID: "missing", Payload: mustMarshal(sys, "x")})
	sys.registry.Register("dummy2", "", &dummyActor{got: make(chan any, 1)})
	defer sys.registry.Unregister("dummy2", "")
	_, _ = rt.Deliver(context.Background(), &remoteEnvelope{ToID: "dummy2", Payload: mustMarshal(sys, "x")})

	sup := NewSupervisor(nil, SupervisorOptions{})
	_ = sup.RestartCount()

	sys2 := NewSystem()
	sup2 := NewSupervisor(sys2, SupervisorOptions{Strategy: OneForAll, MaxRetries: 1, Backoff: func(int) time.Duration { return 0 }})
	c1 := sup2.Spawn("c1", func(sys *System) *BaseActor {
		return NewBaseActor(sys, BaseActorOptions{Name: "c1", Receive: func(_ *Context, msg any) {
			if msg == "boom" {
				panic("b")
			}
		}})
	})
	c2 := sup2.Spawn("c2", func(sys *System) *BaseActor {
		return NewBaseActor(sys, BaseActorOptions{Name: "c2", Receive: func(_ *Context, msg any) {
			if msg == "boom" {
				panic("b")
			}
		}})
	})
	_ = sys2.Tell(nil, c1, "boom", SendOptions{})
	_ = sys2.Tell(nil, c2, "boom", SendOptions{})
	time.Sleep(10 * time.Millisecond)

	sup3 := NewSupervisor(sys2, SupervisorOptions{Strategy: RestForOne, MaxRetries: 1, Backoff: func(int) time.Duration { return 0 }})
	r1 := sup3.Spawn("r1", func(sys *System) *BaseActor {
		return NewBaseActor(sys, BaseActorOptions{Name: "r1", Receive: func(_ *Context, msg any) {
			if msg == "boom" {
				panic("b")
			}
		}})
	})
	_ = sys2.Tell(nil, r1, "boom", SendOptions{})
	time.Sleep(10 * time.Millisecond)
	sup3.onFailure("missing", nil)
	sup3.restartChild(-1)
	sup3.restartChild(999)
	sup3.mu.Lock()
	if len(sup3.kids) > 0 {
		sup3.kids[0].retries = sup3.maxRetry + 1
	}
	sup3.mu.Unlock()
	sup3.restartChild(0)

	_ = a.system.SetQPS
}

func mustMarshal(sys *System, v any) []byte {
	b, _ := sys.serializer.Marshal(v)
	return b
}

type recvOnly struct{ got chan any }

func (r *recvOnly) Start()           {}
func (r *recvOnly) Stop()            {}
func (r *recvOnly) Receive(msg any)  { r.got <- msg }
func (r *recvOnly) Send(IActor, any) {}

func TestFutureAwaitBranches(t *testing.T) {
	f := newFuture[int]()
	go func() {
		time.Sleep(1 * time.Millisecond)
		f.complete(7)
	}()
	if v, ok := f.Await(0); !ok || v != 7 {
		t.Fatalf("await0: %v %v", v, ok)
	}
	g := newFuture[int]()
	if _, ok := g.Await(1 * time.Millisecond); ok {
		t.Fatalf("expected timeout")
	}
}

func TestSystemSendRequestBranches(t *testing.T) {
	sys := NewSystem()
	a := NewBaseActor(sys, BaseActorOptions{Name: "a"})
	b := NewBaseActor(sys, BaseActorOptions{ID: "b", Name: "b", Receive: func(ctx *Context, msg any) { ctx.Respond("ok", nil) }})
	a.Start()
	b.Start()
	defer a.Stop()
	defer b.Stop()

	if err := sys.sendRequest(a, b, NewRequestID(), "x", SendOptions{}); err != nil {
		t.Fatalf("baseactor: %v", err)
	}

	refB := sys.Ref("b")
	if err := sys.sendRequest(a, refB, NewRequestID(), "x", SendOptions{}); err != nil {
		t.Fatalf("ref: %v", err)
	}

	got := make(chan any, 1)
	idActor := &dummyActor{id: "idActor", got: got}
	sys.registry.Register("idActor", "", idActor)
	defer sys.registry.Unregister("idActor", "")
	if err := sys.sendRequest(a, idActor, NewRequestID(), "x", SendOptions{}); err != nil {
		t.Fatalf("id: %v", err)
	}

	ro := &recvOnly{got: got}
	_ = sys.sendRequest(a, ro, NewRequestID(), "x", SendOptions{})
	select {
	case <-got:
	default:
		t.Fatalf("expected receive")
	}
}

func TestAskAndSendAsyncBranches(t *testing.T) {
	sys := NewSystem()
	a := NewBaseActor(sys, BaseActorOptions{Name: "a"})
	b := NewBaseActor(sys, BaseActorOptions{Name: "b", Receive: func(ctx *Context, msg any) {
		if msg == "err" {
			ctx.Respond(nil, ErrCircuitOpen)
			return
		}
		ctx.Respond("ok", nil)
	}})
	a.Start()
	b.Start()
	defer a.Stop()
	defer b.Stop()

	_ = a.SendAsync(b, "x")
	_ = a.SendAsync(b, "x", SendOptions{})

	_, _, err := a.Ask(b, "x", SendOptions{Timeout: time.Second, AllowDegrade: true})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}

	cb := sys.breakerFor(b)
	now := time.Now()
	cb.trip(now)
	if _, _, err := a.Ask(b, "x", SendOptions{Timeout: time.Second}); err != ErrCircuitOpen {
		t.Fatalf("expected open")
	}
}

func TestBaseActorHandleBranches(t *testing.T) {
	sys := NewSystem()
	a := NewBaseActor(sys, BaseActorOptions{Name: "a"})
	a.Start()
	defer a.Stop()

	// 没有挂起 Future 的孤儿响应被静默丢弃
	resp := NewRequestID().ResponseID()
	_ = a.push(MakeEnvelope(nil, resp, nil, "orphan"), PriorityUrgent, false)
	// receive 为 nil 时请求与普通消息都被忽略
	_ = a.push(MakeEnvelope(nil, NewRequestID(), nil, "req"), PriorityNormal, false)
	_ = a.push(MakeEnvelope(nil, 0, nil, "plain"), PriorityNormal, false)
	time.Sleep(5 * time.Millisecond)

	b := NewBaseActor(sys, BaseActorOptions{Name: "b"})
	b.receive = nil
	b.Start()
	defer b.Stop()
	_ = sys.Tell(nil, b, "x", SendOptions{})
}

func TestRemoteBranches(t *testing.T) {
	sysS := NewSystem()
	_ = sysS.RemoteAddr()
	if err := sysS.EnableRemote(""); err != nil {
		t.Fatalf("enable: %v", err)
	}
	defer sysS.StopRemote()
	if err := sysS.EnableRemote(":0"); err != nil {
		t.Fatalf("enable2: %v", err)
	}
	sysS.SetLocation("", "x")

	addr := sysS.RemoteAddr()
	conn, err := grpc.Dial(addr, grpc.WithInsecure(), grpc.WithDefaultCallOptions(grpc.ForceCodec(gobCodec{})))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	var ack remoteAck
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = conn.Invoke(ctx, "/huixinactor.Remote/Deliver", 123, &ack, grpc.ForceCodec(gobCodec{}))
}
