package actor

import (
	"errors"
	"sync"
	"testing"
)

// recordingRecipient 把投递给它的信封原样记录下来，供断言使用。
type recordingRecipient struct {
	id   string
	mu   sync.Mutex
	envs []*Envelope
}

func newRecording(id string) *recordingRecipient { return &recordingRecipient{id: id} }

func (r *recordingRecipient) ID() string { return r.id }

func (r *recordingRecipient) Enqueue(env *Envelope, _ *System) error {
	r.mu.Lock()
	r.envs = append(r.envs, env)
	r.mu.Unlock()
	return nil
}

func (r *recordingRecipient) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.envs)
}

func (r *recordingRecipient) last() *Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.envs) == 0 {
		return nil
	}
	return r.envs[len(r.envs)-1]
}

func TestPromiseTerminalDelivery(t *testing.T) {
	origin := newRecording("origin")
	mid := NewRequestID()
	env := MakeEnvelope(origin, mid, nil, "req")

	p := env.ExtractPromise(nil)
	if !p.Valid() {
		t.Fatalf("promise from request must be valid")
	}
	if !env.Spent() || env.Sender != nil || env.Stages != nil {
		t.Fatalf("extract must consume envelope")
	}
	if !env.MID.IsAnswered() {
		t.Fatalf("envelope copy must be marked answered")
	}
	if p.MID().IsAnswered() {
		t.Fatalf("promise mid copied before marking")
	}

	p.Deliver("result")
	if origin.count() != 1 {
		t.Fatalf("expected exactly one enqueue, got %d", origin.count())
	}
	got := origin.last()
	if !got.MID.IsResponse() || got.MID.Num() != mid.Num() {
		t.Fatalf("terminal id must be response role of original: %x", uint64(got.MID))
	}
	if len(got.Stages) != 0 || got.Payload.(string) != "result" {
		t.Fatalf("bad terminal envelope: %#v", got)
	}
	if p.Valid() {
		t.Fatalf("promise spent after delivery")
	}
}

func TestPromiseDeliverExactlyOnce(t *testing.T) {
	origin := newRecording("origin")
	env := MakeEnvelope(origin, NewRequestID(), nil, "req")
	p := env.ExtractPromise(nil)
	p.Deliver("first")
	p.Deliver("second")
	p.DeliverError(errors.New("third"))
	if origin.count() != 1 {
		t.Fatalf("expected one enqueue, got %d", origin.count())
	}
	if origin.last().Payload.(string) != "first" {
		t.Fatalf("second delivery must not win")
	}
}

func TestPromiseForwardPopsTail(t *testing.T) {
	origin := newRecording("origin")
	hopA := newRecording("hopA")
	hopB := newRecording("hopB")
	mid := NewRequestID()
	env := MakeEnvelope(origin, mid, []Recipient{hopA, hopB}, "req")

	env.ExtractPromise(nil).Deliver("payload")

	if origin.count() != 0 || hopA.count() != 0 {
		t.Fatalf("only the tail hop may receive")
	}
	if hopB.count() != 1 {
		t.Fatalf("tail hop must receive once, got %d", hopB.count())
	}
	fwd := hopB.last()
	if fwd.MID != mid {
		t.Fatalf("forwarded id must stay request role: %x", uint64(fwd.MID))
	}
	if fwd.Sender != Recipient(origin) {
		t.Fatalf("originator must travel with the envelope")
	}
	if len(fwd.Stages) != 1 || fwd.Stages[0] != Recipient(hopA) {
		t.Fatalf("chain must shrink by one from the tail: %#v", fwd.Stages)
	}
	if fwd.Payload.(string) != "payload" {
		t.Fatalf("payload must travel unchanged")
	}
}

func TestPromiseMultiHopChainDrains(t *testing.T) {
	origin := newRecording("origin")
	hops := []*recordingRecipient{newRecording("h1"), newRecording("h2"), newRecording("h3")}
	mid := NewRequestID()

	stages := make([]Recipient, 0, len(hops))
	for _, h := range hops {
		stages = append(stages, h)
	}
	env := MakeEnvelope(origin, mid, stages, 0)

	// 每一跳都提取自己的 Promise 并继续投递，链逐跳缩短
	for i := len(hops) - 1; i >= 0; i-- {
		env.ExtractPromise(nil).Deliver(i)
		if got := hops[i].count(); got != 1 {
			t.Fatalf("hop %d received %d times", i, got)
		}
		env = hops[i].last()
		if env.MID != mid {
			t.Fatalf("id changed at hop %d: %x", i, uint64(env.MID))
		}
		if len(env.Stages) != i {
			t.Fatalf("chain length %d at hop %d", len(env.Stages), i)
		}
	}

	// 链耗尽，最后一跳做最终投递
	env.ExtractPromise(nil).Deliver("final")
	if origin.count() != 1 {
		t.Fatalf("origin must receive exactly once, got %d", origin.count())
	}
	final := origin.last()
	if !final.MID.IsResponse() || final.MID.Num() != mid.Num() {
		t.Fatalf("final id must be response role: %x", uint64(final.MID))
	}
	if final.Payload.(string) != "final" {
		t.Fatalf("bad final payload: %#v", final.Payload)
	}
}

func TestPromiseFromFireAndForget(t *testing.T) {
	origin := newRecording("origin")
	env := MakeEnvelope(origin, 0, nil, "oneway")
	p := env.ExtractPromise(nil)
	if p.Valid() {
		t.Fatalf("fire-and-forget promise must be invalid")
	}
	p.Deliver("x")
	p.DeliverError(errors.New("x"))
	if origin.count() != 0 {
		t.Fatalf("invalid promise must never enqueue")
	}
}

func TestPromiseFromSpentEnvelope(t *testing.T) {
	origin := newRecording("origin")
	env := MakeEnvelope(origin, NewRequestID(), nil, "req")
	first := env.ExtractPromise(nil)
	second := env.ExtractPromise(nil)
	if !first.Valid() || second.Valid() {
		t.Fatalf("second extraction must yield an invalid promise")
	}
	second.Deliver("late")
	if origin.count() != 0 {
		t.Fatalf("spent envelope must not produce deliveries")
	}
	first.Deliver("ok")
	if origin.count() != 1 {
		t.Fatalf("first promise still delivers once")
	}
}

func TestPromiseAbandonment(t *testing.T) {
	origin := newRecording("origin")
	env := MakeEnvelope(origin, NewRequestID(), nil, "req")
	p := env.ExtractPromise(nil)
	// 静默丢弃：不投递、不 panic、发起方收不到任何东西
	p = nil
	_ = p
	if origin.count() != 0 {
		t.Fatalf("abandoned promise must stay silent")
	}
	var nilP *ResponsePromise
	if nilP.Valid() {
		t.Fatalf("nil promise is invalid")
	}
	nilP.Deliver("x")
	nilP.DeliverError(errors.New("late"))
}

func TestPromiseDeliverErrorWrapsPayload(t *testing.T) {
	origin := newRecording("origin")
	env := MakeEnvelope(origin, NewRequestID(), nil, "req")
	boom := errors.New("boom")
	env.ExtractPromise(nil).DeliverError(boom)
	if origin.count() != 1 {
		t.Fatalf("error reply must enqueue once")
	}
	got := origin.last()
	if !got.MID.IsResponse() {
		t.Fatalf("error reply rides the normal response path")
	}
	er, ok := got.Payload.(*ErrorReply)
	if !ok || er.Err != boom {
		t.Fatalf("expected wrapped error, got %#v", got.Payload)
	}
}

func TestPromiseNilSenderTerminal(t *testing.T) {
	env := MakeEnvelope(nil, NewRequestID(), nil, "req")
	p := env.ExtractPromise(nil)
	// 发送者缺失时最终投递退化为空操作
	p.Deliver("x")
	if p.Valid() {
		t.Fatalf("promise still spent")
	}
}

func TestContextRespond(t *testing.T) {
	origin := newRecording("origin")
	env := MakeEnvelope(origin, NewRequestID(), nil, "req")
	ctx := &Context{env: env}
	if ctx.Sender() != Recipient(origin) || !ctx.MID().IsRequest() {
		t.Fatalf("context accessors before consumption")
	}
	ctx.Respond("ok", nil)
	if origin.count() != 1 || origin.last().Payload.(string) != "ok" {
		t.Fatalf("respond must deliver value")
	}
	if ctx.Sender() != nil {
		t.Fatalf("sender gone after consumption")
	}
	// 再次应答无效果
	ctx.Respond("again", nil)
	if origin.count() != 1 {
		t.Fatalf("double respond must not enqueue")
	}
}

func TestContextDelegate(t *testing.T) {
	origin := newRecording("origin")
	worker := newRecording("worker")
	mid := NewRequestID()
	env := MakeEnvelope(origin, mid, nil, "req")
	ctx := &Context{env: env}

	if err := ctx.Delegate(worker, "work"); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	if worker.count() != 1 {
		t.Fatalf("delegate must enqueue once")
	}
	fwd := worker.last()
	if fwd.Sender != Recipient(origin) || fwd.MID != mid || len(fwd.Stages) != 0 {
		t.Fatalf("delegate must carry sender and id unchanged: %#v", fwd)
	}
	if fwd.Payload.(string) != "work" {
		t.Fatalf("delegate payload: %#v", fwd.Payload)
	}
	if err := ctx.Delegate(worker, "again"); !errors.Is(err, ErrEnvelopeSpent) {
		t.Fatalf("expected ErrEnvelopeSpent, got %v", err)
	}

	// 受托方最终应答时，回复直达发起方
	fwd.ExtractPromise(nil).Deliver("done")
	if origin.count() != 1 || !origin.last().MID.IsResponse() {
		t.Fatalf("delegated reply must reach originator directly")
	}
}

func TestContextRelayInterceptsReply(t *testing.T) {
	sys := NewSystem()
	origin := newRecording("origin")
	worker := newRecording("worker")
	relay := NewBaseActor(sys, BaseActorOptions{Name: "relay"})
	mid := NewRequestID()
	env := MakeEnvelope(origin, mid, nil, "req")
	ctx := &Context{system: sys, self: relay, env: env}

	if err := ctx.Relay(worker, "work"); err != nil {
		t.Fatalf("relay: %v", err)
	}
	fwd := worker.last()
	if len(fwd.Stages) != 1 || fwd.Stages[0].ID() != relay.ID() {
		t.Fatalf("relay must append itself to the chain tail: %#v", fwd.Stages)
	}
	if fwd.MID != mid || fwd.Sender != Recipient(origin) {
		t.Fatalf("relay must keep id and originator: %#v", fwd)
	}
}
