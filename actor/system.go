package actor

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// System 是 Actor 的运行时容器，提供以下核心功能：
//   - 本地 Actor 注册表（支持按 ID 和可选名称查找）
//   - 挂起回复表：按关联 ID 的数值部分索引，响应到达时完成 Future
//   - 断路器和可选的饱和度降级机制
//   - 可选的持久化、指标收集、限流和远程传输
//
// System 是框架的核心，所有 Actor 都在 System 中创建和管理。
// 一个应用程序通常只需要一个 System 实例。
type System struct {
	// instanceID 本进程运行时实例的唯一标识，用于日志和远程诊断
	instanceID string
	// logger 结构化日志器，默认为空实现
	logger *zap.Logger

	// registry 本地 Actor 注册表
	registry *Registry

	// pendingMu 保护 pending 的并发访问
	pendingMu sync.Mutex
	// pending 等待响应的 Future 映射，按 MessageID 数值部分索引
	pending map[uint64]any

	// breakerMu 保护 breakers 的并发访问
	breakerMu sync.Mutex
	// breakers 每个目标 Actor 的断路器，按 Actor ID 索引
	breakers map[string]*CircuitBreaker

	// waitTokens 用于限制同步等待数量的令牌通道
	// 防止过多 goroutine 阻塞在 Ask 调用上
	waitTokens chan struct{}

	// serializer 消息序列化器，用于持久化和远程传输
	serializer Serializer
	// persistDir 持久化存储目录
	persistDir string

	// metrics 指标收集器
	metrics *Metrics
	// limiter 令牌桶限流器
	limiter *TokenBucket
	// remote 远程传输层
	remote *remoteTransport

	// locMu 保护 locations 的并发访问
	locMu sync.RWMutex
	// locations Actor ID 到远程地址的映射
	locations map[string]string

	// failMu 保护 failSub 的并发访问
	failMu sync.Mutex
	// failSub 失败通知订阅者列表
	failSub []func(actorID string, reason any)
}

// NewSystem 创建一个新的 Actor 运行时，使用默认设置。
// 默认使用 GobSerializer 作为序列化器，等待令牌池大小为 4096。
func NewSystem() *System {
	return &System{
		instanceID: uuid.NewString(),
		logger:     zap.NewNop(),
		registry:   NewRegistry(),
		pending:    make(map[uint64]any),
		breakers:   make(map[string]*CircuitBreaker),
		waitTokens: make(chan struct{}, 4096),
		serializer: &GobSerializer{},
	}
}

// InstanceID 返回运行时实例的唯一标识。
func (s *System) InstanceID() string { return s.instanceID }

// Registry 返回运行时注册表，用于 Actor 查找和注册。
func (s *System) Registry() *Registry { return s.registry }

// Logger 返回运行时使用的结构化日志器。
func (s *System) Logger() *zap.Logger { return s.logger }

// SetLogger 设置运行时使用的结构化日志器。
// logger 为 nil 时调用被忽略。
func (s *System) SetLogger(logger *zap.Logger) {
	if logger == nil {
		return
	}
	s.logger = logger
}

// Serializer 返回用于持久化和远程传输的序列化器。
func (s *System) Serializer() Serializer { return s.serializer }

// SetSerializer 设置用于持久化和远程传输的序列化器。
// serializer 为 nil 时调用被忽略。
func (s *System) SetSerializer(serializer Serializer) {
	if serializer == nil {
		return
	}
	s.serializer = serializer
}

// EnablePersistence 在指定目录下启用每个 Actor 的 WAL 持久化。
// 持久化的消息会在 Actor 重启时重放。
func (s *System) EnablePersistence(dir string) {
	s.persistDir = dir
}

// EnableRateLimit 启用令牌桶限流器，限制出站消息投递速率。
// qps 为每秒允许的请求数，burst 为突发容量。
func (s *System) EnableRateLimit(qps int64, burst int64) {
	s.limiter = NewTokenBucket(qps, burst)
}

// SetQPS 更新限流器的 QPS。
// 如果限流未启用，会初始化一个新的限流器。
func (s *System) SetQPS(qps int64) {
	if s.limiter == nil {
		s.limiter = NewTokenBucket(qps, qps)
		return
	}
	s.limiter.SetQPS(qps)
}

// actorWALPath 返回指定 Actor 的 WAL 文件路径。
func (s *System) actorWALPath(actorID string) string {
	if s.persistDir == "" || actorID == "" {
		return ""
	}
	return filepath.Join(s.persistDir, actorID+".wal")
}

// account 对一次出站投递计一次限流和指标。
func (s *System) account() {
	if s.limiter != nil {
		s.limiter.Wait(1)
	}
	if s.metrics != nil {
		s.metrics.IncOut()
	}
}

// deliverEnvelope 向指定 ID 的 Actor 投递信封。
// 首先尝试本地投递，如果本地找不到则按已知位置尝试远程投递，
// 远程路径将转发链序列化为接收者 ID 列表。
// pri 是调用方要求的优先级；响应角色的信封无论如何都走紧急通道。
func (s *System) deliverEnvelope(toID string, env *Envelope, pri Priority, persist bool) error {
	if toID == "" {
		return ErrActorNotFound
	}
	s.account()
	if a, ok := s.registry.Get(toID); ok {
		if ba, ok := a.(*BaseActor); ok {
			if priorityOf(env) == PriorityUrgent {
				pri = PriorityUrgent
			}
			return ba.push(env, pri, persist)
		}
		a.Receive(env.Payload)
		return nil
	}
	if addr, ok := s.locationOf(toID); ok {
		b, err := s.serializer.Marshal(env.Payload)
		if err != nil {
			return err
		}
		renv := &remoteEnvelope{
			ToID:    toID,
			MID:     uint64(env.MID),
			Stages:  stageIDs(env.Stages),
			Payload: b,
		}
		if env.Sender != nil {
			renv.FromID = env.Sender.ID()
		}
		return s.remoteDeliver(addr, renv)
	}
	return ErrActorNotFound
}

// stageIDs 把转发链降维为接收者 ID 列表，用于跨节点传输。
func stageIDs(stages []Recipient) []string {
	if len(stages) == 0 {
		return nil
	}
	out := make([]string, 0, len(stages))
	for _, r := range stages {
		out = append(out, r.ID())
	}
	return out
}

// FindByID 通过 ID 查找本地 Actor。
func (s *System) FindByID(id string) (IActor, bool) { return s.registry.Get(id) }

// FindByName 通过注册名称查找本地 Actor。
func (s *System) FindByName(name string) (IActor, bool) { return s.registry.GetByName(name) }

// Tell 向目标 Actor 投递单向消息（即发即忘）。
// 信封携带无效的关联 ID，接收方无法也无需应答。
// 如果目标可以解析为 ID 且已知远程位置，消息会被路由到远程节点。
func (s *System) Tell(from *BaseActor, target IActor, msg any, opts SendOptions) error {
	if target == nil {
		return ErrActorNotFound
	}
	pri := opts.Priority
	payload := msg
	if pm, ok := msg.(PriorityMessage); ok {
		pri = pm.Priority
		payload = pm.Msg
	}
	var sender Recipient
	if from != nil {
		sender = from
	}
	env := MakeEnvelope(sender, 0, nil, payload)
	if a, ok := target.(*BaseActor); ok {
		s.account()
		return a.push(env, pri, opts.Persist)
	}
	if ref, ok := target.(*ActorRef); ok {
		return s.deliverEnvelope(ref.id, env, pri, opts.Persist)
	}
	if t, ok := target.(interface{ ID() string }); ok {
		if id := t.ID(); id != "" {
			return s.deliverEnvelope(id, env, pri, opts.Persist)
		}
	}
	target.Receive(payload)
	return nil
}

// sendRequest 向目标 Actor 发送请求信封。
// 用于 Ask/SendAsync 等请求-响应模式；opts.Via 预置转发链。
func (s *System) sendRequest(from *BaseActor, to IActor, mid MessageID, payload any, opts SendOptions) error {
	var sender Recipient
	if from != nil {
		sender = from
	}
	env := MakeEnvelope(sender, mid, opts.Via, payload)
	if a, ok := to.(*BaseActor); ok {
		s.account()
		return a.push(env, opts.Priority, opts.Persist)
	}
	if ref, ok := to.(*ActorRef); ok {
		return s.deliverEnvelope(ref.id, env, opts.Priority, opts.Persist)
	}
	if t, ok := to.(interface{ ID() string }); ok {
		if id := t.ID(); id != "" {
			return s.deliverEnvelope(id, env, opts.Priority, opts.Persist)
		}
	}
	to.Receive(env)
	return nil
}

// completeFuture 用响应角色的信封完成一个挂起的 Future。
// 按关联 ID 的数值部分查找；错误负载（ErrorReply）还原为 Reply.Err。
func (s *System) completeFuture(env *Envelope) {
	key := env.MID.Num()
	s.pendingMu.Lock()
	f, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
	}
	s.pendingMu.Unlock()
	if !ok {
		return
	}
	reply := &Reply{MID: env.MID}
	if er, isErr := env.Payload.(*ErrorReply); isErr {
		reply.Err = er.Err
	} else {
		reply.Value = env.Payload
	}
	if c, ok := f.(interface{ complete(*Reply) }); ok {
		c.complete(reply)
	}
}

// TrackPending 跟踪一个等待响应的 Future。
// 如果设置了超时，超时后 Future 会自动完成并返回超时错误。
func (s *System) TrackPending(mid MessageID, v any, timeout time.Duration) {
	key := mid.Num()
	s.pendingMu.Lock()
	s.pending[key] = v
	s.pendingMu.Unlock()
	if timeout > 0 {
		time.AfterFunc(timeout, func() {
			s.pendingMu.Lock()
			f, ok := s.pending[key]
			if ok {
				delete(s.pending, key)
			}
			s.pendingMu.Unlock()
			if ok {
				if c, ok := f.(interface{ complete(*Reply) }); ok {
					c.complete(&Reply{MID: mid, Err: ErrAskTimeout})
				}
			}
		})
	}
}

// breakerFor 获取或创建目标 Actor 的断路器。
// 断路器用于防止对失败服务的持续请求。
func (s *System) breakerFor(target IActor) *CircuitBreaker {
	if target == nil {
		return nil
	}
	var id string
	if a, ok := target.(*BaseActor); ok {
		id = a.id
	} else if t, ok := target.(interface{ ID() string }); ok {
		id = t.ID()
	}
	if id == "" {
		return nil
	}
	s.breakerMu.Lock()
	b, ok := s.breakers[id]
	if !ok {
		b = NewCircuitBreaker(50, 30*time.Second)
		s.breakers[id] = b
	}
	s.breakerMu.Unlock()
	return b
}

// tryAcquireWaitToken 尝试获取一个等待令牌，不阻塞。
// 用于判断是否可以执行同步等待，或需要降级为异步。
func (s *System) tryAcquireWaitToken() bool {
	select {
	case s.waitTokens <- struct{}{}:
		return true
	default:
		return false
	}
}

// acquireWaitToken 获取一个等待令牌，可能阻塞。
func (s *System) acquireWaitToken() { s.waitTokens <- struct{}{} }

// releaseWaitToken 释放一个等待令牌。
func (s *System) releaseWaitToken() {
	select {
	case <-s.waitTokens:
	default:
	}
}

// SubscribeFailures 订阅 Actor 失败通知。
// 当 Actor 发生 panic 时，订阅者会收到通知。
func (s *System) SubscribeFailures(fn func(actorID string, reason any)) {
	s.failMu.Lock()
	s.failSub = append(s.failSub, fn)
	s.failMu.Unlock()
}

// notifyFailure 通知所有订阅者 Actor 失败事件。
func (s *System) notifyFailure(actorID string, reason any) {
	s.failMu.Lock()
	subs := append([]func(string, any){}, s.failSub...)
	s.failMu.Unlock()
	for _, fn := range subs {
		fn(actorID, reason)
	}
}
