package actor

import (
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"huixinactor/mailbox"
	"huixinactor/persistence"
)

// ReceiveFunc 是用户定义的消息处理函数。
// Context 提供消息处理期间的执行上下文，msg 为接收到的消息。
type ReceiveFunc func(*Context, any)

// BaseActor 是一个可复用的 Actor 实现，提供以下功能：
//   - 高吞吐量邮箱（响应角色信封走紧急通道）
//   - 生命周期管理（Start/Stop）和 ID/名称注册
//   - Panic 恢复和失败通知到 System
//   - 可选的基于 WAL 的消息重放（启用持久化时）
//
// BaseActor 同时实现 Recipient 接口：作为投递目标时，
// 信封被推入其邮箱，由其单线程循环串行处理。
type BaseActor struct {
	// id Actor 的唯一标识符
	id string
	// name Actor 的可选人类可读名称
	name string

	// system 所属的 Actor 系统
	system *System
	// mb 高吞吐量邮箱
	mb *mailbox.Mailbox[*Envelope]
	// receive 用户定义的消息处理函数
	receive ReceiveFunc
	// wal 用于持久化的预写日志
	wal *persistence.WAL

	// state Actor 的当前状态
	state atomic.Uint32

	// startOnce 确保 Start 只执行一次
	startOnce sync.Once
	// stopOnce 确保 Stop 只执行一次
	stopOnce sync.Once
	// done 在 Actor 停止时关闭的通道
	done chan struct{}
}

// BaseActorOptions 配置 BaseActor 实例。
type BaseActorOptions struct {
	// ID 可选的稳定标识符。如果为空，将生成新 ID。
	ID string
	// Name 可选的人类可读名称，注册到 System 注册表中。
	Name string
	// Mailbox 邮箱配置，控制容量/背压/持久化行为。
	Mailbox mailbox.Options[*Envelope]
	// Receive 消息处理函数。
	Receive ReceiveFunc
}

// NewBaseActor 构造一个绑定到 System 的 BaseActor。
// 如果 System 启用了持久化且未提供邮箱持久化钩子，
// 会自动为该 Actor 配置 WAL，并在启动时重放持久化的消息。
func NewBaseActor(sys *System, opts BaseActorOptions) *BaseActor {
	a := &BaseActor{
		id:      opts.ID,
		name:    opts.Name,
		system:  sys,
		receive: opts.Receive,
		done:    make(chan struct{}),
	}
	if a.id == "" {
		a.id = NewActorID()
	}
	if sys != nil && sys.persistDir != "" && opts.Mailbox.Persist == nil {
		_ = os.MkdirAll(sys.persistDir, 0755)
		wal, err := persistence.Open(sys.actorWALPath(a.id))
		if err == nil {
			a.wal = wal
			opts.Mailbox.Persist = wal.Append
			opts.Mailbox.EncodeForPersist = func(env *Envelope) ([]byte, bool) {
				b, err := sys.serializer.Marshal(env.Payload)
				return b, err == nil
			}
		}
	}
	a.mb = mailbox.New(opts.Mailbox)
	a.state.Store(uint32(ActorStateNew))
	return a
}

// ID 返回 Actor 的唯一标识符。
func (a *BaseActor) ID() string { return a.id }

// Name 返回 Actor 的注册名称（可能为空）。
func (a *BaseActor) Name() string { return a.name }

// Start 注册 Actor 并启动其邮箱处理循环。
// 如果启用了持久化，会先重放 WAL 中的消息。
// 此方法是幂等的，多次调用只会执行一次。
func (a *BaseActor) Start() {
	a.startOnce.Do(func() {
		if a.wal != nil && a.system != nil {
			if recs, err := a.wal.Replay(); err == nil {
				for _, b := range recs {
					v, err := a.system.serializer.Unmarshal(b)
					if err == nil {
						_ = a.mb.Push(MakeEnvelope(nil, 0, nil, v), mailbox.PushOptions{})
					}
				}
			}
		}
		if a.system != nil {
			a.system.registry.Register(a.id, a.name, a)
		}
		a.state.Store(uint32(ActorStateRunning))
		go a.run()
	})
}

// Stop 关闭邮箱，等待处理循环退出，并注销 Actor。
// 此方法是幂等的，多次调用只会执行一次。
func (a *BaseActor) Stop() {
	a.stopOnce.Do(func() {
		a.state.Store(uint32(ActorStateStopping))
		a.mb.Close()
		<-a.done
		a.state.Store(uint32(ActorStateStopped))
		if a.system != nil {
			a.system.registry.Unregister(a.id, a.name)
		}
		if a.wal != nil {
			_ = a.wal.Close()
		}
	})
}

// Receive 直接向用户处理函数投递消息。
// 正常使用中，消息通过 Tell/SendAsync/Ask 推送到邮箱。
// 此方法主要用于直接调用或测试。
func (a *BaseActor) Receive(msg any) {
	if a.receive == nil {
		return
	}
	a.receive(&Context{system: a.system, self: a, env: MakeEnvelope(nil, 0, nil, msg)}, msg)
}

// Send 是从该 Actor 向目标发送消息的便捷方法。
// 使用默认发送选项调用 System.Tell。
func (a *BaseActor) Send(target IActor, msg any) {
	if a.system == nil || target == nil {
		return
	}
	a.system.Tell(a, target, msg, SendOptions{})
}

// Enqueue 实现 Recipient 接口：把信封调度到本 Actor 的邮箱。
// 响应角色的信封走紧急通道。ec 提供限流和指标，
// 为 nil 时使用本 Actor 绑定的运行时。
func (a *BaseActor) Enqueue(env *Envelope, ec *System) error {
	sys := ec
	if sys == nil {
		sys = a.system
	}
	if sys != nil {
		if sys.limiter != nil {
			sys.limiter.Wait(1)
		}
		if sys.metrics != nil {
			sys.metrics.IncOut()
		}
	}
	return a.push(env, priorityOf(env), false)
}

// priorityOf 推导信封的邮箱优先级：响应角色总是紧急。
func priorityOf(env *Envelope) Priority {
	if env.MID.IsResponse() {
		return PriorityUrgent
	}
	return PriorityNormal
}

// push 将信封推入邮箱。这是内部消息投递的核心方法。
func (a *BaseActor) push(env *Envelope, pri Priority, persist bool) error {
	return a.mb.Push(env, mailbox.PushOptions{Urgent: pri != PriorityNormal, Persist: persist})
}

// run 是 Actor 的主处理循环。
// 从邮箱弹出信封并调用 handle 处理，直到邮箱关闭。
func (a *BaseActor) run() {
	defer close(a.done)
	for {
		env, ok := a.mb.Pop()
		if ok {
			a.handle(env)
			continue
		}
		if !a.mb.Wait() {
			return
		}
	}
}

// handle 处理单个信封。
// 响应角色的信封完成发起方挂起的 Future；
// 请求和普通消息交给用户处理函数，处理函数通过 Context
// 决定同步应答、提取 Promise 延迟应答、委托或不予理会。
// 包含 panic 恢复，发生 panic 时通知 System 并停止 Actor。
func (a *BaseActor) handle(env *Envelope) {
	defer func() {
		if r := recover(); r != nil {
			if a.system != nil {
				a.system.logger.Error("actor panic",
					zap.String("id", a.id),
					zap.String("name", a.name),
					zap.Any("reason", r))
				a.system.notifyFailure(a.id, r)
			}
			a.mb.Close()
			go a.Stop()
		}
	}()
	if a.system != nil && a.system.metrics != nil {
		a.system.metrics.IncIn()
	}
	if env.MID.IsResponse() {
		if a.system != nil {
			a.system.completeFuture(env)
		}
		return
	}
	if a.receive == nil {
		return
	}
	a.receive(&Context{system: a.system, self: a, env: env}, env.Payload)
}
