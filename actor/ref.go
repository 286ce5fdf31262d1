package actor

// ActorRef 是对 Actor 的轻量级引用，同时实现 IActor 和 Recipient 接口。
// 它只持有 Actor ID 和 System 引用，不包含实际的 Actor 状态。
// ActorRef 可用于向远程 Actor 或尚未创建的 Actor 发送消息：
// 作为投递目标时，信封先在本地注册表解析，失败后再按已知位置远程路由。
type ActorRef struct {
	// sys 指向所属的 Actor 系统
	sys *System
	// id 目标 Actor 的唯一标识符
	id string
}

// ID 返回引用的 Actor ID。
func (r *ActorRef) ID() string { return r.id }

// Start 是空操作，ActorRef 不需要启动。
func (r *ActorRef) Start() { _ = r.id }

// Stop 是空操作，ActorRef 不需要停止。
func (r *ActorRef) Stop() { _ = r.id }

// Receive 是空操作，ActorRef 不能直接接收消息。
func (r *ActorRef) Receive(_ any) { _ = r.id }

// Send 向目标 Actor 发送消息。
// 通过 System 的 Tell 方法实现消息投递。
func (r *ActorRef) Send(target IActor, msg any) {
	if r.sys == nil {
		return
	}
	_ = r.sys.Tell(nil, target, msg, SendOptions{})
}

// Enqueue 实现 Recipient 接口：把信封投递到引用的 Actor。
// ec 为 nil 时使用引用绑定的 System 解析。
func (r *ActorRef) Enqueue(env *Envelope, ec *System) error {
	sys := ec
	if sys == nil {
		sys = r.sys
	}
	if sys == nil {
		return ErrActorNotFound
	}
	return sys.deliverEnvelope(r.id, env, PriorityNormal, false)
}

// Ref 创建一个指向指定 ID 的 ActorRef。
// 返回的 ActorRef 可用于向该 ID 对应的 Actor 发送消息，
// 无论 Actor 是本地的还是远程的。
func (s *System) Ref(id string) *ActorRef { return &ActorRef{sys: s, id: id} }
