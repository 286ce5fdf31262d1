package actor

import "time"

// IActor 是 Actor 的最小接口，定义生命周期和消息处理能力。
//
// 实现应该是并发安全的，以支持 Send 调用，
// 而 Receive 通常在 Actor 自己的单线程循环中执行。
type IActor interface {
	// Start 启动 Actor，开始处理消息。
	Start()
	// Stop 停止 Actor，停止接收和处理消息。
	Stop()
	// Receive 处理接收到的消息。
	Receive(msg any)
	// Send 向目标 Actor 发送消息。
	Send(target IActor, msg any)
}

// Priority 控制邮箱中的消息处理顺序。
// 优先级较高的消息会被优先处理。
type Priority uint8

const (
	// PriorityNormal 默认优先级，普通消息通道。
	PriorityNormal Priority = iota
	// PriorityUrgent 紧急优先级，优先于普通消息处理。
	// 响应角色的信封总是走紧急通道。
	PriorityUrgent
)

// PriorityMessage 包装任意消息并指定显式优先级。
type PriorityMessage struct {
	// Priority 消息的优先级
	Priority Priority
	// Msg 实际消息内容
	Msg any
}

// Reply 是发起方看到的请求结果，由挂起表在响应到达时构造。
type Reply struct {
	// MID 响应角色的关联 ID
	MID MessageID
	// Value 响应值
	Value any
	// Err 响应错误（如果有）
	Err error
}

// ErrorReply 把应用层错误作为普通负载在回复路径上传递。
// 对关联子系统而言它与任何成功负载结构上无异，区别只在内容。
type ErrorReply struct {
	// Err 被传递的错误
	Err error
}

// ActorState 描述 Actor 实例的生命周期状态。
type ActorState uint8

const (
	// ActorStateNew 表示 Actor 尚未启动。
	ActorStateNew ActorState = iota
	// ActorStateRunning 表示 Actor 循环正在运行。
	ActorStateRunning
	// ActorStateStopping 表示已请求停止。
	ActorStateStopping
	// ActorStateStopped 表示 Actor 已完全停止。
	ActorStateStopped
)

// SendOptions 控制 Tell/Ask 操作的投递语义。
type SendOptions struct {
	// Priority 消息优先级
	Priority Priority
	// Persist 是否持久化此消息
	Persist bool
	// Timeout 请求超时时间（用于 Ask）
	Timeout time.Duration
	// OnComplete 完成时的回调函数
	OnComplete func(*Reply)
	// AllowDegrade 是否允许同步请求降级为异步
	// 当系统饱和时，允许降级可以避免阻塞
	AllowDegrade bool
	// Via 预置的转发链：回复在到达发起方之前依次经过这些接收者
	// （尾部元素是离应答者最近的一跳）。
	Via []Recipient
}
