package actor

// Recipient 是可寻址投递目标的能力引用。
// 它可能解析为本地 Actor 或远程节点上的 Actor，对关联子系统不透明。
//
// 关联/转发/投递逻辑只依赖此接口，从不依赖具体的 Actor 或传输类型，
// 也从不修改 Recipient 本身——它只是一个引用，不被任何 Promise 拥有。
type Recipient interface {
	// ID 返回目标的唯一标识符，用于远程路由时序列化转发链。
	ID() string
	// Enqueue 将信封调度到目标处进行投递/处理。
	// ec 是执行上下文，提供限流、指标和远程路由；
	// 传入 nil 时实现应回退到自身绑定的运行时。
	// 投递失败（如目标不存在）通过返回值报告，本子系统不重试。
	Enqueue(env *Envelope, ec *System) error
}
