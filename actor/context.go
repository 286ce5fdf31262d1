package actor

// Context 提供消息处理期间的执行上下文信息。
// 它持有当前 Actor 的引用和正在处理的入站信封，
// 是提取 ResponsePromise、同步应答和委托转发的入口。
// Context 在每次消息处理时创建，不应在消息处理完成后保存——
// 需要跨调用栈延迟应答时，保存 MakePromise 返回的 Promise。
type Context struct {
	// system 指向所属的 Actor 系统，用于发送消息和访问系统级功能
	system *System
	// self 指向当前处理消息的 Actor 实例
	self *BaseActor
	// env 正在处理的入站信封
	env *Envelope
}

// Self 返回当前处理消息的 Actor 实例。
func (c *Context) Self() *BaseActor { return c.self }

// Sender 返回应收到回复的接收者。
// 信封被消费（MakePromise/Respond/Delegate/Relay）后返回 nil。
func (c *Context) Sender() Recipient {
	if c.env == nil {
		return nil
	}
	return c.env.Sender
}

// MID 返回当前信封的关联 ID。
// 即发即忘消息的 ID 无效，此时任何应答操作都是空操作。
func (c *Context) MID() MessageID {
	if c.env == nil {
		return 0
	}
	return c.env.MID
}

// MakePromise 消费信封并返回延迟回复句柄。
// Promise 可以存入表或闭包，在之后任意一次消息处理中投递；
// 同一信封只能消费一次，重复调用得到永久无效的 Promise。
func (c *Context) MakePromise() *ResponsePromise {
	return c.env.ExtractPromise(c.self)
}

// Respond 立即应答当前请求的便捷方法。
// err 非 nil 时作为错误负载投递，否则投递 value。
// 对即发即忘消息或已消费的信封不执行任何操作。
func (c *Context) Respond(value any, err error) {
	p := c.MakePromise()
	if err != nil {
		p.DeliverError(err)
		return
	}
	p.Deliver(value)
}

// Delegate 把当前请求重新调度给 target：发送者、关联 ID 和转发链
// 原样随行，target 直接应答发起方，本 Actor 退出应答路径。
// 信封随之被消费。对已消费的信封返回 ErrEnvelopeSpent。
func (c *Context) Delegate(target Recipient, msg any) error {
	sender, stages, mid, ok := c.env.consume()
	if !ok {
		return ErrEnvelopeSpent
	}
	return target.Enqueue(MakeEnvelope(sender, mid, stages, msg), c.system)
}

// Relay 与 Delegate 类似，但把本 Actor 压入转发链：
// target 的回复会先回到本 Actor（作为一条携带原 ID 的请求），
// 本 Actor 获得检查或改写回复的机会，再决定继续投递。
func (c *Context) Relay(target Recipient, msg any) error {
	sender, stages, mid, ok := c.env.consume()
	if !ok {
		return ErrEnvelopeSpent
	}
	if c.self != nil {
		stages = append(stages, c.self)
	}
	return target.Enqueue(MakeEnvelope(sender, mid, stages, msg), c.system)
}
