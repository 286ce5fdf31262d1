package actor

// Envelope 是从邮箱取出的一个工作单元：发送者、关联 ID、转发链和负载。
//
// 信封的角色由 MID 决定，无需额外的类型字节：
//   - MID 无效：即发即忘的普通消息
//   - MID 为请求角色：请求，处理函数可以从中提取 ResponsePromise
//   - MID 为响应角色：回复，用于完成发起方挂起的 Future
type Envelope struct {
	// Sender 最终应收到回复的接收者，在被消费前由信封独占持有
	Sender Recipient
	// MID 关联 ID，每一跳转发中保持不变
	MID MessageID
	// Stages 转发链，后进先出：尾部元素是朝向发起方的下一跳。
	// 链为空表示当前 Actor 就是最终应答者。
	Stages []Recipient
	// Payload 实际消息内容
	Payload any

	// spent 墓碑标志：信封被消费后不可再次消费
	spent bool
}

// MakeEnvelope 构造一个信封。
// stages 的所有权随信封转移，调用方不应再持有该切片。
func MakeEnvelope(sender Recipient, mid MessageID, stages []Recipient, payload any) *Envelope {
	return &Envelope{Sender: sender, MID: mid, Stages: stages, Payload: payload}
}

// Spent 报告信封是否已被消费。
func (e *Envelope) Spent() bool { return e != nil && e.spent }

// consume 将 Sender 和 Stages 的所有权移出信封，返回移出前的 MID 副本。
// 副作用：信封置为已消费，并在信封自己的 MID 副本上调用 MarkAsAnswered，
// 通知邮箱/请求跟踪层该请求槽位已被认领——与之后是否真正投递无关。
// 对已消费的信封返回 ok=false。
func (e *Envelope) consume() (sender Recipient, stages []Recipient, mid MessageID, ok bool) {
	if e == nil || e.spent {
		return nil, nil, 0, false
	}
	sender = e.Sender
	stages = e.Stages
	mid = e.MID
	e.Sender = nil
	e.Stages = nil
	e.spent = true
	e.MID.MarkAsAnswered()
	return sender, stages, mid, true
}

// ExtractPromise 消费信封并构造一个 ResponsePromise。
// Sender 和 Stages 移入 Promise，信封随即作废；再次调用返回永久无效的
// Promise（等价于静默丢弃请求）。self 仅作为执行上下文，不被 Promise 拥有。
func (e *Envelope) ExtractPromise(self *BaseActor) *ResponsePromise {
	sender, stages, mid, ok := e.consume()
	if !ok {
		return &ResponsePromise{}
	}
	return &ResponsePromise{self: self, source: sender, stages: stages, mid: mid}
}
