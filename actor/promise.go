package actor

// ResponsePromise 是延迟回复句柄：当处理函数无法同步应答一个请求时，
// 从入站信封中提取 Promise，之后在任意时刻（包括完全不同的调用栈）
// 恰好投递一次回复。
//
// Promise 拥有从信封移出的发送者和转发链，以及按值复制的关联 ID，
// 因此可以自由存入表、切片或闭包中，不依赖创建它的调用栈。
//
// Promise 不是并发安全的：运行时保证同一 Actor 的消息串行处理，
// 跨 goroutine 共享同一个 Promise 由调用方自行负责。
//
// 丢弃一个从未投递的 Promise 是受支持的静默取消——
// 发起方只是收不到回复，这在本层不是错误。
type ResponsePromise struct {
	// self 所属 Actor，仅用作投递时的执行上下文，不被拥有
	self *BaseActor
	// source 回复的最终接收者，从信封移入后独占持有
	source Recipient
	// stages 尚未走完的转发链，尾部是下一跳
	stages []Recipient
	// mid 关联 ID，在信封标记已应答之前按值复制
	mid MessageID
	// done 一次性投递标志，投递后任何调用都不再产生效果
	done bool
}

// Valid 报告该 Promise 是否还能投递。
// 由即发即忘请求构造的 Promise 永久无效；已投递的 Promise 同样失效。
func (p *ResponsePromise) Valid() bool {
	return p != nil && p.mid.Valid() && !p.done
}

// MID 返回 Promise 持有的关联 ID 副本。
func (p *ResponsePromise) MID() MessageID {
	if p == nil {
		return 0
	}
	return p.mid
}

// Deliver 投递一个成功负载。
// 转发链为空时向发送者做最终投递（响应角色 ID）；
// 否则弹出尾部的下一跳，把缩短后的链连同原 ID 一起转发过去，
// 下一跳获得构造自己 Promise 的全新机会并重复同一算法。
func (p *ResponsePromise) Deliver(payload any) {
	p.deliverImpl(payload)
}

// DeliverError 把错误包装为普通负载并走与成功值相同的投递路径。
// 本层没有独立的错误通道，成功与失败仅由负载内容区分。
func (p *ResponsePromise) DeliverError(err error) {
	if !p.Valid() {
		return
	}
	p.deliverImpl(&ErrorReply{Err: err})
}

// deliverImpl 是统一的投递算法。
// 投递即消费：done 置位且 source/stages 移出，从结构上排除第二次入队。
func (p *ResponsePromise) deliverImpl(payload any) {
	if !p.Valid() {
		return
	}
	p.done = true
	source := p.source
	stages := p.stages
	p.source = nil
	p.stages = nil

	var sys *System
	if p.self != nil {
		sys = p.self.system
	}
	if len(stages) == 0 {
		// 最终投递：当前 Actor 是终点应答者
		if source == nil {
			return
		}
		var from Recipient
		if p.self != nil {
			from = p.self
		}
		if sys != nil && sys.metrics != nil {
			sys.metrics.IncReply()
		}
		_ = source.Enqueue(MakeEnvelope(from, p.mid.ResponseID(), nil, payload), sys)
		return
	}
	// 转发一跳：请求尚未应答，ID 保持不变
	next := stages[len(stages)-1]
	stages = stages[:len(stages)-1]
	if sys != nil && sys.metrics != nil {
		sys.metrics.IncForward()
	}
	_ = next.Enqueue(MakeEnvelope(source, p.mid, stages, payload), sys)
}
