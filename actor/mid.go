package actor

import "sync/atomic"

// MessageID 是请求-响应关联令牌，一个打包了数值标识和角色标志的 64 位值。
//
// 位布局：
//   - bit 63: 响应角色标志，区分请求和响应
//   - bit 62: 已应答标志，信封被消费为 Promise 时置位
//   - bit 0..61: 数值标识，0 表示无效（即发即忘，不期待回复）
//
// MessageID 在每一跳转发中保持不变，仅在最终投递时翻转为响应角色。
type MessageID uint64

const (
	// midResponseFlag 响应角色标志位
	midResponseFlag MessageID = 1 << 63
	// midAnsweredFlag 已应答标志位
	midAnsweredFlag MessageID = 1 << 62
	// midNumMask 数值标识掩码
	midNumMask MessageID = midAnsweredFlag - 1
)

// requestIDCounter 全局请求 ID 计数器，保证进程内不重复。
var requestIDCounter atomic.Uint64

// NewRequestID 生成一个新的请求角色 MessageID。
// 数值部分来自全局递增计数器，永不为 0。
func NewRequestID() MessageID {
	n := requestIDCounter.Add(1)
	return MessageID(n) & midNumMask
}

// Valid 报告该 ID 是否期待回复。
// 数值部分为 0 表示即发即忘，此时所有投递操作都是空操作。
func (m MessageID) Valid() bool { return m&midNumMask != 0 }

// IsResponse 报告该 ID 是否为响应角色。
func (m MessageID) IsResponse() bool { return m&midResponseFlag != 0 }

// IsRequest 报告该 ID 是否为有效的请求角色。
func (m MessageID) IsRequest() bool { return m.Valid() && !m.IsResponse() }

// IsAnswered 报告该 ID 对应的请求槽位是否已被认领。
func (m MessageID) IsAnswered() bool { return m&midAnsweredFlag != 0 }

// Num 返回去除标志位后的数值标识。
// 请求和其对应的响应携带相同的数值标识，挂起表按此值索引。
func (m MessageID) Num() uint64 { return uint64(m & midNumMask) }

// ResponseID 返回请求角色 ID 对应的响应角色 ID：
// 数值标识相同，响应标志置位，已应答标志清除。
// 在响应角色或无效 ID 上调用时返回无效 ID 0，
// 调用方应先检查 Valid。
func (m MessageID) ResponseID() MessageID {
	if !m.IsRequest() {
		return 0
	}
	return (m & midNumMask) | midResponseFlag
}

// MarkAsAnswered 记录该请求槽位已被认领用于应答。
// 幂等；在信封被消费为 ResponsePromise 时对信封持有的副本调用，
// 与 Promise 之后是否真正投递无关。
func (m *MessageID) MarkAsAnswered() { *m |= midAnsweredFlag }
