package actor

import (
	"sync"
	"sync/atomic"
	"time"
)

// RestartStrategy 决定子 Actor 失败后重启的范围。
type RestartStrategy uint8

const (
	// OneForOne 只重启失败的那个子 Actor
	OneForOne RestartStrategy = iota
	// OneForAll 任一子失败时重启全部子 Actor
	OneForAll
	// RestForOne 重启失败者以及在它之后启动的所有子 Actor
	RestForOne
)

// BackoffFunc 根据重试序号（从 0 起）给出重启前的等待时长。
type BackoffFunc func(retry int) time.Duration

// ExponentialBackoff 返回逐次翻倍、封顶于 max 的退避函数。
// base 或 max 非正时取默认值 50ms / 5s。
func ExponentialBackoff(base, max time.Duration) BackoffFunc {
	if base <= 0 {
		base = 50 * time.Millisecond
	}
	if max <= 0 {
		max = 5 * time.Second
	}
	return func(retry int) time.Duration {
		d := base << uint(retry)
		if d <= 0 || d > max {
			return max
		}
		return d
	}
}

// ChildFactory 构造一个新的子 Actor 实例，重启时被再次调用。
type ChildFactory func(sys *System) *BaseActor

// child 记录一个被监督子的工厂、名称和运行实例。
type child struct {
	name    string
	factory ChildFactory
	// actor 当前实例，重启后换成新实例
	actor *BaseActor
	// retries 已消耗的重启次数
	retries int
}

// SupervisorOptions 监督者配置。
type SupervisorOptions struct {
	// Strategy 重启范围，默认 OneForOne
	Strategy RestartStrategy
	// MaxRetries 单个子的重启上限，默认 10，超出后放弃该子
	MaxRetries int
	// Backoff 重启前的退避函数，默认 ExponentialBackoff(50ms, 5s)
	Backoff BackoffFunc
}

// Supervisor 订阅系统的失败通知，按策略重建崩溃的子 Actor。
// 重启只重建实例和邮箱；失败前已从信封提取出去的响应承诺
// 不受影响，投递时仍然指向原请求方。
type Supervisor struct {
	sys      *System
	strategy RestartStrategy
	maxRetry int
	backoff  BackoffFunc

	// mu 保护 kids
	mu sync.Mutex
	// kids 按 Spawn 顺序排列
	kids []child

	// restarts 已执行的重启总数
	restarts atomic.Uint64
}

// NewSupervisor 构造监督者并挂接到 sys 的失败通知上。
func NewSupervisor(sys *System, opts SupervisorOptions) *Supervisor {
	s := &Supervisor{
		sys:      sys,
		strategy: opts.Strategy,
		maxRetry: opts.MaxRetries,
		backoff:  opts.Backoff,
	}
	if s.maxRetry == 0 {
		s.maxRetry = 10
	}
	if s.backoff == nil {
		s.backoff = ExponentialBackoff(0, 0)
	}
	if sys != nil {
		sys.SubscribeFailures(s.onFailure)
	}
	return s
}

// Spawn 创建并启动一个被监督的子 Actor。
func (s *Supervisor) Spawn(name string, factory ChildFactory) *BaseActor {
	a := factory(s.sys)
	if a.name == "" {
		a.name = name
	}
	s.mu.Lock()
	s.kids = append(s.kids, child{name: name, factory: factory, actor: a})
	s.mu.Unlock()
	a.Start()
	return a
}

// RestartCount 返回累计重启次数。
func (s *Supervisor) RestartCount() uint64 {
	return s.restarts.Load()
}

// onFailure 收到失败通知后按策略挑出需要重启的子。
func (s *Supervisor) onFailure(actorID string, _ any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	failed := -1
	for i := range s.kids {
		if s.kids[i].actor != nil && s.kids[i].actor.id == actorID {
			failed = i
			break
		}
	}
	if failed < 0 {
		return
	}
	lo, hi := failed, failed+1
	switch s.strategy {
	case OneForAll:
		lo, hi = 0, len(s.kids)
	case RestForOne:
		hi = len(s.kids)
	}
	for i := lo; i < hi; i++ {
		go s.restartChild(i)
	}
}

// restartChild 退避等待后停掉旧实例并用工厂重建。
// 超过重启上限的子被放弃，不再重建。
func (s *Supervisor) restartChild(i int) {
	s.mu.Lock()
	if i < 0 || i >= len(s.kids) {
		s.mu.Unlock()
		return
	}
	s.kids[i].retries++
	c := s.kids[i]
	s.mu.Unlock()
	if c.retries > s.maxRetry {
		return
	}

	time.Sleep(s.backoff(c.retries - 1))
	if c.actor != nil {
		c.actor.Stop()
	}
	a := c.factory(s.sys)
	if a.name == "" {
		a.name = c.name
	}
	a.Start()

	s.mu.Lock()
	s.kids[i].actor = a
	s.mu.Unlock()

	s.restarts.Add(1)
	if s.sys != nil && s.sys.metrics != nil {
		s.sys.metrics.IncRestart()
	}
}
