package actor

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync/atomic"
	"time"
)

// Metrics 收集 Actor 系统的运行时指标。
// 除了消息进出计数和延迟直方图之外，还跟踪请求/响应关联层的
// 指标：终端响应投递数（replies）和转发链中转数（forwards）。
// 所有计数器都使用原子操作，并发访问无锁竞争。
// 输出格式兼容 Prometheus 文本协议，通过 /metrics 端点暴露。
type Metrics struct {
	// startedAtUnix 系统启动时间的 Unix 时间戳
	startedAtUnix atomic.Int64
	// msgOut 发出的消息总数
	msgOut atomic.Uint64
	// msgIn 接收的消息总数
	msgIn atomic.Uint64
	// replies 终端响应投递总数（转发链为空时的直达响应）
	replies atomic.Uint64
	// forwards 沿转发链中转的响应总数
	forwards atomic.Uint64
	// restarts Actor 重启的总次数
	restarts atomic.Uint64

	// latBuckets 请求-响应延迟直方图的桶边界
	latBuckets []time.Duration
	// latCounts 每个延迟桶的计数
	latCounts []atomic.Uint64
	// latSumNS 延迟总和（纳秒）
	latSumNS atomic.Uint64
}

// NewMetrics 创建一个新的指标收集器。
// 延迟桶覆盖 10 微秒到 100 毫秒，适合进程内与局域网内的请求往返。
func NewMetrics() *Metrics {
	b := []time.Duration{
		10 * time.Microsecond,
		50 * time.Microsecond,
		100 * time.Microsecond,
		500 * time.Microsecond,
		1 * time.Millisecond,
		2 * time.Millisecond,
		5 * time.Millisecond,
		10 * time.Millisecond,
		20 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
	}
	return &Metrics{
		latBuckets: b,
		latCounts:  make([]atomic.Uint64, len(b)+1),
	}
}

// MarkStart 记录系统启动时间，仅首次调用生效。
func (m *Metrics) MarkStart() {
	if m.startedAtUnix.Load() == 0 {
		m.startedAtUnix.Store(time.Now().Unix())
	}
}

// IncOut 增加发出消息计数。
func (m *Metrics) IncOut() { m.msgOut.Add(1) }

// IncIn 增加接收消息计数。
func (m *Metrics) IncIn() { m.msgIn.Add(1) }

// IncReply 增加终端响应投递计数。
func (m *Metrics) IncReply() { m.replies.Add(1) }

// IncForward 增加响应中转计数。
func (m *Metrics) IncForward() { m.forwards.Add(1) }

// IncRestart 增加 Actor 重启计数。
func (m *Metrics) IncRestart() { m.restarts.Add(1) }

// ObserveLatency 记录一次请求-响应延迟观测值。
func (m *Metrics) ObserveLatency(d time.Duration) {
	if d < 0 {
		return
	}
	m.latSumNS.Add(uint64(d.Nanoseconds()))
	i := sort.Search(len(m.latBuckets), func(i int) bool { return d <= m.latBuckets[i] })
	m.latCounts[i].Add(1)
}

// EnableMetrics 启用指标收集和 HTTP 暴露端点。
// 指标在指定地址（默认 :9090）的 /metrics 路径下以 Prometheus 格式暴露。
// 此方法应在 System 创建后、Actor 启动前调用。
func (s *System) EnableMetrics(addr string) error {
	if addr == "" {
		addr = ":9090"
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	s.metrics.MarkStart()
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) { s.writeMetrics(w) })
	go func() { _ = http.ListenAndServe(addr, mux) }()
	return nil
}

// writeMetrics 将指标以 Prometheus 文本格式写入 HTTP 响应。
func (s *System) writeMetrics(w http.ResponseWriter) {
	if s.metrics == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	now := time.Now()
	snap := s.registry.Snapshot()
	var backlog int64
	for _, a := range snap {
		if ba, ok := a.(*BaseActor); ok && ba.mb != nil {
			backlog += ba.mb.Len()
		}
	}

	_, _ = fmt.Fprintln(w, "# TYPE huixinactor_messages_out_total counter")
	_, _ = fmt.Fprintln(w, "huixinactor_messages_out_total", s.metrics.msgOut.Load())
	_, _ = fmt.Fprintln(w, "# TYPE huixinactor_messages_in_total counter")
	_, _ = fmt.Fprintln(w, "huixinactor_messages_in_total", s.metrics.msgIn.Load())
	_, _ = fmt.Fprintln(w, "# TYPE huixinactor_replies_total counter")
	_, _ = fmt.Fprintln(w, "huixinactor_replies_total", s.metrics.replies.Load())
	_, _ = fmt.Fprintln(w, "# TYPE huixinactor_forwards_total counter")
	_, _ = fmt.Fprintln(w, "huixinactor_forwards_total", s.metrics.forwards.Load())
	_, _ = fmt.Fprintln(w, "# TYPE huixinactor_mailbox_backlog gauge")
	_, _ = fmt.Fprintln(w, "huixinactor_mailbox_backlog", backlog)
	_, _ = fmt.Fprintln(w, "# TYPE huixinactor_restarts_total counter")
	_, _ = fmt.Fprintln(w, "huixinactor_restarts_total", s.metrics.restarts.Load())

	_, _ = fmt.Fprintln(w, "# TYPE huixinactor_latency_seconds histogram")
	var cum uint64
	for i, b := range s.metrics.latBuckets {
		cum += s.metrics.latCounts[i].Load()
		_, _ = fmt.Fprintln(w, "huixinactor_latency_seconds_bucket{le=\""+strconv.FormatFloat(b.Seconds(), 'f', -1, 64)+"\"}", cum)
	}
	cum += s.metrics.latCounts[len(s.metrics.latBuckets)].Load()
	_, _ = fmt.Fprintln(w, "huixinactor_latency_seconds_bucket{le=\"+Inf\"}", cum)
	_, _ = fmt.Fprintln(w, "huixinactor_latency_seconds_sum", float64(s.metrics.latSumNS.Load())/1e9)
	_, _ = fmt.Fprintln(w, "huixinactor_latency_seconds_count", cum)

	_, _ = fmt.Fprintln(w, "# TYPE huixinactor_uptime_seconds gauge")
	started := s.metrics.startedAtUnix.Load()
	if started == 0 {
		started = now.Unix()
	}
	_, _ = fmt.Fprintln(w, "huixinactor_uptime_seconds", now.Sub(time.Unix(started, 0)).Seconds())
}
