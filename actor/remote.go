package actor

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// gobCodec 让 gRPC 直接走 gob 线格式，只有 Go 节点之间可以互通。
type gobCodec struct{}

func (g gobCodec) Name() string { return "gob" }

func (g gobCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g gobCodec) Unmarshal(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// remoteEnvelope 是信封的跨节点表示。
// 关联 ID 原样携带，转发链降维为接收者 ID 列表，
// 在接收节点上重建为 ActorRef。
type remoteEnvelope struct {
	// ToID 目标 Actor 的 ID
	ToID string
	// FromID 发送者（回复最终接收者）的 ID
	FromID string
	// MID 关联 ID 的原始位表示
	MID uint64
	// Stages 转发链的接收者 ID 列表，尾部是下一跳
	Stages []string
	// Payload 序列化后的消息内容
	Payload []byte
}

// remoteAck 对端返回的投递结果。
type remoteAck struct {
	OK  bool
	Err string
}

// RemoteServer 远端信封投递服务的接口形状，供 ServiceDesc 校验。
type RemoteServer interface {
	Deliver(context.Context, *remoteEnvelope) (*remoteAck, error)
}

// remoteTransport 跨节点传输层：一个入站 gRPC 服务端
// 加一个按地址复用的出站连接池。
type remoteTransport struct {
	sys    *System
	server *grpc.Server
	lis    net.Listener
	// addr 实际监听地址（解析掉 :0 之后）
	addr string

	// mu 保护 conns
	mu sync.Mutex
	// conns 出站连接池，按对端地址索引
	conns map[string]*grpc.ClientConn
}

// EnableRemote 打开跨节点通信：在 listenAddr（默认 :50051）
// 起 gRPC 服务端收信封；配合 SetLocation 即可把投递路由到远端。
// 重复调用是无害的空操作。
func (s *System) EnableRemote(listenAddr string) error {
	if listenAddr == "" {
		listenAddr = ":50051"
	}
	if s.remote != nil {
		return nil
	}
	encoding.RegisterCodec(gobCodec{})
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	rt := &remoteTransport{
		sys:   s,
		lis:   lis,
		addr:  lis.Addr().String(),
		conns: make(map[string]*grpc.ClientConn),
	}
	rt.server = grpc.NewServer(grpc.ForceServerCodec(gobCodec{}))
	rt.register(rt.server)
	s.remote = rt
	s.logger.Info("remote transport listening",
		zap.String("addr", rt.addr),
		zap.String("instance", s.instanceID))
	go func() { _ = rt.server.Serve(lis) }()
	return nil
}

// RemoteAddr 返回实际监听地址，未启用时为空串。
func (s *System) RemoteAddr() string {
	if s.remote == nil {
		return ""
	}
	return s.remote.addr
}

// StopRemote 关停服务端并断开全部出站连接。
func (s *System) StopRemote() {
	rt := s.remote
	if rt == nil {
		return
	}
	s.remote = nil
	rt.server.Stop()
	_ = rt.lis.Close()
	rt.mu.Lock()
	for _, c := range rt.conns {
		_ = c.Close()
	}
	rt.conns = nil
	rt.mu.Unlock()
}

// SetLocation 登记某个 Actor 所在的远端地址。
// 本地注册表查不到的投递目标会按这里的登记走远程；
// 传空地址表示撤销登记。
func (s *System) SetLocation(actorID, addr string) {
	if actorID == "" {
		return
	}
	s.locMu.Lock()
	if s.locations == nil {
		s.locations = make(map[string]string)
	}
	if addr == "" {
		delete(s.locations, actorID)
	} else {
		s.locations[actorID] = addr
	}
	s.locMu.Unlock()
}

// locationOf 查 Actor 的远端登记地址。
func (s *System) locationOf(actorID string) (string, bool) {
	s.locMu.RLock()
	addr, ok := s.locations[actorID]
	s.locMu.RUnlock()
	return addr, ok
}

// remoteDeliver 把线格式信封发往 addr，5 秒内未确认视为失败。
func (s *System) remoteDeliver(addr string, env *remoteEnvelope) error {
	if s.remote == nil {
		return errors.New("remote not enabled")
	}
	conn, err := s.remote.conn(addr)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var ack remoteAck
	err = conn.Invoke(ctx, "/huixinactor.Remote/Deliver", env, &ack, grpc.ForceCodec(gobCodec{}))
	if err != nil {
		return err
	}
	if !ack.OK && ack.Err != "" {
		return errors.New(ack.Err)
	}
	return nil
}

// conn 取连接池中的连接，缺失时新建并缓存。
func (rt *remoteTransport) conn(addr string) (*grpc.ClientConn, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if c, ok := rt.conns[addr]; ok {
		return c, nil
	}
	cc, err := grpc.Dial(addr, grpc.WithInsecure(), grpc.WithDefaultCallOptions(grpc.ForceCodec(gobCodec{})))
	if err != nil {
		return nil, err
	}
	rt.conns[addr] = cc
	return cc, nil
}

// register 手工注册 Deliver 方法的 ServiceDesc。
func (rt *remoteTransport) register(srv *grpc.Server) {
	srv.RegisterService(&grpc.ServiceDesc{
		ServiceName: "huixinactor.Remote",
		HandlerType: (*RemoteServer)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "Deliver",
				Handler: func(s any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
					var in remoteEnvelope
					if err := dec(&in); err != nil {
						return nil, err
					}
					return rt.Deliver(ctx, &in)
				},
			},
		},
		Streams:  nil,
		Metadata: "gob",
	}, rt)
}

// Deliver 处理接收到的远程信封。
// 反序列化负载，重建发送者引用和转发链，再投递到本地 Actor。
func (rt *remoteTransport) Deliver(_ context.Context, in *remoteEnvelope) (*remoteAck, error) {
	msg, err := rt.sys.serializer.Unmarshal(in.Payload)
	if err != nil {
		return &remoteAck{OK: false, Err: err.Error()}, nil
	}
	a, ok := rt.sys.registry.Get(in.ToID)
	if !ok {
		return &remoteAck{OK: false, Err: ErrActorNotFound.Error()}, nil
	}
	var sender Recipient
	if in.FromID != "" {
		sender = rt.sys.Ref(in.FromID)
	}
	var stages []Recipient
	if len(in.Stages) > 0 {
		stages = make([]Recipient, 0, len(in.Stages))
		for _, id := range in.Stages {
			stages = append(stages, rt.sys.Ref(id))
		}
	}
	env := MakeEnvelope(sender, MessageID(in.MID), stages, msg)
	if ba, ok := a.(*BaseActor); ok {
		_ = ba.push(env, priorityOf(env), false)
		return &remoteAck{OK: true}, nil
	}
	a.Receive(msg)
	return &remoteAck{OK: true}, nil
}
