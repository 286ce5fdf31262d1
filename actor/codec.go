package actor

import (
	"bytes"
	"encoding/gob"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// Serializer 把消息负载编解码为字节，供 WAL 落盘和远程传输使用。
type Serializer interface {
	// Marshal 将值编码为字节切片。
	Marshal(v any) ([]byte, error)
	// Unmarshal 从字节切片还原值。
	Unmarshal(b []byte) (any, error)
}

// GobSerializer 基于标准库 gob 的序列化器。
// gob 能还原具体 Go 类型，但只适用于 Go 进程之间；方法并发安全。
type GobSerializer struct {
	mu sync.Mutex
}

// Marshal 以 gob 编码 v。
func (s *GobSerializer) Marshal(v any) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal 以 gob 解码 b。
func (s *GobSerializer) Unmarshal(b []byte) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var v any
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// CborSerializer 是基于 CBOR（RFC 8949）的序列化器实现。
// 与 gob 不同，CBOR 是跨语言的自描述二进制格式，
// 适合持久化日志需要被其他工具读取、或与非 Go 节点互通的场景。
// 复合负载在解码后呈现为 map/切片等通用形态，不还原具体 Go 类型。
type CborSerializer struct{}

// Marshal 使用 CBOR 将值序列化为字节切片。
func (CborSerializer) Marshal(v any) ([]byte, error) {
	return cbor.Marshal(v)
}

// Unmarshal 使用 CBOR 将字节切片反序列化为值。
func (CborSerializer) Unmarshal(b []byte) (any, error) {
	var v any
	if err := cbor.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}
