package actor

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"sync/atomic"
	"time"
)

var (
	// processTag 进程启动时随机生成的 6 字节标签，
	// 保证不同进程产生的 Actor ID 互不冲突。
	processTag = func() string {
		b := make([]byte, 6)
		_, _ = rand.Read(b)
		return hex.EncodeToString(b)
	}()
	// actorSeq Actor ID 的进程内序号
	actorSeq atomic.Uint64
)

// NewActorID 生成全局唯一的 Actor ID：
// 纳秒时间戳(8B) + 进程内序号(8B) + 进程标签(6B)，共 44 个十六进制字符。
// 前缀含时间戳，ID 大致按创建时间排序。
func NewActorID() string {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], uint64(time.Now().UnixNano()))
	binary.BigEndian.PutUint64(b[8:], actorSeq.Add(1))
	return hex.EncodeToString(b[:]) + processTag
}
