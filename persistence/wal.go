package persistence

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"sync"
)

// WAL 邮箱持久化用的追加日志。
// 磁盘格式是连续的记录流，每条记录为 4 字节小端长度前缀加负载。
// 带 Persist 标志的消息入队前先落盘，Actor 启动时 Replay 恢复。
// 末尾残缺的长度前缀按日志结束处理，残缺的负载视为损坏。
type WAL struct {
	// mu 串行化所有文件操作
	mu sync.Mutex
	// path 日志文件路径
	path string
	// f 底层文件，Close 后置 nil
	f *os.File
}

// Open 打开（或创建）path 处的日志，随后的 Append 均为追加写。
func Open(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &WAL{path: path, f: f}, nil
}

// Close 关闭日志文件，重复调用无害。
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	f := w.f
	w.f = nil
	return f.Close()
}

// Append 追加一条记录。前缀和负载拼成一个缓冲区单次写出，
// 避免留下只有半条前缀的窗口。空负载直接忽略。
func (w *WAL) Append(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	rec := make([]byte, 4+len(b))
	binary.LittleEndian.PutUint32(rec, uint32(len(b)))
	copy(rec[4:], b)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return os.ErrClosed
	}
	_, err := w.f.Write(rec)
	return err
}

// Replay 从文件头按追加顺序读出全部负载，并把文件指针
// 移回末尾供继续追加。零长度记录被跳过。
func (w *WAL) Replay() ([][]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil, os.ErrClosed
	}
	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	var (
		out [][]byte
		hdr [4]byte
	)
	for {
		if _, err := io.ReadFull(w.f, hdr[:]); err != nil {
			if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, err
		}
		n := binary.LittleEndian.Uint32(hdr[:])
		if n == 0 {
			continue
		}
		payload := make([]byte, n)
		if _, err := io.ReadFull(w.f, payload); err != nil {
			return nil, err
		}
		out = append(out, payload)
	}
	_, _ = w.f.Seek(0, io.SeekEnd)
	return out, nil
}
