package persistence

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWALAppendReplay(t *testing.T) {
	dir := t.TempDir()
	w, err := Open(filepath.Join(dir, "a.wal"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()
	_ = w.Append([]byte("x"))
	_ = w.Append([]byte("yy"))
	recs, err := w.Replay()
	if err != nil || len(recs) != 2 || string(recs[0]) != "x" || string(recs[1]) != "yy" {
		t.Fatalf("replay: %v %#v", err, recs)
	}
	// 重放后可以继续追加
	_ = w.Append([]byte("zzz"))
	recs, err = w.Replay()
	if err != nil || len(recs) != 3 || string(recs[2]) != "zzz" {
		t.Fatalf("replay after append: %v %#v", err, recs)
	}
	_ = w.Close()
	if _, err := w.Replay(); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("expected closed err, got: %v", err)
	}
}

func TestWALAppendEdgeCases(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatalf("expected open error")
	}
	dir := t.TempDir()
	w, err := Open(filepath.Join(dir, "b.wal"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()
	if err := w.Append(nil); err != nil {
		t.Fatalf("append nil: %v", err)
	}
	_ = w.Close()
	if err := w.Append([]byte("x")); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("expected closed append err, got: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("double close: %v", err)
	}
}

func TestWALReplayTruncatedHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.wal")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	w, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()
	recs, err := w.Replay()
	if err != nil || len(recs) != 0 {
		t.Fatalf("expected empty replay: %v %#v", err, recs)
	}
}

func TestWALReplayZeroRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "d.wal")
	if err := os.WriteFile(path, []byte{0, 0, 0, 0}, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	w, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()
	recs, err := w.Replay()
	if err != nil || len(recs) != 0 {
		t.Fatalf("expected empty: %v %#v", err, recs)
	}
}

func TestWALReplayTruncatedPayload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "e.wal")
	if err := os.WriteFile(path, []byte{5, 0, 0, 0, 1, 2, 3}, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	w, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()
	if _, err := w.Replay(); err == nil {
		t.Fatalf("expected error")
	}
}
