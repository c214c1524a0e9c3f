// Package cachex provides file-backed caches with a freshness window.
package cachex

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zlib"
	"github.com/vmihailenco/msgpack/v5"
)

// Manager memoizes one value of type T in memory and mirrors it to a
// compressed msgpack file. The file is considered fresh while its mtime is
// within ttl; a ttl of zero or less never expires.
type Manager[T any] struct {
	path string
	ttl  time.Duration

	mu     sync.Mutex
	loaded bool
	value  T
}

func New[T any](path string, ttl time.Duration) *Manager[T] {
	return &Manager[T]{path: path, ttl: ttl}
}

// GetOrInit returns the cached value, reading the backing file when fresh and
// calling compute otherwise. A corrupt backing file counts as a miss.
func (m *Manager[T]) GetOrInit(ctx context.Context, compute func(context.Context) (T, error)) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return m.value, nil
	}
	if m.fresh() {
		value, err := m.read()
		if err == nil {
			m.value = value
			m.loaded = true
			return m.value, nil
		}
	}
	return m.recompute(ctx, compute)
}

// Refresh bypasses both the memoized value and the backing file.
func (m *Manager[T]) Refresh(ctx context.Context, compute func(context.Context) (T, error)) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recompute(ctx, compute)
}

// Age reports how old the backing file is. ok is false when no file exists.
func (m *Manager[T]) Age() (time.Duration, bool) {
	info, err := os.Stat(m.path)
	if err != nil {
		return 0, false
	}
	return time.Since(info.ModTime()), true
}

// Clear drops the memoized value and removes the backing file.
func (m *Manager[T]) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = false
	var zero T
	m.value = zero
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}

func (m *Manager[T]) recompute(ctx context.Context, compute func(context.Context) (T, error)) (T, error) {
	value, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := m.write(value); err != nil {
		var zero T
		return zero, err
	}
	m.value = value
	m.loaded = true
	return m.value, nil
}

func (m *Manager[T]) fresh() bool {
	info, err := os.Stat(m.path)
	if err != nil {
		return false
	}
	if m.ttl <= 0 {
		return true
	}
	return time.Since(info.ModTime()) <= m.ttl
}

func (m *Manager[T]) read() (T, error) {
	var value T
	file, err := os.Open(m.path)
	if err != nil {
		return value, fmt.Errorf("open cache file: %w", err)
	}
	defer file.Close()

	zr, err := zlib.NewReader(file)
	if err != nil {
		return value, fmt.Errorf("zlib reader: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return value, fmt.Errorf("read cache file: %w", err)
	}
	if err := msgpack.Unmarshal(raw, &value); err != nil {
		return value, fmt.Errorf("decode cache file: %w", err)
	}
	return value, nil
}

func (m *Manager[T]) write(value T) error {
	raw, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return fmt.Errorf("compress cache value: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress cache value: %w", err)
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("prepare cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(m.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cache temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("commit cache file: %w", err)
	}
	return nil
}
