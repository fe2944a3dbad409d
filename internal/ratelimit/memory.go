package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/findworkai/aigate/internal/constants"
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// rateWindow 代表单个标识符的时间戳序列
type rateWindow struct {
	stamps []int64
}

// MemoryStore 代表进程内的窗口存储
// 设置容量时按最近一次检查的先后顺序淘汰最久未使用的标识符
type MemoryStore struct {
	mu       sync.Mutex
	windows  *simplelru.LRU[string, *rateWindow]
	onEvict  func(key string)
	removing bool // 主动删除时不触发淘汰回调
	closed   bool
}

// NewMemoryStore 创建内存存储，maxKeys <= 0 表示不限制标识符数量
func NewMemoryStore(maxKeys int, onEvict func(key string)) (*MemoryStore, error) {
	if maxKeys <= 0 {
		maxKeys = math.MaxInt
	}

	s := &MemoryStore{onEvict: onEvict}
	windows, err := simplelru.NewLRU[string, *rateWindow](maxKeys, s.evicted)
	if err != nil {
		return nil, err
	}
	s.windows = windows

	return s, nil
}

// evicted 是 LRU 的淘汰回调，调用方已持有锁
func (s *MemoryStore) evicted(key string, _ *rateWindow) {
	if s.removing || s.onEvict == nil {
		return
	}
	s.onEvict(key)
}

// Update 在全局锁内完成读取、计算和写回
func (s *MemoryStore) Update(_ context.Context, key string, _ time.Duration, fn UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	w, ok := s.windows.Get(key)
	var current []int64
	if ok {
		current = w.stamps
	}

	next := fn(current)

	switch {
	case len(next) == 0:
		if ok {
			s.remove(key)
		}
	case ok:
		w.stamps = next
	default:
		s.windows.Add(key, &rateWindow{stamps: next})
	}

	return nil
}

// Sweep 遍历全部标识符，不改变 LRU 顺序
func (s *MemoryStore) Sweep(_ context.Context, cutoff int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	removed := 0
	for _, key := range s.windows.Keys() {
		w, ok := s.windows.Peek(key)
		if !ok {
			continue
		}
		w.stamps = prune(w.stamps, cutoff)
		if len(w.stamps) == 0 {
			s.remove(key)
			removed++
		}
	}

	return removed, nil
}

// Delete 删除指定标识符
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	s.remove(key)
	return nil
}

// Len 返回当前保存的标识符数量
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.windows.Len(), nil
}

// Keys 返回全部标识符，按最久未使用到最近使用排列
func (s *MemoryStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.windows.Keys()
}

// Type 返回存储类型
func (s *MemoryStore) Type() string {
	return constants.StoreMemory
}

// Close 清空存储，之后的操作返回 ErrStoreClosed
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.removing = true
	s.windows.Purge()
	s.removing = false

	return nil
}

// remove 主动删除标识符，调用方已持有锁
func (s *MemoryStore) remove(key string) {
	s.removing = true
	s.windows.Remove(key)
	s.removing = false
}
