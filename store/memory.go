package store

import (
	"bytes"
	"context"
	"strings"
	"sync"
)

// MemoryStore はテスト用のインメモリStore実装。
// RunTransactionはRedis実装と同じ楽観的CASの意味論を持つ。
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
	subs map[string][]chan Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
		subs: make(map[string][]chan Snapshot),
	}
}

func clone(data []byte) []byte {
	if data == nil {
		return nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.data[key]), nil
}

func (s *MemoryStore) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make(map[string][]byte)
	for key, data := range s.data {
		if strings.HasPrefix(key, prefix) {
			result[key] = clone(data)
		}
	}
	return result, nil
}

func (s *MemoryStore) MultiWrite(ctx context.Context, writes map[string][]byte) error {
	s.mu.Lock()
	for key, data := range writes {
		if data == nil {
			delete(s.data, key)
		} else {
			s.data[key] = clone(data)
		}
	}
	s.mu.Unlock()
	for key, data := range writes {
		s.notify(key, data)
	}
	return nil
}

func (s *MemoryStore) RunTransaction(ctx context.Context, key string, fn func(old []byte) ([]byte, error)) error {
	for i := 0; i < txMaxRetries; i++ {
		s.mu.Lock()
		old := clone(s.data[key])
		s.mu.Unlock()

		next, err := fn(old)
		if err != nil {
			return err
		}

		s.mu.Lock()
		// fn実行中に値が変わっていたらリトライ（楽観的CAS）
		if !bytes.Equal(s.data[key], old) {
			s.mu.Unlock()
			continue
		}
		if next == nil {
			delete(s.data, key)
		} else {
			s.data[key] = clone(next)
		}
		s.mu.Unlock()
		s.notify(key, next)
		return nil
	}
	return ErrConflict
}

func (s *MemoryStore) Subscribe(ctx context.Context, key string) (<-chan Snapshot, func(), error) {
	ch := make(chan Snapshot, 16)
	s.mu.Lock()
	ch <- Snapshot{Key: key, Data: clone(s.data[key])}
	s.subs[key] = append(s.subs[key], ch)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		channels := s.subs[key]
		for i, sub := range channels {
			if sub == ch {
				s.subs[key] = append(channels[:i], channels[i+1:]...)
				close(ch)
				break
			}
		}
	}
	return ch, cancel, nil
}

func (s *MemoryStore) notify(key string, data []byte) {
	// 購読解除と競合しないようロックを保持したまま配る。送信は非ブロッキング
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs[key] {
		select {
		case ch <- Snapshot{Key: key, Data: clone(data)}:
		default:
			// 受信が追いつかない購読者への配信は捨てる
		}
	}
}
