package store

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const txMaxRetries = 16 // WATCH競合時のリトライ上限

// RedisStore はgo-redisを使ったStore実装。
// MultiWriteはTxPipelined、RunTransactionはWATCHによる楽観的CASで実現し、
// 書き込みごとに"sync:<key>"チャンネルへ全量スナップショットを配信する。
type RedisStore struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewRedisStore(rdb *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{rdb: rdb, logger: logger}
}

func syncChannel(key string) string {
	return "sync:" + key
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *RedisStore) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	result := make(map[string][]byte)
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		// SCANとGETの間に消えたキーはスキップ
		if data != nil {
			result[key] = data
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *RedisStore) MultiWrite(ctx context.Context, writes map[string][]byte) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, data := range writes {
			if data == nil {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, data, 0)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for key, data := range writes {
		s.publish(ctx, key, data)
	}
	return nil
}

func (s *RedisStore) RunTransaction(ctx context.Context, key string, fn func(old []byte) ([]byte, error)) error {
	var next []byte
	txf := func(tx *redis.Tx) error {
		old, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			old = nil
		} else if err != nil {
			return err
		}
		next, err = fn(old)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, key)
			} else {
				pipe.Set(ctx, key, next, 0)
			}
			return nil
		})
		return err
	}

	for i := 0; i < txMaxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			s.publish(ctx, key, next)
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			// 他クライアントと競合したのでリトライ
			continue
		}
		return err
	}
	s.logger.Warn("Transaction retries exhausted", zap.String("key", key))
	return ErrConflict
}

func (s *RedisStore) publish(ctx context.Context, key string, data []byte) {
	// 削除は空ペイロードで通知する
	if err := s.rdb.Publish(ctx, syncChannel(key), data).Err(); err != nil {
		s.logger.Error("Failed to publish snapshot", zap.String("key", key), zap.Error(err))
	}
}

func (s *RedisStore) Subscribe(ctx context.Context, key string) (<-chan Snapshot, func(), error) {
	pubsub := s.rdb.Subscribe(ctx, syncChannel(key))
	// 購読確立を待ってから初期スナップショットを読むことで取りこぼしを防ぐ
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, err
	}

	initial, err := s.Get(ctx, key)
	if err != nil {
		pubsub.Close()
		return nil, nil, err
	}

	out := make(chan Snapshot, 16)
	out <- Snapshot{Key: key, Data: initial}

	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var data []byte
			if msg.Payload != "" {
				data = []byte(msg.Payload)
			}
			select {
			case out <- Snapshot{Key: key, Data: data}:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		pubsub.Close()
	}
	return out, cancel, nil
}
