package store

import (
	"context"
	"errors"
)

// ストア操作のエラー定義
var (
	// ErrConflict はトランザクションのリトライが上限に達したことを示す。
	ErrConflict = errors.New("store: transaction conflict, retries exhausted")
)

// Snapshot は購読中のキーの最新状態。Dataがnilの場合はレコードの削除を表す。
type Snapshot struct {
	Key  string
	Data []byte
}

// Store はキー付きレコードの購読可能ストアの抽象。
// マッチメイキングの状態遷移はMultiWrite、回答の適用はRunTransactionのみを通す。
type Store interface {
	// Get はキーのレコードを返す。存在しない場合は(nil, nil)。
	Get(ctx context.Context, key string) ([]byte, error)

	// List はプレフィックスに一致する全レコードを返す。
	List(ctx context.Context, prefix string) (map[string][]byte, error)

	// MultiWrite は複数キーへの書き込みを不可分に適用する。値がnilのキーは削除。
	MultiWrite(ctx context.Context, writes map[string][]byte) error

	// RunTransaction は単一レコードへのread-modify-writeを適用する。
	// fnには現在値（未存在ならnil）が渡され、nilを返すとレコードは削除される。
	// 競合時はストア側でリトライし、上限を超えたらErrConflictを返す。
	// fnがエラーを返した場合は書き込みを行わずそのまま伝播する。
	RunTransaction(ctx context.Context, key string, fn func(old []byte) ([]byte, error)) error

	// Subscribe はキーのスナップショットストリームを返す。
	// 購読直後に必ず現在値のスナップショットが1件届く（差分ではなく全量）。
	// 返されるcancelで購読を解除する。
	Subscribe(ctx context.Context, key string) (<-chan Snapshot, func(), error)
}
