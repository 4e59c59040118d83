package session

import (
	"context"

	"quizserver/store"

	"go.uber.org/zap"
)

// イベント種別
const (
	EventMatchAssigned = "matchAssigned" // activeMatchが設定された
	EventMatchCleared  = "matchCleared"  // activeMatchが解除された
	EventBanned        = "banned"        // アカウントがBANされた
)

// Event はリディレクタからセッションへ通知されるイベント。
type Event struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId,omitempty"`
}

// Redirector は認証済みセッションの寿命の間、本人のプロフィールを監視する。
// activeMatchの設定を検知して接続中クライアントをマッチへ誘導し、
// BANを検知したら強制サインアウトさせる。どちらのマッチ成立経路でも
// 相手クライアントへ明示的に通知する必要がないのはこの購読のおかげ。
type Redirector struct {
	store  store.Store
	logger *zap.Logger
}

func NewRedirector(s store.Store, logger *zap.Logger) *Redirector {
	return &Redirector{store: s, logger: logger}
}

// Watch はuidのプロフィールを購読し、イベントをeventsへ流す。
// ctxのキャンセルまたはBANイベントで終了する。
// 購読は差分ではなく全量スナップショットを受け取るため、
// 購読確立前にactiveMatchが設定されていても最初の1件で追いつける。
func (r *Redirector) Watch(ctx context.Context, uid string, events chan<- Event) error {
	matchCh, cancelMatch, err := r.store.Subscribe(ctx, store.ActiveMatchKey(uid))
	if err != nil {
		return err
	}
	defer cancelMatch()

	bannedCh, cancelBanned, err := r.store.Subscribe(ctx, store.BannedKey(uid))
	if err != nil {
		return err
	}
	defer cancelBanned()

	var lastMatchID string
	for {
		select {
		case snap, ok := <-matchCh:
			if !ok {
				return nil
			}
			matchID := string(snap.Data)
			if matchID == lastMatchID {
				continue
			}
			lastMatchID = matchID
			if matchID != "" {
				r.logger.Info("Active match assigned", zap.String("uid", uid), zap.String("matchId", matchID))
				r.send(ctx, events, Event{Type: EventMatchAssigned, MatchID: matchID})
			} else {
				r.send(ctx, events, Event{Type: EventMatchCleared})
			}
		case snap, ok := <-bannedCh:
			if !ok {
				return nil
			}
			if string(snap.Data) == "true" {
				r.logger.Warn("Banned account detected", zap.String("uid", uid))
				r.send(ctx, events, Event{Type: EventBanned})
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Redirector) send(ctx context.Context, events chan<- Event, event Event) {
	select {
	case events <- event:
	case <-ctx.Done():
	}
}
