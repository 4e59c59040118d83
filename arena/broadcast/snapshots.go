package broadcast

import (
	"context"
	"encoding/json"

	"quizserver/models"
	"quizserver/session"
	"quizserver/store"

	"go.uber.org/zap"
)

// ForwardMatchSnapshots はマッチレコードのスナップショットストリームを
// そのままクライアントへ転送する。両クライアントが同じレコードを購読する
// ことで同じ問題ポインタとスコアを描画できる。
func ForwardMatchSnapshots(ctx context.Context, client *models.Client, snapshots <-chan store.Snapshot, logger *zap.Logger) {
	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			if snap.Data == nil {
				// 管理者の強制終了などでレコードが消えた
				if err := client.Send(map[string]interface{}{"type": "matchRemoved"}); err != nil {
					logger.Error("Failed to send match removal", zap.Error(err))
					return
				}
				continue
			}
			var state models.MatchState
			if err := json.Unmarshal(snap.Data, &state); err != nil {
				logger.Error("Broken match snapshot", zap.String("key", snap.Key), zap.Error(err))
				continue
			}
			payload := map[string]interface{}{
				"type":  "matchState",
				"match": state,
			}
			if err := client.Send(payload); err != nil {
				logger.Error("Failed to forward match snapshot", zap.Error(err))
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// ForwardSessionEvents はリディレクタのイベントをクライアントへ転送する。
// bannedを受けたら通知後に接続を閉じて強制サインアウトさせる。
func ForwardSessionEvents(ctx context.Context, client *models.Client, events <-chan session.Event, logger *zap.Logger) {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := client.Send(event); err != nil {
				logger.Error("Failed to forward session event", zap.Error(err))
				return
			}
			if event.Type == session.EventBanned {
				logger.Warn("Closing connection for banned account", zap.String("uid", client.UserID))
				client.Conn.Close()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
