package matchmaking

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"quizserver/models"
	"quizserver/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// マッチ結果のステータス
const (
	MatchStatusMatched   = "matched"
	MatchStatusSearching = "searching"
)

// MatchResult は自動マッチングの結果。
// 相手が見つかればMatchID、見つからなければ登録したエントリのキーが入る。
type MatchResult struct {
	Status   string             `json:"status"`
	MatchID  string             `json:"matchId,omitempty"`
	EntryKey string             `json:"entryKey,omitempty"`
	Match    *models.MatchState `json:"match,omitempty"`
}

// RequestAutoMatch は自動マッチングを1回試行する。
//  1. チャプターの待機リストを読む
//  2. 他人のエントリがあれば条件付き削除で獲得し、マッチを作成する
//  3. なければ自分のエントリを登録してsearchingを返す
//
// エントリの獲得がトランザクションなので、2クライアントが同じエントリへ
// 同時に到達しても勝者は1つだけになる。負けた側は次の候補へ進む。
func (c *Coordinator) RequestAutoMatch(ctx context.Context, uid, chapterID string) (*MatchResult, error) {
	entries, err := c.store.List(ctx, store.QueuePrefix(chapterID))
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-RankedSearchTimeout * 2).UnixMilli()
	for key, data := range entries {
		var entry models.QueueEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			c.logger.Error("Broken queue entry", zap.String("key", key), zap.Error(err))
			continue
		}
		if entry.UID == uid {
			continue
		}
		if entry.JoinedAt < cutoff {
			// タブを閉じた探索者のゴミエントリ。見つけた側が掃除する
			if err := c.claimEntry(ctx, key); err == nil {
				c.logger.Info("Pruned stale queue entry", zap.String("key", key))
			}
			continue
		}

		// 対戦相手候補。獲得に失敗したら別クライアントに先を越されたので次へ
		if err := c.claimEntry(ctx, key); err != nil {
			if errors.Is(err, ErrAlreadyClaimed) {
				continue
			}
			return nil, err
		}

		players := map[string]models.PlayerInfo{
			entry.UID: {Name: entry.Name, Avatar: entry.Avatar},
			uid:       c.playerInfo(uid),
		}
		limit := c.sampleLimit()
		state, err := c.createMatch(ctx, models.MatchModeAuto, chapterID, limit, players, nil)
		if err != nil {
			// 獲得済みのエントリを書き戻して相手の待機を維持する
			if restoreErr := c.store.MultiWrite(ctx, map[string][]byte{key: data}); restoreErr != nil {
				c.logger.Error("Failed to restore queue entry after match creation failure",
					zap.String("key", key), zap.Error(restoreErr))
			}
			return nil, err
		}
		return &MatchResult{Status: MatchStatusMatched, MatchID: state.MatchID, Match: state}, nil
	}

	// 相手がいないので自分が待機する
	self := c.playerInfo(uid)
	entry := models.QueueEntry{
		UID:      uid,
		Name:     self.Name,
		Avatar:   self.Avatar,
		JoinedAt: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	entryKey := store.QueueKey(chapterID, uuid.New().String())
	if err := c.store.MultiWrite(ctx, map[string][]byte{entryKey: data}); err != nil {
		return nil, err
	}
	c.logger.Info("Queued for auto match", zap.String("uid", uid), zap.String("chapter", chapterID))
	return &MatchResult{Status: MatchStatusSearching, EntryKey: entryKey}, nil
}

// CancelSearch は自分の待機エントリを削除する。
// 既に対戦相手に消費されていた場合はエラーにせずno-opとする。
func (c *Coordinator) CancelSearch(ctx context.Context, entryKey string) error {
	err := c.claimEntry(ctx, entryKey)
	if errors.Is(err, ErrAlreadyClaimed) {
		return nil
	}
	return err
}

// PruneStaleEntries は全チャプターの待機リストからハートビートが
// 期限切れのエントリを削除する。cronジョブから定期的に呼ばれ、
// クライアント側タイマーが動かなかった場合の保険になる。
func (c *Coordinator) PruneStaleEntries(ctx context.Context) {
	entries, err := c.store.List(ctx, "queue:")
	if err != nil {
		c.logger.Error("Failed to scan queue entries", zap.Error(err))
		return
	}
	cutoff := time.Now().Add(-RankedSearchTimeout * 2).UnixMilli()
	pruned := 0
	for key, data := range entries {
		var entry models.QueueEntry
		if err := json.Unmarshal(data, &entry); err != nil || entry.JoinedAt < cutoff {
			if err := c.claimEntry(ctx, key); err == nil {
				pruned++
			}
		}
	}
	if pruned > 0 {
		c.logger.Info("Pruned stale queue entries", zap.Int("count", pruned))
	}
}
