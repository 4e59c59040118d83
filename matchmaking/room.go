package matchmaking

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"quizserver/models"
	"quizserver/store"

	"go.uber.org/zap"
)

// チャット招待メッセージに書き戻す状態
const (
	InviteStatusWaiting  = "waiting"
	InviteStatusPlayed   = "played"
	InviteStatusCanceled = "canceled"
)

// CreateRoom はプライベートロビーを作成し、共有用の4桁コードを返す。
// チャット発の招待なら招待メッセージをwaitingにする。
func (c *Coordinator) CreateRoom(ctx context.Context, hostUID string, req models.RoomCreateRequest) (string, error) {
	room := models.Room{
		Host:           hostUID,
		SubjectID:      req.SubjectID,
		ChapterID:      req.ChapterID,
		QuestionLimit:  req.QuestionLimit,
		CreatedAt:      time.Now().UnixMilli(),
		LinkedChatPath: req.LinkedChatPath,
	}
	if room.QuestionLimit <= 0 {
		room.QuestionLimit = c.sampleLimit()
	}
	data, err := json.Marshal(room)
	if err != nil {
		return "", err
	}

	code := c.roomCode()
	if err := c.store.MultiWrite(ctx, map[string][]byte{store.RoomKey(code): data}); err != nil {
		return "", err
	}
	c.setChatStatus(room.LinkedChatPath, InviteStatusWaiting)

	c.logger.Info("Room created",
		zap.String("code", code),
		zap.String("host", hostUID),
		zap.String("chapter", room.ChapterID),
	)
	return code, nil
}

// JoinRoom はコードでルームに参加し、マッチを作成する。
// ルームの削除は条件付きトランザクションで先に獲得するため、
// ほぼ同時の参加者がいても成立するのは片方だけになる。
func (c *Coordinator) JoinRoom(ctx context.Context, joinerUID, code string) (*MatchResult, error) {
	data, err := c.store.Get(ctx, store.RoomKey(code))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrRoomNotFound
	}
	var room models.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	if room.Host == joinerUID {
		return nil, ErrSelfJoin
	}

	if err := c.claimEntry(ctx, store.RoomKey(code)); err != nil {
		if errors.Is(err, ErrAlreadyClaimed) {
			// 読み取りと獲得の間に別の参加者が成立させた
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	players := map[string]models.PlayerInfo{
		room.Host: c.playerInfo(room.Host),
		joinerUID: c.playerInfo(joinerUID),
	}
	state, err := c.createMatch(ctx, models.MatchModeCustom, room.ChapterID, room.QuestionLimit, players, nil)
	if err != nil {
		// 獲得済みのルームを書き戻してホストの再試行に備える
		if restoreErr := c.store.MultiWrite(ctx, map[string][]byte{store.RoomKey(code): data}); restoreErr != nil {
			c.logger.Error("Failed to restore room after match creation failure",
				zap.String("code", code), zap.Error(restoreErr))
		}
		return nil, err
	}
	c.setChatStatus(room.LinkedChatPath, InviteStatusPlayed)

	c.logger.Info("Room joined",
		zap.String("code", code),
		zap.String("joiner", joinerUID),
		zap.String("matchId", state.MatchID),
	)
	return &MatchResult{Status: MatchStatusMatched, MatchID: state.MatchID, Match: state}, nil
}

// CancelRoom はホストが待機中のルームを取り下げる。
// 既に参加者に消費されていた場合はno-op。チャット招待はcanceledにする。
func (c *Coordinator) CancelRoom(ctx context.Context, hostUID, code string) error {
	var room models.Room
	err := c.store.RunTransaction(ctx, store.RoomKey(code), func(old []byte) ([]byte, error) {
		if old == nil {
			return nil, ErrAlreadyClaimed
		}
		if err := json.Unmarshal(old, &room); err != nil {
			return nil, err
		}
		if room.Host != hostUID {
			return nil, ErrNotRoomHost
		}
		return nil, nil
	})
	if errors.Is(err, ErrAlreadyClaimed) {
		return nil
	}
	if err != nil {
		return err
	}
	c.setChatStatus(room.LinkedChatPath, InviteStatusCanceled)
	c.logger.Info("Room canceled", zap.String("code", code), zap.String("host", hostUID))
	return nil
}
