package engine

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"quizserver/models"
	"quizserver/store"

	"go.uber.org/zap"
)

var (
	ErrMatchNotFound  = errors.New("engine: match not found")
	ErrNotParticipant = errors.New("engine: user is not a participant of the match")
)

// playersPerMatch 人が回答した時点でラウンドが完了し、問題ポインタが進む。
const playersPerMatch = 2

// Engine はマッチレコードの進行を担う。
// 回答の適用は必ずストアのトランザクション経由で行い、両クライアントが
// 同一ラウンドに並行して回答してもスコアとポインタが失われないようにする。
type Engine struct {
	store  store.Store
	logger *zap.Logger
}

func NewEngine(s store.Store, logger *zap.Logger) *Engine {
	return &Engine{store: s, logger: logger}
}

// applyAnswer は1回答分の状態遷移を計算する純粋関数。
// 正解ならスコアを加算し、両者回答済みならポインタを進め、
// 問題数の上限に達したらステータスと勝者を同時に確定する。
func applyAnswer(state models.MatchState, uid string, correct bool) models.MatchState {
	if correct {
		state.Scores[uid]++
	}
	state.AnswersCount++
	if state.AnswersCount >= playersPerMatch {
		state.AnswersCount = 0
		state.CurrentQ++
		if state.CurrentQ >= state.QuestionLimit {
			state.Status = models.MatchStatusCompleted
			state.Winner = computeWinner(state.Scores)
		}
	}
	return state
}

// computeWinner はスコアの比較で勝者のuidを返す。同点なら"draw"。
func computeWinner(scores map[string]int) string {
	var uids []string
	for uid := range scores {
		uids = append(uids, uid)
	}
	if len(uids) != playersPerMatch {
		return models.WinnerDraw
	}
	switch {
	case scores[uids[0]] > scores[uids[1]]:
		return uids[0]
	case scores[uids[1]] > scores[uids[0]]:
		return uids[1]
	default:
		return models.WinnerDraw
	}
}

// SubmitAnswer は回答をマッチレコードへトランザクションで適用する。
// questionIndexが現在の問題ポインタと一致しない提出は古いラウンドの
// 回答とみなしてno-opにする。正誤判定は選択肢インデックスの比較のみで、
// クライアントを信頼する（§非対称な審判は置かない）。
func (e *Engine) SubmitAnswer(ctx context.Context, matchID, uid string, questionIndex, selected, correctIndex int) (*models.MatchState, error) {
	var result models.MatchState
	err := e.store.RunTransaction(ctx, store.MatchKey(matchID), func(old []byte) ([]byte, error) {
		if old == nil {
			return nil, ErrMatchNotFound
		}
		var state models.MatchState
		if err := json.Unmarshal(old, &state); err != nil {
			return nil, err
		}
		if _, ok := state.Players[uid]; !ok {
			return nil, ErrNotParticipant
		}
		if state.Status != models.MatchStatusActive || questionIndex != state.CurrentQ {
			// 終了済み、または古いラウンドへの提出はそのまま返す
			result = state
			return old, nil
		}
		state = applyAnswer(state, uid, selected == correctIndex)
		result = state
		return json.Marshal(state)
	})
	if err != nil {
		return nil, err
	}
	if result.Status == models.MatchStatusCompleted {
		e.logger.Info("Match completed",
			zap.String("matchId", matchID),
			zap.String("winner", result.Winner),
		)
	}
	return &result, nil
}

// SendReaction はlastReactionをCASで更新する。
// スコアと同じトランザクション規律を通すことで同時送信でも欠落しない。
func (e *Engine) SendReaction(ctx context.Context, matchID, uid, value string) error {
	return e.store.RunTransaction(ctx, store.MatchKey(matchID), func(old []byte) ([]byte, error) {
		if old == nil {
			return nil, ErrMatchNotFound
		}
		var state models.MatchState
		if err := json.Unmarshal(old, &state); err != nil {
			return nil, err
		}
		if _, ok := state.Players[uid]; !ok {
			return nil, ErrNotParticipant
		}
		state.LastReaction = &models.Reaction{
			SenderID:  uid,
			Value:     value,
			Timestamp: time.Now().UnixMilli(),
		}
		return json.Marshal(state)
	})
}

// LeaveMatch は自分のactiveMatchポインタを消す。マッチ終了後に各クライアントが呼ぶ。
func (e *Engine) LeaveMatch(ctx context.Context, uid string) error {
	return e.store.MultiWrite(ctx, map[string][]byte{
		store.ActiveMatchKey(uid): nil,
	})
}

// ForceQuit は管理者によるマッチの強制終了。
// マッチレコードの削除と両プレイヤーのポインタ解除を1回のMultiWriteで行う。
func (e *Engine) ForceQuit(ctx context.Context, matchID string) error {
	data, err := e.store.Get(ctx, store.MatchKey(matchID))
	if err != nil {
		return err
	}
	if data == nil {
		return ErrMatchNotFound
	}
	var state models.MatchState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	writes := map[string][]byte{
		store.MatchKey(matchID): nil,
	}
	for uid := range state.Players {
		writes[store.ActiveMatchKey(uid)] = nil
	}
	e.logger.Info("Match force quit", zap.String("matchId", matchID))
	return e.store.MultiWrite(ctx, writes)
}
