package matchmaking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quizserver/models"
	"quizserver/store"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// マッチメイキングの定数。タイムアウトはクライアント側タイマーと
// スイーパーの両方が同じ値を参照する。
const (
	QuestionLimitMin = 10
	QuestionLimitMax = 20

	RankedSearchTimeout = 10 * time.Second // 自動マッチングの待機上限
	PrivateRoomTimeout  = 15 * time.Second // プライベートルームの待機上限
)

var (
	ErrRoomNotFound   = errors.New("matchmaking: room not found")
	ErrSelfJoin       = errors.New("matchmaking: cannot join own room")
	ErrNotRoomHost    = errors.New("matchmaking: not the room host")
	ErrAlreadyClaimed = errors.New("matchmaking: entry already claimed")
)

// Coordinator はキュー/ルームのエントリをマッチレコードへ変換する。
// エントリの獲得は条件付きトランザクション、マッチ作成はMultiWriteで行う。
type Coordinator struct {
	store  store.Store
	db     *gorm.DB
	rngMu  sync.Mutex // rand.Randは並行利用できないため直列化する
	rng    *rand.Rand
	logger *zap.Logger
}

func NewCoordinator(s store.Store, db *gorm.DB, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		store:  s,
		db:     db,
		rng:    createLocalRandGenerator(),
		logger: logger,
	}
}

// newMatchID はマッチIDを生成する。
func newMatchID() string {
	return fmt.Sprintf("match_%d", time.Now().UnixMilli())
}

// sampleLimit は共有の乱数生成器から問題数を1つ引く。
// コーディネーターはリクエストごとのゴルーチンから同時に呼ばれる。
func (c *Coordinator) sampleLimit() int {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return sampleQuestionLimit(c.rng, QuestionLimitMin, QuestionLimitMax)
}

// roomCode は共有の乱数生成器からルームコードを1つ引く。
func (c *Coordinator) roomCode() string {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return generateRoomCode(c.rng)
}

// playerInfo はusersテーブルから表示情報を引く。外部コラボレーターなので
// 見つからなくてもマッチ作成は止めない。
func (c *Coordinator) playerInfo(uid string) models.PlayerInfo {
	if c.db == nil {
		return models.PlayerInfo{Name: uid}
	}
	var user models.User
	if err := c.db.Where("user_id = ?", uid).First(&user).Error; err != nil {
		c.logger.Warn("Failed to fetch player info", zap.String("uid", uid), zap.Error(err))
		return models.PlayerInfo{Name: uid}
	}
	return models.PlayerInfo{Name: user.Nickname, Avatar: user.Avatar}
}

// createMatch はマッチレコードの作成と両プレイヤーのactiveMatchポインタの
// 設定を1回のMultiWriteで行う。extraWritesには同時に消すエントリ等が入る。
func (c *Coordinator) createMatch(ctx context.Context, mode, chapterID string, questionLimit int, players map[string]models.PlayerInfo, extraWrites map[string][]byte) (*models.MatchState, error) {
	matchID := newMatchID()
	scores := make(map[string]int, len(players))
	for uid := range players {
		scores[uid] = 0
	}
	state := &models.MatchState{
		MatchID:       matchID,
		Status:        models.MatchStatusActive,
		Mode:          mode,
		CurrentQ:      0,
		AnswersCount:  0,
		Scores:        scores,
		Players:       players,
		Subject:       chapterID,
		QuestionLimit: questionLimit,
		CreatedAt:     time.Now().UnixMilli(),
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}

	writes := map[string][]byte{
		store.MatchKey(matchID): data,
	}
	for uid := range players {
		writes[store.ActiveMatchKey(uid)] = []byte(matchID)
	}
	for key, value := range extraWrites {
		writes[key] = value
	}
	if err := c.store.MultiWrite(ctx, writes); err != nil {
		return nil, err
	}

	c.logger.Info("Match created",
		zap.String("matchId", matchID),
		zap.String("mode", mode),
		zap.String("chapter", chapterID),
		zap.Int("questionLimit", questionLimit),
	)
	return state, nil
}

// claimEntry はキューエントリまたはルームを条件付き削除で獲得する。
// まだ存在する場合のみ削除し、既に消費済みならErrAlreadyClaimedを返す。
// マッチ作成の前にこれを通すことで同一エントリの二重消費を防ぐ。
func (c *Coordinator) claimEntry(ctx context.Context, key string) error {
	return c.store.RunTransaction(ctx, key, func(old []byte) ([]byte, error) {
		if old == nil {
			return nil, ErrAlreadyClaimed
		}
		return nil, nil
	})
}

// setChatStatus はチャット招待メッセージの状態を書き戻す（waiting/played/canceled）。
func (c *Coordinator) setChatStatus(path, status string) {
	if path == "" || c.db == nil {
		return
	}
	result := c.db.Model(&models.ChatMessage{}).Where("path = ?", path).Update("status", status)
	if result.Error != nil {
		c.logger.Error("Failed to update chat invite status",
			zap.String("path", path),
			zap.String("status", status),
			zap.Error(result.Error),
		)
	}
}
