package database

import (
	"context"
	"encoding/json"
	"time"

	"quizserver/models"

	"go.uber.org/zap"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ValidateSessionID checks the session ID from Redis and returns the client info if the session is valid.
func ValidateSessionID(ctx context.Context, rdb *redis.Client, sessionID string, logger *zap.Logger) *models.Client {
	if sessionID == "" {
		return nil
	}

	sessionInfoJSON, err := rdb.Get(ctx, "session:"+sessionID).Result()
	if err != nil {
		logger.Error("Failed to retrieve session info", zap.Error(err))
		return nil
	}

	var sessionInfo map[string]string
	if err := json.Unmarshal([]byte(sessionInfoJSON), &sessionInfo); err != nil {
		logger.Error("Failed to decode session info", zap.Error(err))
		return nil
	}

	uid, ok := sessionInfo["userID"]
	if !ok || uid == "" {
		logger.Error("Invalid session info: missing userID")
		return nil
	}

	// 有効なセッション情報を基にClientオブジェクトを作成
	return &models.Client{
		UserID:  uid,
		MatchID: sessionInfo["matchID"],
	}
}

// GenerateAndStoreSessionID は再接続用のセッションIDを発行してRedisに保存し、
// クライアントへ送り返す。接続が切れてもマッチ中の文脈を復元できる。
func GenerateAndStoreSessionID(ctx context.Context, client *models.Client, rdb *redis.Client, logger *zap.Logger) error {
	sessionID := uuid.New().String()

	sessionInfo := map[string]string{
		"userID":  client.UserID,
		"matchID": client.MatchID,
	}
	sessionInfoJSON, err := json.Marshal(sessionInfo)
	if err != nil {
		logger.Error("Error encoding session info", zap.Error(err))
		return err
	}

	// セッションIDとセッション情報をRedisに保存
	err = rdb.Set(ctx, "session:"+sessionID, sessionInfoJSON, 24*time.Hour).Err() // 24時間の有効期限
	if err != nil {
		logger.Error("Error storing session info in Redis", zap.Error(err))
		return err
	}

	// セッションIDをクライアントに送り返す
	response := map[string]interface{}{
		"type":      "sessionID",
		"sessionID": sessionID,
		"userID":    client.UserID,
	}
	if err := client.Send(response); err != nil {
		logger.Error("Error sending session ID to client", zap.Error(err))
		return err
	}
	logger.Info("Successfully sent session ID to client", zap.String("sessionID", sessionID))
	return nil
}

// DeleteSessionID は強制サインアウト時にセッションを破棄する。
func DeleteSessionID(ctx context.Context, rdb *redis.Client, sessionID string) {
	if sessionID != "" {
		rdb.Del(ctx, "session:"+sessionID)
	}
}
