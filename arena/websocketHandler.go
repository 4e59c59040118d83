package arena

import (
	"context"
	"net/http"
	"time"

	"quizserver/arena/actions"
	"quizserver/arena/broadcast"
	"quizserver/arena/connection"
	sessiondb "quizserver/arena/database"
	"quizserver/engine"
	"quizserver/models"
	"quizserver/session"
	"quizserver/store"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
)

// WebSocket接続へのアップグレードを行う関数
func HandleConnections(w http.ResponseWriter, r *http.Request, db *gorm.DB, rdb *redis.Client, s store.Store, logger *zap.Logger, upgrader websocket.Upgrader) {
	// ユーザーコンテキストの取得
	clientContext, err := connection.FetchClientContext(r, db, logger)
	if err != nil {
		logger.Error("Error fetching client context", zap.Error(err))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	// WebSocket接続へのアップグレードと確立
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Error upgrading WebSocket", zap.Error(err))
		return
	}

	client := &models.Client{
		Conn:   conn,
		UserID: clientContext.UserID,
	}
	logger.Info("New client connected", zap.String("uid", client.UserID))

	// 接続の寿命に合わせたコンテキスト。リクエストのctxはハンドラの
	// 返却と同時に終わるためここでは使えない。
	ctx, cancel := context.WithCancel(context.Background())

	// セッションIDの検証と復元
	sessionID := r.Header.Get("SessionID")
	if sessionID == "" {
		sessionID = r.URL.Query().Get("sessionId")
	}
	if sessionID != "" {
		if restored := sessiondb.ValidateSessionID(ctx, rdb, sessionID, logger); restored != nil && restored.UserID == client.UserID {
			// 再接続。購読中だったマッチを引き継ぐ
			client.MatchID = restored.MatchID
			sessiondb.DeleteSessionID(ctx, rdb, sessionID)
		}
	}

	// WebSocketのCloseHandlerを設定
	client.Conn.SetCloseHandler(func(code int, text string) error {
		logger.Info("WebSocket closed", zap.Int("code", code), zap.String("reason", text))
		cancel()
		client.Conn.Close()
		return nil
	})

	// プロセス全体のリディレクタ相当：本人のプロフィールを購読し、
	// activeMatchの設定とBANをこの接続へ押し込む
	redirector := session.NewRedirector(s, logger)
	events := make(chan session.Event, 4)
	go func() {
		defer close(events)
		if err := redirector.Watch(ctx, client.UserID, events); err != nil && ctx.Err() == nil {
			logger.Error("Profile watch ended with error", zap.String("uid", client.UserID), zap.Error(err))
		}
	}()
	go broadcast.ForwardSessionEvents(ctx, client, events, logger)

	// Ping/Pongを管理するゴルーチンを起動
	go func(c *models.Client) {
		defer func() {
			cancel()
			c.Conn.Close()
			logger.Info("Client removed", zap.String("uid", c.UserID))
		}()

		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		c.Conn.SetPongHandler(func(string) error {
			c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second)) // 60秒の読み取りデッドライン
			return nil
		})

		pingPeriod := 10 * time.Second // 10秒ごとにPingを送信
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.WriteMu.Lock()
				err := c.Conn.WriteMessage(websocket.PingMessage, nil)
				c.WriteMu.Unlock()
				if err != nil {
					logger.Error("Error sending ping", zap.Error(err))
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}(client)

	// 再接続用のセッションIDを発行
	if err := sessiondb.GenerateAndStoreSessionID(ctx, client, rdb, logger); err != nil {
		logger.Error("Failed to generate or store session ID", zap.Error(err))
	}

	// クライアントごとにメッセージ読み取りゴルーチンを起動
	eng := engine.NewEngine(s, logger)
	go func() {
		defer cancel()
		actions.HandleClient(ctx, client, actions.Deps{
			Store:  s,
			Engine: eng,
			Logger: logger,
		})
	}()
}
