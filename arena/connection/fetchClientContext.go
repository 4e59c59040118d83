package connection

import (
	"errors"
	"fmt"
	"net/http"

	"quizserver/middlewares"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ClientContext はWebsocket接続のユーザー情報を保持するための構造体です。
type ClientContext struct {
	UserID string
}

// FetchClientContext はリクエストのトークンからユーザーコンテキストを組み立てる。
// BANされたアカウントはここで弾かれ、接続自体が確立しない。
func FetchClientContext(r *http.Request, db *gorm.DB, logger *zap.Logger) (*ClientContext, error) {
	tokenString := r.Header.Get("Authorization")
	if tokenString == "" {
		// ブラウザのWebSocket APIはヘッダを付けられないのでクエリも見る
		tokenString = r.URL.Query().Get("token")
	}

	uid, err := middlewares.AuthenticateUser(db, tokenString)
	if err != nil {
		if errors.Is(err, middlewares.ErrBanned) {
			logger.Warn("Banned account attempted connection")
			return nil, err
		}
		logger.Error("Failed to validate token", zap.Error(err))
		return nil, fmt.Errorf("unauthorized: %w", err)
	}

	return &ClientContext{UserID: uid}, nil
}
