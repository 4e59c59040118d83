package handlers

import (
	"errors"
	"net/http"

	"quizserver/engine"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ForceQuitHandler は管理者によるマッチの強制終了ハンドラです。
// マッチレコードの削除と両プレイヤーのポインタ解除を不可分に行う。
func ForceQuitHandler(c *gin.Context, eng *engine.Engine, logger *zap.Logger) {
	matchID := c.Param("matchId")

	if err := eng.ForceQuit(c.Request.Context(), matchID); err != nil {
		if errors.Is(err, engine.ErrMatchNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
			return
		}
		logger.Error("Failed to force quit match", zap.String("matchId", matchID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to force quit match"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "terminated"})
}
