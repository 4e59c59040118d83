package handlers

import (
	"net/http"

	"quizserver/matchmaking"
	"quizserver/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// QueueJoinHandler は自動マッチングを開始するハンドラです。
// 相手が見つかれば即座にマッチ情報を返し、見つからなければ
// searchingとエントリキーを返す。マッチ成立はプロフィール購読側にも届く。
func QueueJoinHandler(c *gin.Context, coordinator *matchmaking.Coordinator, logger *zap.Logger) {
	uid := c.GetString("uid")

	var request models.QueueRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		logger.Error("Request binding error", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request binding error"})
		return
	}
	if request.ChapterID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chapterId is required"})
		return
	}

	result, err := coordinator.RequestAutoMatch(c.Request.Context(), uid, request.ChapterID)
	if err != nil {
		logger.Error("Auto match failed", zap.String("uid", uid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Matchmaking failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// QueueCancelHandler は自分の待機エントリを取り下げるハンドラです。
// 既に消費済みのエントリの取り下げはno-opとして成功を返す。
func QueueCancelHandler(c *gin.Context, coordinator *matchmaking.Coordinator, logger *zap.Logger) {
	entryKey := c.Query("entryKey")
	if entryKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entryKey is required"})
		return
	}

	if err := coordinator.CancelSearch(c.Request.Context(), entryKey); err != nil {
		logger.Error("Failed to cancel search", zap.String("entryKey", entryKey), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel search"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "canceled"})
}
