package handlers

import (
	"errors"
	"net/http"

	"quizserver/matchmaking"
	"quizserver/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RoomCreateHandler はプライベートルームを作成し、共有用コードを返します。
func RoomCreateHandler(c *gin.Context, coordinator *matchmaking.Coordinator, logger *zap.Logger) {
	uid := c.GetString("uid")

	var request models.RoomCreateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		logger.Error("Request binding error", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request binding error"})
		return
	}
	if request.ChapterID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chapterId is required"})
		return
	}

	code, err := coordinator.CreateRoom(c.Request.Context(), uid, request)
	if err != nil {
		logger.Error("Failed to create room", zap.String("uid", uid), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"code": code})
}

// RoomJoinHandler はコードでルームに参加するハンドラです。
// 参加が成立するとマッチが作成され、ホスト側はプロフィール購読経由で誘導される。
func RoomJoinHandler(c *gin.Context, coordinator *matchmaking.Coordinator, logger *zap.Logger) {
	uid := c.GetString("uid")

	var request models.RoomJoinRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		logger.Error("Request binding error", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request binding error"})
		return
	}

	result, err := coordinator.JoinRoom(c.Request.Context(), uid, request.Code)
	if err != nil {
		switch {
		case errors.Is(err, matchmaking.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		case errors.Is(err, matchmaking.ErrSelfJoin):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot join own room"})
		default:
			logger.Error("Failed to join room", zap.String("code", request.Code), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join room"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// RoomDeleteHandler はホストが待機中のルームを取り下げるハンドラです。
func RoomDeleteHandler(c *gin.Context, coordinator *matchmaking.Coordinator, logger *zap.Logger) {
	uid := c.GetString("uid")
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	if err := coordinator.CancelRoom(c.Request.Context(), uid, code); err != nil {
		if errors.Is(err, matchmaking.ErrNotRoomHost) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Not the room host"})
			return
		}
		logger.Error("Failed to cancel room", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel room"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "canceled"})
}
