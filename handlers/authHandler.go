package handlers

import (
	"errors"
	"net/http"

	"quizserver/middlewares"
	"quizserver/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LoginHandler はユーザーを登録または取得し、JWTトークンを発行します。
// 認証本体は外部コラボレーター扱いなので、ここでは識別子の突き合わせのみ行う。
func LoginHandler(c *gin.Context, db *gorm.DB, logger *zap.Logger) {
	var request models.LoginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		logger.Error("Request binding error", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request binding error"})
		return
	}
	if request.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}

	var user models.User
	err := db.Where("user_id = ?", request.UserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			UserID:   request.UserID,
			Nickname: request.Nickname,
			Avatar:   request.Avatar,
		}
		if user.Nickname == "" {
			user.Nickname = request.UserID
		}
		if err := db.Create(&user).Error; err != nil {
			logger.Error("Failed to create user", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
			return
		}
	} else if err != nil {
		logger.Error("Failed to fetch user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return
	}

	if user.Banned {
		logger.Warn("BANアカウントのログインを拒否", zap.String("uid", user.UserID))
		c.JSON(http.StatusForbidden, gin.H{"error": "Account banned"})
		return
	}

	token, err := middlewares.GenerateToken(user)
	if err != nil {
		logger.Error("Failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "userId": user.UserID})
}
