package middlewares

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"quizserver/models"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var jwtKey = []byte("your_secret_key")

// ErrBanned はBANされたアカウントからのアクセスを表す。
var ErrBanned = errors.New("account is banned")

// GenerateToken はuidを埋め込んだJWTトークンを生成する。
func GenerateToken(user models.User) (string, error) {
	expirationTime := time.Now().Add(24 * time.Hour)

	claims := &models.MyClaims{
		UserID: user.UserID,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: expirationTime.Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

// ParseToken はAuthorizationヘッダの値からクレームを取り出す。
func ParseToken(tokenString string) (*models.MyClaims, error) {
	if strings.HasPrefix(tokenString, "Bearer ") {
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	}

	claims := &models.MyClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return jwtKey, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("token validation failed")
	}
	return claims, nil
}

// AuthenticateUser はトークンを検証し、ユーザーが存在しBANされていないことを確認する。
// マッチメイキングは「この利用者は操作してよいか」のbool信号としてのみ扱う。
func AuthenticateUser(db *gorm.DB, tokenString string) (string, error) {
	claims, err := ParseToken(tokenString)
	if err != nil {
		return "", err
	}

	var user models.User
	if err := db.Where("user_id = ?", claims.UserID).First(&user).Error; err != nil {
		return "", errors.New("user not found")
	}
	if user.Banned {
		return "", ErrBanned
	}
	return user.UserID, nil
}

// トークン検証とBANチェックを行うミドルウェア
func AuthMiddleware(db *gorm.DB, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")

		uid, err := AuthenticateUser(db, token)
		if err != nil {
			if errors.Is(err, ErrBanned) {
				logger.Warn("BANアカウントからのアクセスを拒否", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account banned"})
				return
			}
			logger.Warn("認証失敗", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set("uid", uid)
		c.Next()
	}
}
