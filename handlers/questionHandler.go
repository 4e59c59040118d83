package handlers

import (
	"net/http"
	"strconv"

	"quizserver/questions"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// QuestionsHandler はチャプターの問題リストを返すハンドラです。
// seedが指定された場合はシャッフル済みで返す。両クライアントが
// マッチのcreatedAtをシードに使うことで同じ並びを再現できる。
func QuestionsHandler(c *gin.Context, db *gorm.DB, logger *zap.Logger) {
	chapterID := c.Param("chapterId")

	records, err := questions.LoadChapter(db, logger, chapterID)
	if err != nil {
		logger.Error("Failed to load chapter questions", zap.String("chapter", chapterID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load questions"})
		return
	}

	if seedParam := c.Query("seed"); seedParam != "" {
		seed, err := strconv.ParseInt(seedParam, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid seed"})
			return
		}
		records = questions.Shuffle(seed, records)
	}

	c.JSON(http.StatusOK, gin.H{"questions": records})
}
