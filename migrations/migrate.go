package migrations

import (
	"quizserver/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AutoMigrateDB はPostgreSQL側のテーブルを作成します。
// マッチ・キュー・ルームはRedis側なのでここには含まれない。
func AutoMigrateDB(db *gorm.DB, logger *zap.Logger) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Question{},
		&models.ChatMessage{},
	)
	if err != nil {
		logger.Error("テーブルのマイグレーションに失敗しました", zap.Error(err))
		return err
	}
	logger.Info("Tables migrated successfully")
	return nil
}
