package utils

import (
	"context"

	"quizserver/matchmaking"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CronCleaner は定期クリーンナップのスケジューラを起動します。
// タブを閉じたまま放置された待機エントリはクライアント側タイマーでは
// 消せないため、サーバー側のスイーパーが唯一の回収経路になる。
func CronCleaner(coordinator *matchmaking.Coordinator, logger *zap.Logger) {
	c := cron.New()

	// 期限切れの待機エントリを削除するジョブ（毎分実行）
	c.AddFunc("@every 1m", func() {
		logger.Info("待機エントリのクリーンナップを開始")
		coordinator.PruneStaleEntries(context.Background())
	})

	c.Start()
}
