package matchmaking

import (
	"fmt"
	"math/rand"
	"time"
)

// 乱数は問題数のサンプリングやルームコードの生成に使用
func createLocalRandGenerator() *rand.Rand {
	source := rand.NewSource(time.Now().UnixNano())
	return rand.New(source)
}

// sampleQuestionLimit は[min, max]の一様分布から問題数を1回だけ決める。
// マッチレコードに保存することで両クライアントが同じ値を共有する。
func sampleQuestionLimit(rng *rand.Rand, min, max int) int {
	if max <= min {
		return min
	}
	return min + rng.Intn(max-min+1)
}

// generateRoomCode は4桁の数字コードを返す。
// コード空間が狭いため衝突は上書きで許容する（既知の弱点）。
func generateRoomCode(rng *rand.Rand) string {
	return fmt.Sprintf("%04d", rng.Intn(10000))
}
