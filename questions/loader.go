package questions

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"quizserver/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Record はクライアントに渡す1問分のデータ。
// Answerはシャッフル後の選択肢配列に対するインデックス。
type Record struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   int      `json:"answer"`
}

// LoadChapter は問題バンクからチャプターの全問題を読み取り専用で取得する。
func LoadChapter(db *gorm.DB, logger *zap.Logger, chapterID string) ([]Record, error) {
	var rows []models.Question
	if err := db.Where("chapter_id = ?", chapterID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load chapter %s: %w", chapterID, err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		var options []string
		if err := json.Unmarshal([]byte(row.Options), &options); err != nil {
			logger.Error("Broken question options", zap.String("questionId", row.QuestionID), zap.Error(err))
			continue
		}
		records = append(records, Record{
			ID:       row.QuestionID,
			Question: row.Text,
			Options:  options,
			Answer:   row.Answer,
		})
	}
	return records, nil
}

// Shuffle は問題の並びと各問題の選択肢の並びをシャッフルする。
// 選択肢の入れ替えに合わせてAnswerインデックスも対応付け直す。
// シードはマッチ作成時に決めてマッチレコード経由で共有する想定。
func Shuffle(seed int64, records []Record) []Record {
	rng := rand.New(rand.NewSource(seed))
	shuffled := make([]Record, len(records))
	copy(shuffled, records)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	for i := range shuffled {
		shuffled[i] = shuffleOptions(rng, shuffled[i])
	}
	return shuffled
}

// shuffleOptions は1問の選択肢をシャッフルし、正解インデックスを追従させる。
func shuffleOptions(rng *rand.Rand, record Record) Record {
	perm := rng.Perm(len(record.Options))
	options := make([]string, len(record.Options))
	answer := record.Answer
	for from, to := range perm {
		options[to] = record.Options[from]
		if from == record.Answer {
			answer = to
		}
	}
	record.Options = options
	record.Answer = answer
	return record
}
