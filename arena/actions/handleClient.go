package actions

import (
	"context"
	"encoding/json"
	"errors"

	"quizserver/arena/broadcast"
	"quizserver/engine"
	"quizserver/models"
	"quizserver/store"

	"go.uber.org/zap"
)

// Deps はアクション処理が参照する依存の束。
type Deps struct {
	Store  store.Store
	Engine *engine.Engine
	Logger *zap.Logger
}

// HandleClient はクライアントごとのメッセージ読み取りループ。
// 接続が切れるかctxが終わるまで回り続ける。
func HandleClient(ctx context.Context, client *models.Client, deps Deps) {
	var cancelWatch func()
	defer func() {
		if cancelWatch != nil {
			cancelWatch()
		}
	}()

	for {
		_, data, err := client.Conn.ReadMessage()
		if err != nil {
			deps.Logger.Info("Client read loop ended", zap.String("uid", client.UserID), zap.Error(err))
			return
		}

		var msg map[string]interface{}
		if err := json.Unmarshal(data, &msg); err != nil {
			sendErrorMessage(client, "Invalid message", deps.Logger)
			continue
		}

		msgType, _ := msg["type"].(string)
		switch msgType {
		case "watchMatch":
			if cancelWatch != nil {
				cancelWatch()
				cancelWatch = nil
			}
			cancelWatch = handleWatchMatch(ctx, client, msg, deps)
		case "submitAnswer":
			handleSubmitAnswer(ctx, client, msg, deps)
		case "reaction":
			handleReaction(ctx, client, msg, deps)
		case "leaveMatch":
			handleLeaveMatch(ctx, client, deps)
		default:
			sendErrorMessage(client, "Unknown message type", deps.Logger)
		}
	}
}

// handleWatchMatch はマッチレコードの購読を開始し、スナップショットの
// 転送ゴルーチンを起動する。返り値は購読解除の関数。
func handleWatchMatch(ctx context.Context, client *models.Client, msg map[string]interface{}, deps Deps) func() {
	matchID, ok := msg["matchId"].(string)
	if !ok || matchID == "" {
		sendErrorMessage(client, "matchId is required", deps.Logger)
		return nil
	}

	snapshots, cancel, err := deps.Store.Subscribe(ctx, store.MatchKey(matchID))
	if err != nil {
		deps.Logger.Error("Failed to subscribe match", zap.String("matchId", matchID), zap.Error(err))
		sendErrorMessage(client, "Failed to subscribe match", deps.Logger)
		return nil
	}
	client.MatchID = matchID
	go broadcast.ForwardMatchSnapshots(ctx, client, snapshots, deps.Logger)
	return cancel
}

func handleSubmitAnswer(ctx context.Context, client *models.Client, msg map[string]interface{}, deps Deps) {
	matchID, okID := msg["matchId"].(string)
	questionIndex, okQ := msg["questionIndex"].(float64)
	selected, okS := msg["selected"].(float64)
	correct, okC := msg["correct"].(float64)
	if !okID || !okQ || !okS || !okC {
		sendErrorMessage(client, "Invalid answer payload", deps.Logger)
		deps.Logger.Error("Invalid answer payload - type assertion failed", zap.Any("msg", msg))
		return
	}

	result, err := deps.Engine.SubmitAnswer(ctx, matchID, client.UserID, int(questionIndex), int(selected), int(correct))
	if err != nil {
		if errors.Is(err, engine.ErrMatchNotFound) || errors.Is(err, engine.ErrNotParticipant) {
			sendErrorMessage(client, "Match not available", deps.Logger)
			return
		}
		// リトライ枯渇を含む同期失敗。この1回の提出だけが失敗扱いになる
		deps.Logger.Error("Failed to apply answer", zap.String("matchId", matchID), zap.Error(err))
		sendErrorMessage(client, "Failed to sync answer", deps.Logger)
		return
	}

	deps.Logger.Info("Answer applied",
		zap.String("matchId", matchID),
		zap.String("uid", client.UserID),
		zap.Int("currentQ", result.CurrentQ),
		zap.Int("answersCount", result.AnswersCount),
	)
}

func handleReaction(ctx context.Context, client *models.Client, msg map[string]interface{}, deps Deps) {
	matchID, okID := msg["matchId"].(string)
	value, okV := msg["value"].(string)
	if !okID || !okV {
		sendErrorMessage(client, "Invalid reaction payload", deps.Logger)
		return
	}

	if err := deps.Engine.SendReaction(ctx, matchID, client.UserID, value); err != nil {
		deps.Logger.Error("Failed to send reaction", zap.String("matchId", matchID), zap.Error(err))
		sendErrorMessage(client, "Failed to send reaction", deps.Logger)
	}
}

func handleLeaveMatch(ctx context.Context, client *models.Client, deps Deps) {
	if err := deps.Engine.LeaveMatch(ctx, client.UserID); err != nil {
		deps.Logger.Error("Failed to clear active match", zap.String("uid", client.UserID), zap.Error(err))
		sendErrorMessage(client, "Failed to leave match", deps.Logger)
		return
	}
	client.MatchID = ""
}

func sendErrorMessage(client *models.Client, message string, logger *zap.Logger) {
	payload := map[string]interface{}{
		"type":    "error",
		"message": message,
	}
	if err := client.Send(payload); err != nil {
		logger.Error("Failed to send error message", zap.Error(err))
	}
}
