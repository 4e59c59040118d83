package main

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"quizserver/arena"       // Websocketによるマッチ同期とリディレクタ
	"quizserver/database"    // PostgreSQLとRedisの初期化
	"quizserver/engine"      // マッチ進行エンジン
	"quizserver/handlers"    // マッチメイキングに関連するHTTPリクエストの処理
	"quizserver/matchmaking" // キュー/ルームのコーディネーター
	"quizserver/middlewares" // JWT認証
	"quizserver/migrations"  // テーブル作成
	"quizserver/store"       // 購読可能なキー付きストア
	"quizserver/utils"       // ロガーの初期化とCronジョブ(待機エントリの定期クリーンナップ)

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

func main() {
	var logger *zap.Logger
	var err error
	logger, err = utils.InitLogger() // ロガーの初期化
	if err != nil {
		panic(err) // 失敗した場合はプログラム停止
	}
	defer logger.Sync() // ロガーのクリーンアップ

	// Websocket接続で用いるアップグレーダーを初期化
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	// 非同期でPostgreSQLとRedisの初期化
	var db *gorm.DB
	var rdb *redis.Client
	done := make(chan bool)

	go func() {
		config, err := database.LoadConfig("config.json")
		if err != nil {
			logger.Fatal("設定ファイルの読み込みに失敗しました", zap.Error(err))
		}
		db, err = database.InitPostgreSQL(config, logger)
		if err != nil {
			logger.Fatal("PostgreSQLの初期化に失敗しました", zap.Error(err))
		}
		done <- true
	}()

	go func() {
		rdb, err = database.InitRedis(logger)
		if err != nil {
			logger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		done <- true
	}()

	// 2つの初期化が完了するのを待つ
	<-done
	<-done

	if err := migrations.AutoMigrateDB(db, logger); err != nil {
		logger.Fatal("マイグレーションに失敗しました", zap.Error(err))
	}

	// ストアとコーディネーター、進行エンジンのセットアップ
	kvstore := store.NewRedisStore(rdb, logger)
	coordinator := matchmaking.NewCoordinator(kvstore, db, logger)
	eng := engine.NewEngine(kvstore, logger)

	// クーロンスケジューラのセットアップと呼び出し
	go utils.CronCleaner(coordinator, logger)

	router := gin.Default()
	// dbとrdbを全てのリクエストで利用できるようにする
	router.Use(func(c *gin.Context) {
		c.Set("db", db)
		c.Set("rdb", rdb)
		c.Next()
	})
	//リクエストロガーを起動
	router.Use(gin.Recovery(), utils.RequestLogger(logger))

	//CORS（Cross-Origin Resource Sharing）ポリシーを設定
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://192.168.1.1:8080"}, //ここにデプロイサーバーのIPアドレスを設定
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	//各HTTPリクエストのルーティング
	router.POST("/auth/login", func(c *gin.Context) {
		handlers.LoginHandler(c, db, logger)
	})

	authed := router.Group("/", middlewares.AuthMiddleware(db, logger))
	authed.POST("/match/queue", func(c *gin.Context) {
		handlers.QueueJoinHandler(c, coordinator, logger)
	})
	authed.DELETE("/match/queue", func(c *gin.Context) {
		handlers.QueueCancelHandler(c, coordinator, logger)
	})
	authed.POST("/room/create", func(c *gin.Context) {
		handlers.RoomCreateHandler(c, coordinator, logger)
	})
	authed.POST("/room/join", func(c *gin.Context) {
		handlers.RoomJoinHandler(c, coordinator, logger)
	})
	authed.DELETE("/room", func(c *gin.Context) {
		handlers.RoomDeleteHandler(c, coordinator, logger)
	})
	authed.GET("/questions/:chapterId", func(c *gin.Context) {
		handlers.QuestionsHandler(c, db, logger)
	})
	authed.DELETE("/admin/match/:matchId", func(c *gin.Context) {
		handlers.ForceQuitHandler(c, eng, logger)
	})

	router.GET("/ws", func(c *gin.Context) {
		arena.HandleConnections(c.Writer, c.Request, db, rdb, kvstore, logger, upgrader)
	})

	// テスト時はHTTPサーバーとして運用。デフォルトポートは ":8080"
	router.Run()
}
