package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"qwerty/api/archive"
	"qwerty/api/config"
	"qwerty/api/database"
	"qwerty/api/handlers"
	"qwerty/api/logger"
	"qwerty/api/middleware"
	"qwerty/api/quotes"
	"qwerty/api/service"
	"qwerty/api/store"
	"qwerty/api/utils"
)

func main() {
	// Load .env before anything reads the environment.
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Storage ---
	var (
		viewStore store.ViewStore
		userStore store.UserStore
		postStore store.PostStore
		dbClient  *database.DBClient
	)

	switch cfg.StorageDriver {
	case "memory":
		// View tracking only; auth and posts need Postgres and are not
		// registered in this mode.
		zlog.Warn("Using in-memory view store; views are lost on restart")
		viewStore = store.NewMemoryViewStore()
	default:
		dbClient, err = database.NewPostgresDB(cfg.DatabaseURL, zlog)
		if err != nil {
			zlog.Fatal("Failed to initialize PostgreSQL database", zap.Error(err))
		}
		defer dbClient.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := database.Migrate(ctx, dbClient.DB); err != nil {
			cancel()
			zlog.Fatal("Failed to run database migrations", zap.Error(err))
		}
		cancel()

		viewStore = store.NewPostgresViewStore(dbClient.DB, zlog)
		userStore = store.NewPostgresUserStore(dbClient.DB, zlog)
		postStore = store.NewPostgresPostStore(dbClient.DB, zlog)
	}

	// --- Optional ClickHouse archive of accepted view events ---
	var archiver service.EventArchiver
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	var archiveWriter *archive.Writer
	if cfg.ArchiveEnabled {
		chClient, err := database.NewClickHouseDB(database.ClickHouseOptions{
			Host:     cfg.ClickHouseHost,
			Port:     cfg.ClickHousePort,
			Database: cfg.ClickHouseDB,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		}, zlog)
		if err != nil {
			zlog.Fatal("Failed to initialize ClickHouse database", zap.Error(err))
		}
		defer chClient.Close()

		archiveStore := store.NewClickHouseArchive(chClient, zlog)
		initCtx, initCancel := context.WithTimeout(rootCtx, 30*time.Second)
		if err := archiveStore.InitSchema(initCtx); err != nil {
			initCancel()
			zlog.Fatal("Failed to initialize archive schema", zap.Error(err))
		}
		initCancel()

		archiveWriter = archive.NewWriter(archiveStore, archive.WriterConfig{
			MaxBatchSize: cfg.ArchiveBatchSize,
			FlushTimeout: cfg.ArchiveFlushTimeout(),
		}, zlog)
		go archiveWriter.Start(rootCtx)
		archiver = archiveWriter
	}

	// --- Services ---
	viewService := service.NewViewService(viewStore, archiver, cfg.DedupWindow(), zlog)
	quoteGenerator := quotes.NewGenerator(cfg.GroqAPIKey, cfg.GroqModel, zlog)
	jwtManager := utils.NewJWTManager(cfg.JWTSecret, cfg.JWTDuration)

	// --- Handlers ---
	viewHandlers := handlers.NewViewHandlers(viewService, zlog)
	authHandlers := handlers.NewAuthHandlers(userStore, jwtManager, zlog)
	postHandlers := handlers.NewPostHandlers(postStore, zlog)
	quoteHandlers := handlers.NewQuoteHandlers(quoteGenerator, zlog)

	generalLimiter := middleware.NewRateLimiter(100, 15*time.Minute)
	authLimiter := middleware.NewRateLimiter(5, 15*time.Minute)

	r := gin.Default()
	r.Use(middleware.CORSMiddleware(cfg.FEOrigin))
	r.Use(generalLimiter.Middleware())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to the Qwerty API!",
			"endpoints": gin.H{
				"register": "POST /api/auth/register",
				"login":    "POST /api/auth/login",
				"profile":  "GET /api/auth/profile",
				"posts":    "GET /api/posts",
				"track":    "POST /api/view",
				"stats":    "GET /api/stats",
			},
		})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// View tracking and statistics are intentionally unauthenticated.
		api.POST("/view", viewHandlers.TrackView)
		api.GET("/stats", viewHandlers.GetStats)

		if userStore != nil && postStore != nil {
			auth := api.Group("/auth")
			{
				auth.POST("/register", authLimiter.Middleware(), authHandlers.Register)
				auth.POST("/login", authLimiter.Middleware(), authHandlers.Login)
				auth.GET("/profile", middleware.AuthRequired(jwtManager, zlog), authHandlers.GetProfile)
				auth.PUT("/profile", middleware.AuthRequired(jwtManager, zlog), authHandlers.UpdateProfile)
			}

			posts := api.Group("/posts")
			{
				posts.GET("", middleware.OptionalAuth(jwtManager), postHandlers.ListPosts)
				posts.GET("/user/me", middleware.AuthRequired(jwtManager, zlog), postHandlers.GetMyPosts)
				posts.GET("/:slug", middleware.OptionalAuth(jwtManager), postHandlers.GetPostBySlug)
				posts.POST("", middleware.AuthRequired(jwtManager, zlog), postHandlers.CreatePost)
				posts.PUT("/:slug", middleware.AuthRequired(jwtManager, zlog), postHandlers.UpdatePost)
				posts.DELETE("/:slug", middleware.AuthRequired(jwtManager, zlog), postHandlers.DeletePost)
				posts.POST("/:slug/like", middleware.AuthRequired(jwtManager, zlog), postHandlers.ToggleLike)
			}
		}

		quotesGroup := api.Group("/quotes")
		{
			quotesGroup.GET("/generate", quoteHandlers.GenerateQuote)
			quotesGroup.POST("/generate/custom", quoteHandlers.GenerateCustomQuote)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		zlog.Info("API server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("API server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Fatal("Server forced to shutdown", zap.Error(err))
	}

	// Stop the archive writer and wait for its final flush.
	rootCancel()
	if archiveWriter != nil {
		archiveWriter.Wait()
	}

	zlog.Info("Server exiting.")
}
