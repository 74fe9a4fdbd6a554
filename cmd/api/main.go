package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourusername/social-api/internal/config"
	"github.com/yourusername/social-api/internal/domain/repository"
	"github.com/yourusername/social-api/internal/handler"
	"github.com/yourusername/social-api/internal/metrics"
	"github.com/yourusername/social-api/internal/middleware"
	pgRepo "github.com/yourusername/social-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/social-api/internal/repository/redis"
	"github.com/yourusername/social-api/internal/service"
	ws "github.com/yourusername/social-api/internal/websocket"
	"github.com/yourusername/social-api/pkg/auth"
	"github.com/yourusername/social-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	isProduction := gin.Mode() == gin.ReleaseMode

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), !isProduction)
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db, database.DefaultMigrationsPath); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Контекст приложения: отменяется при остановке и завершает фоновые горутины
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient, err := database.NewUniversalRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	metrics.MustRegister()

	// Инициализируем репозитории
	userRepo := pgRepo.NewUserRepo(db)
	postRepo := pgRepo.NewPostRepo(db)
	followRepo := pgRepo.NewFollowRepo(db)
	invalidTokenRepo := pgRepo.NewInvalidTokenRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	var codeRepo repository.OneTimeCodeRepository
	switch cfg.OTP.Store {
	case "redis":
		redisCodeRepo, err := redisRepo.NewOneTimeCodeRepo(redisClient)
		if err != nil {
			log.Printf("Failed to initialize OneTimeCodeRepo: %v", err)
			os.Exit(1)
		}
		codeRepo = redisCodeRepo
	default:
		codeRepo = pgRepo.NewOneTimeCodeRepo(db)
	}

	// Pub/Sub нужен только в кластерном режиме: иначе события доставляются локально
	var pubSubProvider ws.PubSubProvider = &ws.NoOpPubSub{}
	if cfg.WebSocket.ClusterEnabled {
		redisPubSub, err := ws.NewRedisPubSub(redisClient)
		if err != nil {
			log.Printf("Failed to initialize Redis PubSub: %v", err)
			os.Exit(1)
		}
		pubSubProvider = redisPubSub
		log.Println("WebSocket cluster mode enabled (Redis Pub/Sub)")
	}

	jwtService, err := auth.NewJWTService(
		cfg.JWT.Secret,
		cfg.JWT.ExpirationHrs,
		invalidTokenRepo,
		cfg.JWT.CleanupInterval,
		pubSubProvider,
		ctx,
	)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	stagedTokens, err := auth.NewStagedTokenService(cfg.Auth.StagedTokenSecret, cfg.Auth.StagedTokenTTL, nil)
	if err != nil {
		log.Printf("Failed to initialize StagedTokenService: %v", err)
		os.Exit(1)
	}

	// Инициализируем сервисы
	otpService, err := service.NewOTPService(codeRepo, cfg.OTP.TTL, cfg.OTP.Pepper, cfg.OTP.InvalidatePrevious, nil)
	if err != nil {
		log.Printf("Failed to initialize OTPService: %v", err)
		os.Exit(1)
	}
	// Redis удаляет просроченные коды сам
	if cfg.OTP.Store == "postgres" {
		go otpService.RunSweeper(ctx, cfg.OTP.SweepInterval)
	}

	var emailService service.EmailService = &service.NoopEmailService{LogCodes: !isProduction}
	if cfg.Email.Provider == "resend" {
		resendService, err := service.NewResendEmailService(cfg.Email.ResendAPIKey, cfg.Email.From)
		if err != nil {
			log.Printf("Failed to initialize ResendEmailService: %v", err)
			os.Exit(1)
		}
		emailService = resendService
	}

	credentialFlow, err := service.NewCredentialFlowService(
		userRepo,
		otpService,
		emailService,
		stagedTokens,
		jwtService,
		cacheRepo,
		service.CredentialFlowConfig{
			SingleUseTokens: cfg.Auth.SingleUseTokens,
			MaxAttempts:     cfg.OTP.MaxAttempts,
			AttemptWindow:   cfg.Auth.StagedTokenTTL,
		},
	)
	if err != nil {
		log.Printf("Failed to initialize CredentialFlowService: %v", err)
		os.Exit(1)
	}

	authService, err := service.NewAuthService(userRepo, jwtService)
	if err != nil {
		log.Printf("Failed to initialize AuthService: %v", err)
		os.Exit(1)
	}

	uploadService := service.NewUploadService(cfg.Uploads.Dir, cfg.Uploads.MaxSizeMB)

	wsHub := ws.NewHub(func(total int) {
		metrics.WebSocketConnections.Set(float64(total))
	})
	wsManager := ws.NewManager(wsHub, pubSubProvider, cfg.WebSocket.Channel, cfg.WebSocket.ClusterEnabled)
	if err := wsManager.Start(ctx); err != nil {
		log.Printf("Failed to start WebSocket manager: %v", err)
		os.Exit(1)
	}

	userService := service.NewUserService(userRepo, uploadService)
	followService := service.NewFollowService(followRepo, userRepo, wsManager)
	postService := service.NewPostService(postRepo, uploadService, wsManager)

	// Инициализируем обработчики
	authHandler := handler.NewAuthHandler(credentialFlow, authService)
	userHandler := handler.NewUserHandler(userService, uploadService.MaxBytes())
	followHandler := handler.NewFollowHandler(followService)
	postHandler := handler.NewPostHandler(postService, uploadService.MaxBytes())
	wsHandler := handler.NewWSHandler(wsHub, jwtService, cfg.CORS.AllowedOrigins, cfg.WebSocket.SendBuffer)

	// Инициализируем middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	rateLimiter := middleware.NewRateLimiter(redisClient)
	otpLimit := middleware.OTPRateLimitConfig(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	strictLimit := middleware.StrictRateLimitConfig(cfg.RateLimit.StrictMaxRequests, cfg.RateLimit.Window)
	// otpLimit считается на маршрут, strictLimit - на IP по всем маршрутам сразу
	otpLimited := rateLimiter.Limit(otpLimit)
	strictLimited := rateLimiter.LimitByIP(strictLimit)
	limit := func(h gin.HandlerFunc) gin.HandlerFunc {
		if !cfg.RateLimit.Enabled {
			return func(c *gin.Context) { c.Next() }
		}
		return h
	}

	// Инициализируем роутер Gin
	router := gin.Default()
	router.Use(middleware.Metrics())

	// Настройка доверенных прокси для корректной работы c.ClientIP() (лимиты по IP)
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.Static(service.URLPrefix, cfg.Uploads.Dir)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/request-otp", limit(otpLimited), authHandler.RequestOTP)
			authGroup.POST("/verify-otp", limit(strictLimited), authHandler.VerifyOTP)
			authGroup.POST("/register", limit(otpLimited), authHandler.Register)
			authGroup.POST("/login", limit(strictLimited), authHandler.Login)

			reset := authGroup.Group("/password-reset")
			{
				reset.POST("/send-otp", limit(otpLimited), authHandler.SendPasswordResetOTP)
				reset.POST("/verify-otp", limit(strictLimited), authHandler.VerifyPasswordResetOTP)
				reset.POST("/reset-password", limit(otpLimited), authHandler.ResetPassword)
			}
		}

		users := api.Group("/users")
		{
			users.GET("/:userId", middleware.ExtractUintParam("userId", "userID"), userHandler.GetUser)

			authedUsers := users.Group("")
			authedUsers.Use(authMiddleware.RequireAuth())
			{
				authedUsers.PUT("/:userId", middleware.ExtractUintParam("userId", "userID"), userHandler.UpdateUser)
				authedUsers.POST("/profile-picture", userHandler.UploadProfilePicture)
				authedUsers.POST("/cover-photo", userHandler.UploadCoverPhoto)
			}
		}

		follow := api.Group("/follow")
		{
			follow.GET("/followers/:userId", middleware.ExtractUintParam("userId", "userID"), followHandler.GetFollowers)
			follow.GET("/following/:userId", middleware.ExtractUintParam("userId", "userID"), followHandler.GetFollowing)

			authedFollow := follow.Group("")
			authedFollow.Use(authMiddleware.RequireAuth())
			{
				authedFollow.POST("/follow/:userId", middleware.ExtractUintParam("userId", "userID"), followHandler.ToggleFollow)
				authedFollow.GET("/followers/:userId/export", middleware.ExtractUintParam("userId", "userID"), followHandler.ExportFollowers)
				authedFollow.DELETE("/remove-follower/:followerId", middleware.ExtractUintParam("followerId", "followerID"), followHandler.RemoveFollower)
			}
		}

		posts := api.Group("/posts")
		{
			posts.GET("", postHandler.ListPosts)

			post := posts.Group("/:postId")
			post.Use(middleware.ExtractUintParam("postId", "postID"))
			{
				post.GET("", postHandler.GetPost)
				post.GET("/likes", postHandler.ListPostLikes)
				post.GET("/comments", postHandler.ListComments)

				comment := post.Group("/comments/:commentId")
				comment.Use(middleware.ExtractUintParam("commentId", "commentID"))
				{
					comment.GET("/likes", postHandler.ListCommentLikes)
					comment.GET("/replies", postHandler.ListReplies)

					reply := comment.Group("/replies/:replyId")
					reply.Use(middleware.ExtractUintParam("replyId", "replyID"))
					{
						reply.GET("/likes", postHandler.ListReplyLikes)

						authedReply := reply.Group("")
						authedReply.Use(authMiddleware.RequireAuth())
						{
							authedReply.PUT("", postHandler.UpdateReply)
							authedReply.DELETE("", postHandler.DeleteReply)
							authedReply.POST("/like", postHandler.ToggleReplyLike)
						}
					}

					authedComment := comment.Group("")
					authedComment.Use(authMiddleware.RequireAuth())
					{
						authedComment.PUT("", postHandler.UpdateComment)
						authedComment.DELETE("", postHandler.DeleteComment)
						authedComment.POST("/like", postHandler.ToggleCommentLike)
						authedComment.POST("/replies", postHandler.AddReply)
					}
				}

				authedPost := post.Group("")
				authedPost.Use(authMiddleware.RequireAuth())
				{
					authedPost.PUT("", postHandler.UpdatePost)
					authedPost.DELETE("", postHandler.DeletePost)
					authedPost.POST("/like", postHandler.TogglePostLike)
					authedPost.POST("/comments", postHandler.AddComment)
				}
			}

			authedPosts := posts.Group("")
			authedPosts.Use(authMiddleware.RequireAuth())
			{
				authedPosts.POST("", postHandler.CreatePost)
			}
		}
	}

	// WebSocket маршрут, токен передается в query (?token=)
	router.GET("/ws", wsHandler.HandleConnection)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Останавливаем фоновые горутины (очистка кодов, JWT cleanup, подписка Pub/Sub)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if err := pubSubProvider.Close(); err != nil {
		log.Printf("Error closing PubSub provider: %v", err)
	}
	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}
	if err := database.Close(db); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	log.Println("Server exited properly")
}
