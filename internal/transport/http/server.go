package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"agroai-backend/internal/ai"
	appsvc "agroai-backend/internal/app"
	"agroai-backend/internal/bootstrap"
	"agroai-backend/internal/cache"
	"agroai-backend/internal/classifier"
	rabbitmqClient "agroai-backend/internal/platform/rabbitmq"
	"agroai-backend/internal/repository"
	"agroai-backend/internal/transport/http/handler"
	"agroai-backend/internal/transport/http/middleware"
	"agroai-backend/internal/upload"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	cfg := app.Config
	gin.SetMode(cfg.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.CORS(cfg.App.CORSOrigin))

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	irrigationRepo := repository.NewIrrigationRepository(app.MySQL)
	detectionRepo := repository.NewDetectionRepository(app.MySQL)

	llmClient := ai.NewClient(time.Duration(cfg.LLM.TimeoutSeconds) * time.Second)
	modelClient := classifier.NewClient(cfg.Classifier.BaseURL, time.Duration(cfg.Classifier.TimeoutSeconds)*time.Second)
	uploadStore := upload.NewStore(cfg.Upload.Dir, cfg.Upload.MaxSizeMB)
	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	auditPublisher := rabbitmqClient.NewAuditPublisher(app.MQConn, cfg.RabbitMQ.AuditEventQueue)

	authService := appsvc.NewAuthService(
		userRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)
	irrigationService := appsvc.NewIrrigationService(
		irrigationRepo,
		llmClient,
		auditPublisher,
		historyCache,
		ai.ChatConfig{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
		},
	)
	detectionService := appsvc.NewDetectionService(detectionRepo, modelClient, uploadStore, auditPublisher)
	translationService := appsvc.NewTranslationService(cfg.Translator)

	authHandler := handler.NewAuthHandler(authService)
	irrigationHandler := handler.NewIrrigationHandler(irrigationService, cfg.IsProduction())
	detectionHandler := handler.NewDetectionHandler(detectionService, cfg.IsProduction())
	translateHandler := handler.NewTranslateHandler(translationService)

	api := router.Group("/api")
	authJWT := middleware.AuthJWT(cfg.Auth.JWTSecret)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", authJWT, authHandler.Me)

	irrigationGroup := api.Group("/irrigation")
	irrigationGroup.GET("/health", handler.ServiceHealth("Irrigation Advice API"))
	irrigationGroup.POST("", authJWT, irrigationHandler.GenerateAdvice)
	irrigationGroup.GET("/history", authJWT, irrigationHandler.History)
	irrigationGroup.GET("/details/:irrigationId", authJWT, irrigationHandler.Details)
	irrigationGroup.GET("/stats", authJWT, irrigationHandler.Stats)

	processingGroup := api.Group("/processing")
	processingGroup.GET("/health", handler.ServiceHealth("Disease Detection API"))
	processingGroup.POST("", authJWT, detectionHandler.Process)
	processingGroup.GET("/history/:userId", authJWT, detectionHandler.History)
	processingGroup.GET("/detection/:detectionId", authJWT, detectionHandler.Details)
	processingGroup.GET("/stats/:userId", authJWT, detectionHandler.Stats)

	api.GET("/translate/:lang", translateHandler.Translate)

	return router
}
