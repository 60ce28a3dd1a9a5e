package main

import (
	_ "salesboard/api/swagger" // swagger docs
	"salesboard/internal/config"
	"salesboard/internal/database"
	"salesboard/internal/handler"
	"salesboard/internal/jobs"
	"salesboard/internal/logger"
	"salesboard/internal/middleware"
	"salesboard/internal/repository"
	"salesboard/internal/service"
	"salesboard/internal/websocket"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Salesboard API
// @version         1.0
// @description     Reconciled sales listing, totals and export per project.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Fatalf("Invalid configuration: %v", err)
	}
	log := logger.New(cfg.LogLevel)

	loc, err := time.LoadLocation(cfg.Sales.BusinessTimezone)
	if err != nil {
		log.Fatalf("Invalid business timezone: %v", err)
	}
	if cfg.Sales.ProducerShare.String() == config.DefaultProducerShare {
		log.WithField("producer_share", cfg.Sales.ProducerShare.String()).
			Warn("Estimated net amounts use the default producer share, which has not been confirmed")
	}

	db, err := database.NewConnection(cfg.DatabaseDSN, log)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Info("Connected to PostgreSQL successfully.")

	// Set up dependencies (Repository -> Service -> Handler)
	ledgerRepo := repository.NewLedgerRepository(db)
	legacyRepo := repository.NewLegacySaleRepository(db)
	offerRepo := repository.NewOfferMappingRepository(db)
	memberRepo := repository.NewProjectMemberRepository(db)
	txManager := repository.NewTransactionManager(db)

	middleware.InitAuth([]byte(cfg.JWTSecret), memberRepo)

	salesService := service.NewSalesService(ledgerRepo, legacyRepo, offerRepo, txManager, service.SalesOptions{
		Location:      loc,
		RowCap:        cfg.Sales.RowCap,
		ProducerShare: cfg.Sales.ProducerShare,
		ChunkTimeout:  cfg.Sales.ChunkTimeout,
		RetryMax:      cfg.Sales.RetryMax,
		RetryBase:     cfg.Sales.RetryBase,
		ExportMaxRows: cfg.Sales.ExportMaxRows,
	}, log)
	integrityService := service.NewOfferIntegrityService(offerRepo, log)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(salesService, middleware.IsProjectMember, log)
	go wsHub.Run()

	// Scheduled integrity report
	integrityCron, err := jobs.NewIntegrityJob(integrityService, log).Schedule(cfg.Integrity.Schedule, loc)
	if err != nil {
		log.Fatalf("Integrity job setup failed: %v", err)
	}
	integrityCron.Start()
	defer integrityCron.Stop()

	// Initialize Handlers
	salesHandler := handler.NewSalesHandler(salesService, log)
	offerMappingHandler := handler.NewOfferMappingHandler(integrityService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint
	router.GET("/ws/sales", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.JWTSecret())
	})

	// API Routing
	salesHandler.RegisterRoutes(router.Group(""))
	offerMappingHandler.RegisterRoutes(router.Group(""))

	log.Infof("Server listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
