package main

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/config"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/database"
	logger "github.com/NapatKulnarong/SkinMatch-sub001/internal/logging"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/models"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/quiz"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/repository"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/router"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/services"
)

func main() {
	// Config loading needs a logger, the real logger needs the config. Boot
	// with a plain console logger and replace it once the config is in.
	bootLog, err := zap.NewDevelopment()
	if err != nil {
		panic("failed to initialize bootstrap logger: " + err.Error())
	}
	if err := config.Init(".", bootLog); err != nil {
		bootLog.Fatal("Failed to load configuration", zap.Error(err))
	}

	log, err := logger.Init(".", config.Conf.Logging)
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer log.Sync()

	// Initialize Database
	database.Init(log)

	// Optional redis result cache
	var rdb *redis.Client
	if addr := config.Conf.Redis.Addr; addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.Conf.Redis.Password,
			DB:       config.Conf.Redis.DB,
		})
		log.Info("Redis result cache enabled", zap.String("addr", addr))
	}

	// Load the quiz question catalog at startup
	catalog, err := models.LoadQuestionCatalog("config/questions.yaml")
	if err != nil {
		log.Fatal("Failed to load question catalog", zap.Error(err))
	}

	// Seed products and articles when their tables are empty
	content := &models.ContentCatalog{}
	if products, err := models.LoadContentCatalog("config/products.yaml"); err == nil {
		content.Products = products.Products
	} else {
		log.Warn("Product seed catalog not loaded", zap.Error(err))
	}
	if articles, err := models.LoadContentCatalog("config/articles.yaml"); err == nil {
		content.Articles = articles.Articles
	} else {
		log.Warn("Article seed catalog not loaded", zap.Error(err))
	}
	if err := repository.SeedContent(content, log); err != nil {
		log.Fatal("Failed to seed content", zap.Error(err))
	}

	// Services
	ai, err := services.NewAIClient(config.Conf.Scanner, log)
	if err != nil {
		log.Warn("AI service disabled", zap.Error(err))
		ai = nil
	}
	engine := services.NewRecommendEngine(ai, config.Conf.Content.MaxRecommendations, log)
	questionnaire := services.NewQuestionnaireService(catalog, engine, rdb, config.Conf.Redis.ResultTTL, log)
	scanner := services.NewScannerService(ai, log)

	// One quiz store per browser client, backed by the durable DB mirror
	registry := quiz.NewRegistry(func(clientID string) *quiz.Store {
		return quiz.NewStore(
			questionnaire.Backend(clientID),
			repository.NewClientCache(clientID, log),
			log,
		)
	}, log)

	// Setup router, passing the logger to it
	r := router.Setup(log, registry, scanner)

	// Background cleanup of abandoned sessions and idle stores
	janitor := services.NewJanitor(registry, log)
	janitor.Start()
	defer janitor.Stop()

	// Start the Gin server
	port := ":" + config.Conf.Server.Port
	log.Info("Server listening on http://localhost" + port)
	if err := r.Run(port); err != nil {
		log.Fatal("Failed to run Gin server", zap.Error(err))
	}
}
