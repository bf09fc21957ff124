package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/config"
	logging "github.com/NapatKulnarong/SkinMatch-sub001/internal/logging"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/models"
)

var DB *gorm.DB

func Init(log *zap.Logger) {
	var err error
	dbConf := config.Conf.Database
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		dbConf.Host, dbConf.User, dbConf.Password, dbConf.DBName, dbConf.Port)

	// Route GORM logs through zap
	gormLogger := logging.NewGormZapLogger(log)

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})

	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	log.Info("Database connection established successfully.")
	runMigrations(log)
}

func runMigrations(log *zap.Logger) {
	// GORM's AutoMigrate will create tables, columns, and foreign keys.
	// It will NOT create custom indexes, so we handle that separately.
	err := DB.AutoMigrate(
		&models.Account{},
		&models.QuizSession{},
		&models.QuizAnswer{},
		&models.QuizResultRecord{},
		&models.QuizCacheEntry{},
		&models.Article{},
		&models.Product{},
		&models.WishlistItem{},
	)
	if err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}
	log.Info("Database migrations completed successfully.")

	// The janitor scans for abandoned sessions by age; keep that query off a
	// sequential scan.
	sessionIndex := `CREATE INDEX IF NOT EXISTS idx_quiz_sessions_expiry ON quiz_sessions (finalized, updated_at);`
	if err := DB.Exec(sessionIndex).Error; err != nil {
		log.Fatal("Failed to create custom index on quiz_sessions", zap.Error(err))
	}
	log.Info("Custom indexes ensured successfully.")
}
