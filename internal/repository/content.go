package repository

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/database"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/models"
)

// ListArticles returns published articles, optionally filtered by topic,
// newest first.
func ListArticles(ctx context.Context, topic string) ([]models.Article, error) {
	var articles []models.Article
	query := database.DB.WithContext(ctx).Order("published_at DESC")
	if topic != "" {
		query = query.Where("topic = ?", topic)
	}
	err := query.Find(&articles).Error
	return articles, err
}

// GetArticleBySlug loads one article including its body.
func GetArticleBySlug(ctx context.Context, slug string) (*models.Article, error) {
	var article models.Article
	result := database.DB.WithContext(ctx).First(&article, "slug = ?", slug)
	return &article, result.Error
}

// ListProducts returns products, optionally filtered by category and budget
// tier.
func ListProducts(ctx context.Context, category, budgetTier string) ([]models.Product, error) {
	var products []models.Product
	query := database.DB.WithContext(ctx).Order("name ASC")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if budgetTier != "" {
		query = query.Where("budget_tier = ?", budgetTier)
	}
	err := query.Find(&products).Error
	return products, err
}

// GetProduct loads one product by id.
func GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	result := database.DB.WithContext(ctx).First(&product, "id = ?", productID)
	return &product, result.Error
}

// AllProducts returns the full product catalog for recommendation scoring.
func AllProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := database.DB.WithContext(ctx).Find(&products).Error
	return products, err
}

// SeedContent inserts catalog products and articles when their tables are
// empty, so a fresh deployment has something to recommend.
func SeedContent(catalog *models.ContentCatalog, log *zap.Logger) error {
	var productCount int64
	if err := database.DB.Model(&models.Product{}).Count(&productCount).Error; err != nil {
		return err
	}
	if productCount == 0 && len(catalog.Products) > 0 {
		for i := range catalog.Products {
			if catalog.Products[i].ID == "" {
				catalog.Products[i].ID = uuid.NewString()
			}
		}
		if err := database.DB.Create(&catalog.Products).Error; err != nil {
			return err
		}
		log.Info("Seeded product catalog", zap.Int("count", len(catalog.Products)))
	}

	var articleCount int64
	if err := database.DB.Model(&models.Article{}).Count(&articleCount).Error; err != nil {
		return err
	}
	if articleCount == 0 && len(catalog.Articles) > 0 {
		for i := range catalog.Articles {
			if catalog.Articles[i].ID == "" {
				catalog.Articles[i].ID = uuid.NewString()
			}
		}
		if err := database.DB.Create(&catalog.Articles).Error; err != nil {
			return err
		}
		log.Info("Seeded article catalog", zap.Int("count", len(catalog.Articles)))
	}
	return nil
}
