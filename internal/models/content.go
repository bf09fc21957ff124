package models

import (
	"fmt"
	"os"
	"time"

	"github.com/lib/pq"
	"gopkg.in/yaml.v3"
)

// Article is one Skin Facts entry. Tags carry the concern/skin-type tokens
// used for personalized ranking.
type Article struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id" yaml:"id"`
	Slug        string         `gorm:"uniqueIndex;size:160" json:"slug" yaml:"slug"`
	Title       string         `gorm:"size:200" json:"title" yaml:"title"`
	Topic       string         `gorm:"index;size:64" json:"topic" yaml:"topic"`
	Tags        pq.StringArray `gorm:"type:text[]" json:"tags" yaml:"tags"`
	Summary     string         `gorm:"type:text" json:"summary" yaml:"summary"`
	Body        string         `gorm:"type:text" json:"body,omitempty" yaml:"body"`
	PublishedAt time.Time      `json:"publishedAt" yaml:"published_at"`
	CreatedAt   time.Time      `json:"-" yaml:"-"`
	UpdatedAt   time.Time      `json:"-" yaml:"-"`
}

// Product is one recommendable skincare product.
type Product struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id" yaml:"id"`
	Name          string         `gorm:"size:200" json:"name" yaml:"name"`
	Brand         string         `gorm:"size:120" json:"brand" yaml:"brand"`
	Category      string         `gorm:"index;size:64" json:"category" yaml:"category"`
	Price         float64        `json:"price" yaml:"price"`
	BudgetTier    string         `gorm:"index;size:16" json:"budgetTier" yaml:"budget_tier"`
	Tags          pq.StringArray `gorm:"type:text[]" json:"tags" yaml:"tags"`
	PregnancySafe bool           `json:"pregnancySafe" yaml:"pregnancy_safe"`
	Ingredients   pq.StringArray `gorm:"type:text[]" json:"ingredients,omitempty" yaml:"ingredients"`
	CreatedAt     time.Time      `json:"-" yaml:"-"`
	UpdatedAt     time.Time      `json:"-" yaml:"-"`
}

// WishlistItem links an account to a saved product; one row per pair.
type WishlistItem struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	AccountID string    `gorm:"size:36;uniqueIndex:idx_wishlist_account_product" json:"-"`
	ProductID string    `gorm:"size:36;uniqueIndex:idx_wishlist_account_product" json:"productId"`
	Product   Product   `gorm:"foreignKey:ProductID" json:"product"`
	CreatedAt time.Time `json:"addedAt"`
}

// ContentCatalog is the YAML seed shape for products and articles.
type ContentCatalog struct {
	Products []Product `yaml:"products"`
	Articles []Article `yaml:"articles"`
}

// LoadContentCatalog reads a YAML seed file of products and/or articles.
func LoadContentCatalog(path string) (*ContentCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content catalog: %w", err)
	}
	var catalog ContentCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to unmarshal content catalog YAML: %w", err)
	}
	return &catalog, nil
}
