package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/database"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/models"
)

// ErrProductNotFound marks a wishlist write referencing an unknown product.
var ErrProductNotFound = errors.New("product not found")

// AddWishlistItem saves a product to an account's wishlist. Adding the same
// product twice is a no-op.
func AddWishlistItem(ctx context.Context, accountID, productID string) error {
	if _, err := GetProduct(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	item := models.WishlistItem{AccountID: accountID, ProductID: productID}
	return database.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "product_id"}},
		DoNothing: true,
	}).Create(&item).Error
}

// ListWishlist returns the account's saved products, newest first.
func ListWishlist(ctx context.Context, accountID string) ([]models.WishlistItem, error) {
	var items []models.WishlistItem
	err := database.DB.WithContext(ctx).
		Preload("Product").
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// RemoveWishlistItem deletes one product from the wishlist.
func RemoveWishlistItem(ctx context.Context, accountID, productID string) error {
	return database.DB.WithContext(ctx).
		Where("account_id = ? AND product_id = ?", accountID, productID).
		Delete(&models.WishlistItem{}).Error
}
