package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/models"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/repository"
)

// WishlistHandler manages the per-account product wishlist.
type WishlistHandler struct {
	log *zap.Logger
}

func NewWishlistHandler(log *zap.Logger) *WishlistHandler {
	return &WishlistHandler{log: log}
}

// List returns the account's saved products, newest first.
func (h *WishlistHandler) List(c *gin.Context) {
	account := c.MustGet(AccountContextKey).(*models.Account)
	items, err := repository.ListWishlist(c.Request.Context(), account.ID)
	if err != nil {
		h.log.Error("wishlist listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load wishlist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type addWishlistRequest struct {
	ProductID string `json:"productId"`
}

// Add saves a product. Adding the same product twice is a no-op.
func (h *WishlistHandler) Add(c *gin.Context) {
	account := c.MustGet(AccountContextKey).(*models.Account)
	var req addWishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProductID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId is required"})
		return
	}
	if err := repository.AddWishlistItem(c.Request.Context(), account.ID, req.ProductID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		h.log.Error("wishlist add failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save product"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Remove drops a product from the wishlist.
func (h *WishlistHandler) Remove(c *gin.Context) {
	account := c.MustGet(AccountContextKey).(*models.Account)
	if err := repository.RemoveWishlistItem(c.Request.Context(), account.ID, c.Param("productId")); err != nil {
		h.log.Error("wishlist removal failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not remove product"})
		return
	}
	c.Status(http.StatusNoContent)
}
