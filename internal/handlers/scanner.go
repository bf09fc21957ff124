package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/quiz"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/services"
)

// ScannerHandler exposes the ingredient-label analysis endpoint.
type ScannerHandler struct {
	log      *zap.Logger
	scanner  *services.ScannerService
	registry *quiz.Registry
}

func NewScannerHandler(log *zap.Logger, scanner *services.ScannerService, registry *quiz.Registry) *ScannerHandler {
	return &ScannerHandler{log: log, scanner: scanner, registry: registry}
}

type analyzeRequest struct {
	Ingredients string `json:"ingredients"`
}

// Analyze rates an ingredient list. When the caller has a finalized quiz, its
// skin profile personalizes the verdict.
func (h *ScannerHandler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Ingredients == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ingredients text is required"})
		return
	}

	var profile *quiz.SkinProfile
	store := h.registry.Get(c.Request.Context(), c.GetString(ClientIDContextKey))
	if result := store.Result(); result != nil {
		p := result.Profile
		profile = &p
	}

	verdict, err := h.scanner.AnalyzeLabel(c.Request.Context(), req.Ingredients, profile)
	if err != nil {
		if errors.Is(err, services.ErrScannerDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ingredient scanner is not available"})
			return
		}
		h.log.Warn("ingredient analysis failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "ingredient analysis failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"verdict": verdict, "personalized": profile != nil})
}
