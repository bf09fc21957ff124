package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/config"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/models"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/quiz"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/repository"
)

// ContentHandler serves the Skin Facts article hub and the product catalog.
type ContentHandler struct {
	log      *zap.Logger
	registry *quiz.Registry
}

func NewContentHandler(log *zap.Logger, registry *quiz.Registry) *ContentHandler {
	return &ContentHandler{log: log, registry: registry}
}

// ListArticles returns articles, optionally filtered by ?topic=.
func (h *ContentHandler) ListArticles(c *gin.Context) {
	articles, err := repository.ListArticles(c.Request.Context(), c.Query("topic"))
	if err != nil {
		h.log.Error("article listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load articles"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

// GetArticle returns one article by slug, body included.
func (h *ContentHandler) GetArticle(c *gin.Context) {
	article, err := repository.GetArticleBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}
	c.JSON(http.StatusOK, article)
}

// RecommendedArticles ranks articles by tag overlap with the caller's
// finalized skin profile. Without a finalized quiz it falls back to the most
// recent articles.
func (h *ContentHandler) RecommendedArticles(c *gin.Context) {
	articles, err := repository.ListArticles(c.Request.Context(), "")
	if err != nil {
		h.log.Error("article listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load articles"})
		return
	}
	maxPicks := config.Conf.Content.MaxArticlePicks

	store := h.registry.Get(c.Request.Context(), c.GetString(ClientIDContextKey))
	result := store.Result()
	if result == nil {
		// ListArticles returns newest first.
		if len(articles) > maxPicks {
			articles = articles[:maxPicks]
		}
		c.JSON(http.StatusOK, gin.H{"articles": articles, "personalized": false})
		return
	}

	wanted := profileTags(result.Profile)
	type ranked struct {
		article models.Article
		score   int
	}
	scored := make([]ranked, 0, len(articles))
	for _, a := range articles {
		score := 0
		for _, tag := range a.Tags {
			if wanted[tag] {
				score++
			}
		}
		if score > 0 {
			scored = append(scored, ranked{article: a, score: score})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	picks := make([]models.Article, 0, maxPicks)
	for _, r := range scored {
		if len(picks) == maxPicks {
			break
		}
		picks = append(picks, r.article)
	}
	// Pad with the latest articles when too few matched.
	for _, a := range articles {
		if len(picks) == maxPicks {
			break
		}
		if !containsArticle(picks, a.ID) {
			picks = append(picks, a)
		}
	}
	c.JSON(http.StatusOK, gin.H{"articles": picks, "personalized": true})
}

// ListProducts returns products, filterable by ?category= and ?budget=.
func (h *ContentHandler) ListProducts(c *gin.Context) {
	products, err := repository.ListProducts(c.Request.Context(), c.Query("category"), c.Query("budget"))
	if err != nil {
		h.log.Error("product listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// GetProduct returns one product by id.
func (h *ContentHandler) GetProduct(c *gin.Context) {
	product, err := repository.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	c.JSON(http.StatusOK, product)
}

func profileTags(p quiz.SkinProfile) map[string]bool {
	tags := map[string]bool{}
	for _, t := range []string{p.PrimaryConcern, p.SecondaryConcern, p.EyeConcern, p.SkinType, p.Sensitivity} {
		if t != "" && t != "none" {
			tags[t] = true
		}
	}
	if p.PregnancySafe {
		tags["pregnancy"] = true
	}
	return tags
}

func containsArticle(list []models.Article, id string) bool {
	for _, a := range list {
		if a.ID == id {
			return true
		}
	}
	return false
}
