package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/quiz"
)

// ErrScannerDisabled is returned when no AI service is configured.
var ErrScannerDisabled = errors.New("ingredient scanner is not configured")

// IngredientFinding is the verdict on a single ingredient.
type IngredientFinding struct {
	Name   string `json:"name"`
	Rating string `json:"rating"` // good, neutral, caution, avoid
	Note   string `json:"note"`
}

// ScanVerdict is the full analysis of one ingredient list.
type ScanVerdict struct {
	Overall     string              `json:"overall"`
	Ingredients []IngredientFinding `json:"ingredients"`
	Warnings    []string            `json:"warnings"`
}

// ScannerService analyzes product ingredient lists against a skin profile
// using the external AI service.
type ScannerService struct {
	ai  *AIClient
	log *zap.Logger
}

// NewScannerService builds the service. ai may be nil; AnalyzeLabel then
// reports ErrScannerDisabled.
func NewScannerService(ai *AIClient, log *zap.Logger) *ScannerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScannerService{ai: ai, log: log}
}

// Enabled reports whether an AI service is wired in.
func (s *ScannerService) Enabled() bool {
	return s.ai != nil
}

// AnalyzeLabel rates each ingredient for the given profile. profile may be
// nil for anonymous scans without a finished quiz.
func (s *ScannerService) AnalyzeLabel(ctx context.Context, ingredients string, profile *quiz.SkinProfile) (*ScanVerdict, error) {
	if s.ai == nil {
		return nil, ErrScannerDisabled
	}
	ingredients = strings.TrimSpace(ingredients)
	if ingredients == "" {
		return nil, errors.New("empty ingredient list")
	}

	system := "You are a cosmetic chemist. Rate each ingredient as good, neutral, caution or avoid for the user's skin. " +
		"Reply as JSON: {\"overall\": string, \"ingredients\": [{\"name\": string, \"rating\": string, \"note\": string}], \"warnings\": [string]}."
	user := "Ingredient list: " + ingredients
	if profile != nil {
		user += fmt.Sprintf(
			"\nSkin profile: type %s, main concern %s, sensitivity %s, pregnant or nursing: %t.",
			profile.SkinType, profile.PrimaryConcern, profile.Sensitivity, profile.PregnancySafe,
		)
	}

	var verdict ScanVerdict
	if err := s.ai.GenerateJSON(ctx, system, user, &verdict); err != nil {
		s.log.Warn("ingredient scan failed", zap.Error(err))
		return nil, fmt.Errorf("ingredient analysis failed: %w", err)
	}
	if verdict.Overall == "" && len(verdict.Ingredients) == 0 {
		return nil, errors.New("AI service returned an empty verdict")
	}
	return &verdict, nil
}
