package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/models"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/quiz"
)

func completeValues() map[quiz.QuestionKey]string {
	return map[quiz.QuestionKey]string{
		quiz.KeyPrimaryConcern:   "acne",
		quiz.KeySecondaryConcern: "redness",
		quiz.KeyEyeConcern:       "dark_circles",
		quiz.KeySkinType:         "oily",
		quiz.KeySensitivity:      "sensitive",
		quiz.KeyPregnancy:        "no",
		quiz.KeyBudget:           "mid",
	}
}

func testProducts() []models.Product {
	return []models.Product{
		{ID: "p-acne", Name: "Clear Serum", Brand: "A", Category: "serum", Price: 18, BudgetTier: "low", Tags: []string{"acne", "oily"}, PregnancySafe: true},
		{ID: "p-redness", Name: "Calm Cream", Brand: "B", Category: "moisturizer", Price: 24, BudgetTier: "mid", Tags: []string{"redness", "gentle"}, PregnancySafe: true},
		{ID: "p-luxury", Name: "Gold Elixir", Brand: "C", Category: "serum", Price: 160, BudgetTier: "high", Tags: []string{"acne"}, PregnancySafe: true},
		{ID: "p-retinol", Name: "Night Retinol", Brand: "D", Category: "serum", Price: 30, BudgetTier: "mid", Tags: []string{"wrinkles"}, PregnancySafe: false},
		{ID: "p-unrelated", Name: "Foot Balm", Brand: "E", Category: "balm", Price: 9, BudgetTier: "low", Tags: []string{"feet"}, PregnancySafe: true},
	}
}

func TestProfileFromValues(t *testing.T) {
	profile := ProfileFromValues(completeValues())

	assert.Equal(t, "oily", profile.SkinType)
	assert.Equal(t, "acne", profile.PrimaryConcern)
	assert.Equal(t, "redness", profile.SecondaryConcern)
	assert.Equal(t, "dark_circles", profile.EyeConcern)
	assert.Equal(t, "sensitive", profile.Sensitivity)
	assert.False(t, profile.PregnancySafe)
	assert.Equal(t, "mid", profile.Budget)
}

func TestBuildFiltersBudgetAndRanksByTagOverlap(t *testing.T) {
	engine := NewRecommendEngine(nil, 6, zap.NewNop())

	result := engine.Build(context.Background(), "sess-1", completeValues(), testProducts())

	require.NotNil(t, result)
	assert.Equal(t, "sess-1", result.SessionID)
	require.NotEmpty(t, result.Recommendations)

	ids := make([]string, 0, len(result.Recommendations))
	for _, rec := range result.Recommendations {
		ids = append(ids, rec.ProductID)
	}
	// High tier is above the mid budget, and a product with no matching tags
	// never appears.
	assert.NotContains(t, ids, "p-luxury")
	assert.NotContains(t, ids, "p-unrelated")
	// Primary concern plus skin-type match outranks a secondary-concern match.
	assert.Equal(t, "p-acne", ids[0])
}

func TestBuildExcludesUnsafeProductsWhenPregnant(t *testing.T) {
	values := completeValues()
	values[quiz.KeyPrimaryConcern] = "wrinkles"
	values[quiz.KeyPregnancy] = "yes"
	engine := NewRecommendEngine(nil, 6, zap.NewNop())

	result := engine.Build(context.Background(), "sess-2", values, testProducts())

	for _, rec := range result.Recommendations {
		assert.NotEqual(t, "p-retinol", rec.ProductID, "pregnancy-unsafe product must be filtered out")
	}
	assert.True(t, result.Profile.PregnancySafe)
}

func TestBuildCapsRecommendations(t *testing.T) {
	engine := NewRecommendEngine(nil, 1, zap.NewNop())

	result := engine.Build(context.Background(), "sess-3", completeValues(), testProducts())

	assert.Len(t, result.Recommendations, 1)
}

func TestFallbackStrategySwapsRetinoidsWhenPregnant(t *testing.T) {
	pregnant := quiz.SkinProfile{SkinType: "dry", PrimaryConcern: "wrinkles", PregnancySafe: true}
	notPregnant := quiz.SkinProfile{SkinType: "dry", PrimaryConcern: "wrinkles"}

	assert.Contains(t, fallbackStrategy(pregnant), "bakuchiol")
	assert.Contains(t, fallbackStrategy(notPregnant), "retinoid")
	assert.Contains(t, fallbackStrategy(pregnant), "SPF")
}

func TestRecommendationReasonsAreDeduped(t *testing.T) {
	engine := NewRecommendEngine(nil, 6, zap.NewNop())
	products := []models.Product{
		{ID: "p-dup", Name: "Dup", Price: 10, BudgetTier: "low", Tags: []string{"acne", "acne"}, PregnancySafe: true},
	}

	result := engine.Build(context.Background(), "sess-4", completeValues(), products)

	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, "targets acne", result.Recommendations[0].Reason)
}
