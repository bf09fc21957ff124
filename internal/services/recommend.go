package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/models"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/quiz"
)

// Budget tiers, cheapest first. A profile's tier admits products of the same
// tier or cheaper.
var budgetRank = map[string]int{"low": 0, "mid": 1, "high": 2}

// RecommendEngine turns a complete answer set into the skin profile, summary,
// strategy notes and product recommendations of a quiz result.
type RecommendEngine struct {
	ai      *AIClient
	maxRecs int
	log     *zap.Logger
}

// NewRecommendEngine builds the engine. ai may be nil; strategy notes then
// come from the rule-based fallback.
func NewRecommendEngine(ai *AIClient, maxRecs int, log *zap.Logger) *RecommendEngine {
	if maxRecs <= 0 {
		maxRecs = 6
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RecommendEngine{ai: ai, maxRecs: maxRecs, log: log}
}

// Build computes the result for one finalized session.
func (e *RecommendEngine) Build(ctx context.Context, sessionID string, values map[quiz.QuestionKey]string, products []models.Product) *quiz.Result {
	profile := ProfileFromValues(values)
	return &quiz.Result{
		SessionID:       sessionID,
		Profile:         profile,
		Summary:         summarize(profile),
		Strategy:        e.strategy(ctx, profile),
		Recommendations: e.recommend(profile, products),
		GeneratedAt:     time.Now().UTC(),
	}
}

// ProfileFromValues maps the seven answer value tokens onto a skin profile.
func ProfileFromValues(values map[quiz.QuestionKey]string) quiz.SkinProfile {
	return quiz.SkinProfile{
		SkinType:         values[quiz.KeySkinType],
		PrimaryConcern:   values[quiz.KeyPrimaryConcern],
		SecondaryConcern: values[quiz.KeySecondaryConcern],
		EyeConcern:       values[quiz.KeyEyeConcern],
		Sensitivity:      values[quiz.KeySensitivity],
		PregnancySafe:    values[quiz.KeyPregnancy] == "yes",
		Budget:           values[quiz.KeyBudget],
	}
}

func summarize(p quiz.SkinProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your skin reads as %s with %s as the main concern", p.SkinType, p.PrimaryConcern)
	if p.SecondaryConcern != "" && p.SecondaryConcern != "none" {
		fmt.Fprintf(&b, ", followed by %s", p.SecondaryConcern)
	}
	b.WriteString(".")
	if p.Sensitivity == "sensitive" {
		b.WriteString(" It leans sensitive, so introduce new actives one at a time.")
	}
	if p.PregnancySafe {
		b.WriteString(" All picks below are screened for pregnancy safety.")
	}
	return b.String()
}

// strategy asks the AI service for routine notes and falls back to a
// rule-based text when the service is absent or failing. Finalize never fails
// because of the strategy.
func (e *RecommendEngine) strategy(ctx context.Context, p quiz.SkinProfile) string {
	if e.ai != nil {
		system := "You are a dermatology assistant. Reply with a short, practical skincare routine."
		user := fmt.Sprintf(
			"Skin type: %s. Primary concern: %s. Secondary concern: %s. Eye area: %s. Sensitivity: %s. Pregnant or nursing: %t. Budget: %s.",
			p.SkinType, p.PrimaryConcern, p.SecondaryConcern, p.EyeConcern, p.Sensitivity, p.PregnancySafe, p.Budget,
		)
		text, err := e.ai.GenerateText(ctx, system, user)
		if err == nil && text != "" {
			return text
		}
		e.log.Warn("AI strategy generation failed, using fallback", zap.Error(err))
	}
	return fallbackStrategy(p)
}

func fallbackStrategy(p quiz.SkinProfile) string {
	steps := []string{"Cleanse gently twice a day."}
	switch p.PrimaryConcern {
	case "acne":
		steps = append(steps, "Use a salicylic acid treatment in the evening.")
	case "wrinkles":
		if p.PregnancySafe {
			steps = append(steps, "Use bakuchiol instead of retinoids while pregnant or nursing.")
		} else {
			steps = append(steps, "Introduce a retinoid two to three nights a week.")
		}
	case "dark_spots":
		steps = append(steps, "Add a vitamin C serum in the morning.")
	case "redness":
		steps = append(steps, "Look for centella or azelaic acid to calm flare-ups.")
	case "dryness":
		steps = append(steps, "Layer a hyaluronic acid serum under your moisturizer.")
	}
	if p.SkinType == "oily" {
		steps = append(steps, "Prefer gel textures and non-comedogenic formulas.")
	}
	steps = append(steps, "Finish every morning with broad-spectrum SPF.")
	return strings.Join(steps, " ")
}

type scoredProduct struct {
	product models.Product
	score   int
	reasons []string
}

// recommend scores the catalog against the profile. Pregnancy safety and
// budget act as hard filters; concern and skin-type tag overlap ranks the
// rest.
func (e *RecommendEngine) recommend(p quiz.SkinProfile, products []models.Product) []quiz.ProductRec {
	profileTier, tierKnown := budgetRank[p.Budget]
	scored := make([]scoredProduct, 0, len(products))

	for _, product := range products {
		if p.PregnancySafe && !product.PregnancySafe {
			continue
		}
		if tierKnown {
			tier, ok := budgetRank[product.BudgetTier]
			if ok && tier > profileTier {
				continue
			}
		}

		sp := scoredProduct{product: product}
		for _, tag := range product.Tags {
			switch tag {
			case p.PrimaryConcern:
				sp.score += 3
				sp.reasons = append(sp.reasons, "targets "+prettyToken(p.PrimaryConcern))
			case p.SecondaryConcern:
				sp.score += 2
				sp.reasons = append(sp.reasons, "helps with "+prettyToken(p.SecondaryConcern))
			case p.EyeConcern:
				sp.score += 2
				sp.reasons = append(sp.reasons, "addresses "+prettyToken(p.EyeConcern))
			case p.SkinType:
				sp.score++
				sp.reasons = append(sp.reasons, "suits "+prettyToken(p.SkinType)+" skin")
			}
		}
		if p.Sensitivity == "sensitive" && containsTag(product.Tags, "gentle") {
			sp.score++
			sp.reasons = append(sp.reasons, "gentle formula")
		}
		if sp.score > 0 {
			scored = append(scored, sp)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].product.Price < scored[j].product.Price
	})
	if len(scored) > e.maxRecs {
		scored = scored[:e.maxRecs]
	}

	recs := make([]quiz.ProductRec, 0, len(scored))
	for _, sp := range scored {
		recs = append(recs, quiz.ProductRec{
			ProductID: sp.product.ID,
			Name:      sp.product.Name,
			Brand:     sp.product.Brand,
			Category:  sp.product.Category,
			Price:     sp.product.Price,
			Reason:    strings.Join(dedupe(sp.reasons), "; "),
		})
	}
	return recs
}

func containsTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func prettyToken(token string) string {
	return strings.ReplaceAll(token, "_", " ")
}
