package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/quiz"
)

const validCatalogYAML = `
questions:
  - id: q-primary-concern
    key: primaryConcern
    title: Main concern?
    choices:
      - {id: pc-acne, label: Acne, value: acne}
      - {id: pc-dryness, label: Dryness, value: dryness}
  - id: q-secondary-concern
    key: secondaryConcern
    title: Secondary concern?
    choices:
      - {id: sc-redness, label: Redness, value: redness}
      - {id: sc-none, label: Nothing else, value: none}
  - id: q-eye-concern
    key: eyeConcern
    title: Eye concern?
    choices:
      - {id: ec-circles, label: Dark circles, value: dark_circles}
      - {id: ec-none, label: None, value: none}
  - id: q-skin-type
    key: skinType
    title: Skin type?
    choices:
      - {id: st-oily, label: Oily, value: oily}
      - {id: st-dry, label: Dry, value: dry}
  - id: q-sensitivity
    key: sensitivity
    title: Sensitive?
    choices:
      - {id: sv-yes, label: "Yes", value: sensitive}
      - {id: sv-no, label: "No", value: resilient}
  - id: q-pregnancy
    key: pregnancy
    title: Pregnant or nursing?
    choices:
      - {id: pg-yes, label: "Yes", value: "yes"}
      - {id: pg-no, label: "No", value: "no"}
  - id: q-budget
    key: budget
    title: Budget?
    choices:
      - {id: bg-low, label: Low, value: low}
      - {id: bg-high, label: High, value: high}
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadQuestionCatalog(t *testing.T) {
	catalog, err := LoadQuestionCatalog(writeCatalog(t, validCatalogYAML))
	require.NoError(t, err)
	require.Len(t, catalog.Questions, 7)

	q, ok := catalog.QuestionByID("q-budget")
	require.True(t, ok)
	assert.Equal(t, "budget", q.Key)

	assert.True(t, catalog.HasChoice("q-budget", "bg-low"))
	assert.False(t, catalog.HasChoice("q-budget", "bg-mid"))

	value, ok := catalog.ChoiceValue("q-skin-type", "st-oily")
	require.True(t, ok)
	assert.Equal(t, "oily", value)
}

func TestCatalogRemoteShape(t *testing.T) {
	catalog, err := LoadQuestionCatalog(writeCatalog(t, validCatalogYAML))
	require.NoError(t, err)

	remote := catalog.Remote()
	require.Len(t, remote, 7)
	assert.Equal(t, quiz.KeyPrimaryConcern, remote[0].Key)
	require.Len(t, remote[0].Choices, 2)
	assert.Equal(t, "pc-acne", remote[0].Choices[0].ID)
	assert.Equal(t, "acne", remote[0].Choices[0].Value)
}

func TestCatalogRejectsMissingKey(t *testing.T) {
	// Drop the budget question.
	broken := validCatalogYAML[:len(validCatalogYAML)-len(`  - id: q-budget
    key: budget
    title: Budget?
    choices:
      - {id: bg-low, label: Low, value: low}
      - {id: bg-high, label: High, value: high}
`)]
	_, err := LoadQuestionCatalog(writeCatalog(t, broken))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing key")
}

func TestCatalogRejectsUnknownKey(t *testing.T) {
	bad := `
questions:
  - id: q-mystery
    key: shoeSize
    title: Shoe size?
    choices:
      - {id: a, label: A, value: a}
      - {id: b, label: B, value: b}
`
	_, err := LoadQuestionCatalog(writeCatalog(t, bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key")
}

func TestCatalogRejectsSingleChoiceQuestion(t *testing.T) {
	bad := `
questions:
  - id: q-primary-concern
    key: primaryConcern
    title: Main concern?
    choices:
      - {id: only, label: Only, value: only}
`
	_, err := LoadQuestionCatalog(writeCatalog(t, bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least two choices")
}
