package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/quiz"
)

// CatalogChoice is one selectable option as defined in questions.yaml.
type CatalogChoice struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

// CatalogQuestion matches the YAML structure of one quiz question.
type CatalogQuestion struct {
	ID      string          `yaml:"id"`
	Key     string          `yaml:"key"`
	Title   string          `yaml:"title"`
	Choices []CatalogChoice `yaml:"choices"`
}

// QuestionCatalog holds the seven quiz questions served to clients.
type QuestionCatalog struct {
	Questions []CatalogQuestion `yaml:"questions"`

	byID map[string]*CatalogQuestion
}

// LoadQuestionCatalog reads and parses the questions.yaml file and validates
// that it covers exactly the enumerated question keys.
func LoadQuestionCatalog(path string) (*QuestionCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question catalog: %w", err)
	}

	var catalog QuestionCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to unmarshal question catalog YAML: %w", err)
	}
	if err := catalog.validate(); err != nil {
		return nil, err
	}

	catalog.byID = make(map[string]*CatalogQuestion, len(catalog.Questions))
	for i := range catalog.Questions {
		catalog.byID[catalog.Questions[i].ID] = &catalog.Questions[i]
	}
	return &catalog, nil
}

func (c *QuestionCatalog) validate() error {
	seen := make(map[quiz.QuestionKey]bool, len(c.Questions))
	ids := make(map[string]bool, len(c.Questions))
	for _, q := range c.Questions {
		key := quiz.QuestionKey(q.Key)
		if !quiz.ValidKey(key) {
			return fmt.Errorf("question %q has unknown key %q", q.ID, q.Key)
		}
		if seen[key] {
			return fmt.Errorf("duplicate question key %q", q.Key)
		}
		seen[key] = true
		if q.ID == "" || ids[q.ID] {
			return fmt.Errorf("question key %q has missing or duplicate id", q.Key)
		}
		ids[q.ID] = true
		if len(q.Choices) < 2 {
			return fmt.Errorf("question %q needs at least two choices", q.ID)
		}
		choiceIDs := make(map[string]bool, len(q.Choices))
		for _, ch := range q.Choices {
			if ch.ID == "" || choiceIDs[ch.ID] {
				return fmt.Errorf("question %q has missing or duplicate choice id", q.ID)
			}
			choiceIDs[ch.ID] = true
		}
	}
	for _, key := range quiz.QuestionKeys() {
		if !seen[key] {
			return fmt.Errorf("question catalog is missing key %q", key)
		}
	}
	return nil
}

// Remote converts the catalog into the wire shape the quiz store consumes.
func (c *QuestionCatalog) Remote() []quiz.RemoteQuestion {
	out := make([]quiz.RemoteQuestion, 0, len(c.Questions))
	for _, q := range c.Questions {
		rq := quiz.RemoteQuestion{
			ID:      q.ID,
			Key:     quiz.QuestionKey(q.Key),
			Choices: make([]quiz.Choice, 0, len(q.Choices)),
		}
		for _, ch := range q.Choices {
			rq.Choices = append(rq.Choices, quiz.Choice{ID: ch.ID, Label: ch.Label, Value: ch.Value})
		}
		out = append(out, rq)
	}
	return out
}

// QuestionByID looks up a catalog question by its server-side id.
func (c *QuestionCatalog) QuestionByID(id string) (*CatalogQuestion, bool) {
	q, ok := c.byID[id]
	return q, ok
}

// HasChoice reports whether the question id carries the given choice id.
func (c *QuestionCatalog) HasChoice(questionID, choiceID string) bool {
	q, ok := c.byID[questionID]
	if !ok {
		return false
	}
	for _, ch := range q.Choices {
		if ch.ID == choiceID {
			return true
		}
	}
	return false
}

// ChoiceValue returns the value token behind a choice id, for result scoring.
func (c *QuestionCatalog) ChoiceValue(questionID, choiceID string) (string, bool) {
	q, ok := c.byID[questionID]
	if !ok {
		return "", false
	}
	for _, ch := range q.Choices {
		if ch.ID == choiceID {
			return ch.Value, true
		}
	}
	return "", false
}
