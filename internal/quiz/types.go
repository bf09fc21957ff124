package quiz

import "time"

// QuestionKey identifies one of the seven quiz questions. Keys are fixed at
// compile time and independent of the server-side question ids.
type QuestionKey string

const (
	KeyPrimaryConcern   QuestionKey = "primaryConcern"
	KeySecondaryConcern QuestionKey = "secondaryConcern"
	KeyEyeConcern       QuestionKey = "eyeConcern"
	KeySkinType         QuestionKey = "skinType"
	KeySensitivity      QuestionKey = "sensitivity"
	KeyPregnancy        QuestionKey = "pregnancy"
	KeyBudget           QuestionKey = "budget"
)

var questionKeys = []QuestionKey{
	KeyPrimaryConcern,
	KeySecondaryConcern,
	KeyEyeConcern,
	KeySkinType,
	KeySensitivity,
	KeyPregnancy,
	KeyBudget,
}

// QuestionKeys returns the full enumerated key set in quiz order.
func QuestionKeys() []QuestionKey {
	out := make([]QuestionKey, len(questionKeys))
	copy(out, questionKeys)
	return out
}

// ValidKey reports whether k is one of the known question keys.
func ValidKey(k QuestionKey) bool {
	for _, known := range questionKeys {
		if k == known {
			return true
		}
	}
	return false
}

// Choice is one selectable option of a remote question.
type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// RemoteQuestion is a server-defined question record, fetched once per store
// lifetime and read-only afterwards.
type RemoteQuestion struct {
	ID      string      `json:"id"`
	Key     QuestionKey `json:"key"`
	Choices []Choice    `json:"choices"`
}

// MatchChoice finds the choice matching a locally-held answer, trying
// value-equality first and falling back to label-equality. Returns nil when
// nothing matches.
func (q *RemoteQuestion) MatchChoice(label, value string) *Choice {
	if value != "" {
		for i := range q.Choices {
			if q.Choices[i].Value == value {
				return &q.Choices[i]
			}
		}
	}
	if label != "" {
		for i := range q.Choices {
			if q.Choices[i].Label == label {
				return &q.Choices[i]
			}
		}
	}
	return nil
}

// Selection is the user's pick for one question as the UI hands it over. A
// selection made before the question list loaded carries no ChoiceID yet.
type Selection struct {
	ChoiceID string `json:"choiceId"`
	Label    string `json:"label"`
	Value    string `json:"value"`
}

// Answer is the stored per-question answer. ChoiceID is empty until the answer
// has been resolved against the fetched question's choice list.
type Answer struct {
	ChoiceID string `json:"choiceId,omitempty"`
	Label    string `json:"label"`
	Value    string `json:"value"`
}

// Resolved reports whether the answer references a known server-side choice.
func (a *Answer) Resolved() bool {
	return a != nil && a.ChoiceID != ""
}

// SkinProfile is the computed profile part of a finalized result.
type SkinProfile struct {
	SkinType         string `json:"skinType"`
	PrimaryConcern   string `json:"primaryConcern"`
	SecondaryConcern string `json:"secondaryConcern"`
	EyeConcern       string `json:"eyeConcern"`
	Sensitivity      string `json:"sensitivity"`
	PregnancySafe    bool   `json:"pregnancySafe"`
	Budget           string `json:"budget"`
}

// ProductRec is one recommended product inside a result.
type ProductRec struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Brand     string  `json:"brand"`
	Category  string  `json:"category"`
	Price     float64 `json:"price"`
	Reason    string  `json:"reason"`
}

// Result is the server's computed output for one finalized session. It is
// valid only for the session that produced it.
type Result struct {
	SessionID       string       `json:"sessionId"`
	Profile         SkinProfile  `json:"profile"`
	Summary         string       `json:"summary"`
	Strategy        string       `json:"strategy,omitempty"`
	Recommendations []ProductRec `json:"recommendations"`
	GeneratedAt     time.Time    `json:"generatedAt"`
}
