package models

import (
	"time"

	"github.com/lib/pq"
)

// QuizSession is one server-side quiz attempt, bound to the anonymous browser
// client that started it. Sessions are immutable once finalized.
type QuizSession struct {
	ID        string `gorm:"primaryKey;size:36"`
	ClientID  string `gorm:"index;size:64"`
	Finalized bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// QuizAnswer holds one answer row per (session, question); re-answering
// replaces the row. ChoiceIDs is an array to allow multi-select questions
// even though the current quiz is single-select throughout.
type QuizAnswer struct {
	ID         uint           `gorm:"primaryKey"`
	SessionID  string         `gorm:"size:36;uniqueIndex:idx_quiz_answers_session_question"`
	QuestionID string         `gorm:"size:64;uniqueIndex:idx_quiz_answers_session_question"`
	ChoiceIDs  pq.StringArray `gorm:"type:text[]"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// QuizResultRecord stores the finalized result JSON keyed by the session that
// produced it, so a re-finalize of the same session replays it.
type QuizResultRecord struct {
	SessionID string `gorm:"primaryKey;size:36"`
	Payload   []byte `gorm:"type:jsonb"`
	CreatedAt time.Time
}

// QuizCacheEntry is the durable low-trust mirror of one client's quiz state.
// Two rows per client: cache_key "session" and "answers".
type QuizCacheEntry struct {
	ClientID  string `gorm:"primaryKey;size:64"`
	CacheKey  string `gorm:"primaryKey;size:16"`
	Payload   []byte `gorm:"type:jsonb"`
	UpdatedAt time.Time
}
