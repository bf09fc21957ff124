package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm/clause"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/database"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/models"
)

// CreateQuizSession allocates a new session for the given browser client.
func CreateQuizSession(ctx context.Context, clientID string) (*models.QuizSession, error) {
	session := &models.QuizSession{
		ID:       uuid.NewString(),
		ClientID: clientID,
	}
	result := database.DB.WithContext(ctx).Create(session)
	return session, result.Error
}

// GetQuizSession loads one session by id.
func GetQuizSession(ctx context.Context, sessionID string) (*models.QuizSession, error) {
	var session models.QuizSession
	result := database.DB.WithContext(ctx).First(&session, "id = ?", sessionID)
	return &session, result.Error
}

// SaveQuizAnswer upserts the answer row for (session, question); re-answering
// a question replaces the previous choice set.
func SaveQuizAnswer(ctx context.Context, sessionID, questionID string, choiceIDs []string) error {
	answer := models.QuizAnswer{
		SessionID:  sessionID,
		QuestionID: questionID,
		ChoiceIDs:  pq.StringArray(choiceIDs),
	}
	return database.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "question_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"choice_ids", "updated_at"}),
	}).Create(&answer).Error
}

// GetAnswersForSession returns all answer rows of one session keyed by
// question id.
func GetAnswersForSession(ctx context.Context, sessionID string) (map[string][]string, error) {
	var rows []models.QuizAnswer
	if err := database.DB.WithContext(ctx).Where("session_id = ?", sessionID).Find(&rows).Error; err != nil {
		return nil, err
	}
	answers := make(map[string][]string, len(rows))
	for _, row := range rows {
		answers[row.QuestionID] = row.ChoiceIDs
	}
	return answers, nil
}

// MarkSessionFinalized flags a session as finalized.
func MarkSessionFinalized(ctx context.Context, sessionID string) error {
	return database.DB.WithContext(ctx).
		Model(&models.QuizSession{}).
		Where("id = ?", sessionID).
		Update("finalized", true).Error
}

// SaveResultRecord stores the finalized result JSON for a session, replacing
// any previous payload.
func SaveResultRecord(ctx context.Context, sessionID string, payload []byte) error {
	record := models.QuizResultRecord{
		SessionID: sessionID,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	return database.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload"}),
	}).Create(&record).Error
}

// GetResultRecord loads the stored result payload for a session.
func GetResultRecord(ctx context.Context, sessionID string) ([]byte, error) {
	var record models.QuizResultRecord
	if err := database.DB.WithContext(ctx).First(&record, "session_id = ?", sessionID).Error; err != nil {
		return nil, err
	}
	return record.Payload, nil
}

// DeleteAbandonedSessions removes non-finalized sessions untouched since the
// cutoff, together with their answers. Returns the number of sessions removed.
func DeleteAbandonedSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	var stale []models.QuizSession
	if err := database.DB.WithContext(ctx).
		Where("finalized = ? AND updated_at < ?", false, cutoff).
		Find(&stale).Error; err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(stale))
	for _, s := range stale {
		ids = append(ids, s.ID)
	}
	if err := database.DB.WithContext(ctx).
		Where("session_id IN ?", ids).
		Delete(&models.QuizAnswer{}).Error; err != nil {
		return 0, err
	}
	result := database.DB.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&models.QuizSession{})
	return result.RowsAffected, result.Error
}
