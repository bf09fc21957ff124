package repository

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/database"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/models"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/quiz"
)

const (
	cacheKeySession = "session"
	cacheKeyAnswers = "answers"
)

// ClientCache is the durable quiz.Cache for one browser client, backed by the
// quiz_cache_entries table. It is strictly best-effort: failures are logged
// and swallowed, because the mirror is lower-trust than live session state.
type ClientCache struct {
	clientID string
	log      *zap.Logger
}

func NewClientCache(clientID string, log *zap.Logger) *ClientCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &ClientCache{clientID: clientID, log: log}
}

func (c *ClientCache) LoadSession() (string, bool) {
	payload, ok := c.load(cacheKeySession)
	if !ok {
		return "", false
	}
	var id string
	if err := json.Unmarshal(payload, &id); err != nil {
		c.log.Warn("discarding unreadable cached session id",
			zap.String("client_id", c.clientID), zap.Error(err))
		return "", false
	}
	return id, true
}

func (c *ClientCache) LoadAnswers() (map[quiz.QuestionKey]*quiz.Answer, bool) {
	payload, ok := c.load(cacheKeyAnswers)
	if !ok {
		return nil, false
	}
	var answers map[quiz.QuestionKey]*quiz.Answer
	if err := json.Unmarshal(payload, &answers); err != nil {
		c.log.Warn("discarding unreadable cached answers",
			zap.String("client_id", c.clientID), zap.Error(err))
		return nil, false
	}
	return answers, true
}

func (c *ClientCache) SaveSession(id string) {
	payload, _ := json.Marshal(id)
	c.save(cacheKeySession, payload)
}

func (c *ClientCache) SaveAnswers(answers map[quiz.QuestionKey]*quiz.Answer) {
	payload, err := json.Marshal(answers)
	if err != nil {
		c.log.Warn("failed to encode answers for cache mirror", zap.Error(err))
		return
	}
	c.save(cacheKeyAnswers, payload)
}

func (c *ClientCache) Clear() {
	if err := database.DB.
		Where("client_id = ?", c.clientID).
		Delete(&models.QuizCacheEntry{}).Error; err != nil {
		c.log.Warn("failed to clear quiz cache mirror",
			zap.String("client_id", c.clientID), zap.Error(err))
	}
}

func (c *ClientCache) load(key string) ([]byte, bool) {
	var entry models.QuizCacheEntry
	err := database.DB.
		First(&entry, "client_id = ? AND cache_key = ?", c.clientID, key).Error
	if err != nil {
		return nil, false
	}
	return entry.Payload, true
}

func (c *ClientCache) save(key string, payload []byte) {
	entry := models.QuizCacheEntry{
		ClientID:  c.clientID,
		CacheKey:  key,
		Payload:   payload,
		UpdatedAt: time.Now().UTC(),
	}
	err := database.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}, {Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		c.log.Warn("failed to write quiz cache mirror",
			zap.String("client_id", c.clientID), zap.String("key", key), zap.Error(err))
	}
}

// DeleteCacheEntriesBefore prunes cache mirrors untouched since the cutoff.
func DeleteCacheEntriesBefore(cutoff time.Time) (int64, error) {
	result := database.DB.
		Where("updated_at < ?", cutoff).
		Delete(&models.QuizCacheEntry{})
	return result.RowsAffected, result.Error
}
