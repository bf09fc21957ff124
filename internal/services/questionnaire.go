package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/models"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/quiz"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/repository"
)

// ErrSessionIncomplete is returned by finalize when a session lacks answers
// for some catalog questions server-side.
var ErrSessionIncomplete = errors.New("quiz session is missing answers")

// QuestionnaireService is the server side of the quiz: it owns the question
// catalog and turns sessions plus answers into finalized results. Per-client
// quiz.Backend views are produced by Backend().
type QuestionnaireService struct {
	catalog   *models.QuestionCatalog
	engine    *RecommendEngine
	rdb       *redis.Client
	resultTTL time.Duration
	log       *zap.Logger
}

func NewQuestionnaireService(catalog *models.QuestionCatalog, engine *RecommendEngine, rdb *redis.Client, resultTTL time.Duration, log *zap.Logger) *QuestionnaireService {
	return &QuestionnaireService{
		catalog:   catalog,
		engine:    engine,
		rdb:       rdb,
		resultTTL: resultTTL,
		log:       log,
	}
}

// Backend binds the service to one browser client id.
func (s *QuestionnaireService) Backend(clientID string) quiz.Backend {
	return &clientBackend{svc: s, clientID: clientID}
}

// Catalog exposes the loaded question catalog.
func (s *QuestionnaireService) Catalog() *models.QuestionCatalog {
	return s.catalog
}

type clientBackend struct {
	svc      *QuestionnaireService
	clientID string
}

func (b *clientBackend) FetchQuestions(ctx context.Context) ([]quiz.RemoteQuestion, error) {
	return b.svc.catalog.Remote(), nil
}

func (b *clientBackend) StartSession(ctx context.Context) (string, error) {
	session, err := repository.CreateQuizSession(ctx, b.clientID)
	if err != nil {
		return "", err
	}
	return session.ID, nil
}

func (b *clientBackend) SubmitAnswer(ctx context.Context, sessionID, questionID string, choiceIDs []string) error {
	if len(choiceIDs) == 0 {
		return fmt.Errorf("no choices submitted for question %q", questionID)
	}
	if _, ok := b.svc.catalog.QuestionByID(questionID); !ok {
		return fmt.Errorf("unknown question %q", questionID)
	}
	for _, choiceID := range choiceIDs {
		if !b.svc.catalog.HasChoice(questionID, choiceID) {
			return fmt.Errorf("question %q has no choice %q", questionID, choiceID)
		}
	}
	if _, err := repository.GetQuizSession(ctx, sessionID); err != nil {
		return fmt.Errorf("unknown session %q: %w", sessionID, err)
	}
	return repository.SaveQuizAnswer(ctx, sessionID, questionID, choiceIDs)
}

func (b *clientBackend) FinalizeSession(ctx context.Context, sessionID string) (*quiz.Result, error) {
	return b.svc.finalize(ctx, sessionID)
}

func (s *QuestionnaireService) finalize(ctx context.Context, sessionID string) (*quiz.Result, error) {
	// Finalize is idempotent per session: replay a cached or stored result
	// before computing anything.
	if cached := s.cachedResult(ctx, sessionID); cached != nil {
		return cached, nil
	}
	if payload, err := repository.GetResultRecord(ctx, sessionID); err == nil {
		var result quiz.Result
		if err := json.Unmarshal(payload, &result); err == nil {
			s.cacheResult(ctx, &result)
			return &result, nil
		}
		s.log.Warn("stored result payload unreadable, recomputing",
			zap.String("session_id", sessionID))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if _, err := repository.GetQuizSession(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("unknown session %q: %w", sessionID, err)
	}

	answers, err := repository.GetAnswersForSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	values, err := s.answerValues(answers)
	if err != nil {
		return nil, err
	}

	products, err := repository.AllProducts(ctx)
	if err != nil {
		return nil, err
	}

	result := s.engine.Build(ctx, sessionID, values, products)

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	if err := repository.SaveResultRecord(ctx, sessionID, payload); err != nil {
		return nil, err
	}
	if err := repository.MarkSessionFinalized(ctx, sessionID); err != nil {
		return nil, err
	}
	s.cacheResult(ctx, result)
	s.log.Info("finalized quiz session", zap.String("session_id", sessionID))
	return result, nil
}

// answerValues maps stored (questionID -> choiceIDs) rows onto per-key value
// tokens, requiring an answer for every catalog question.
func (s *QuestionnaireService) answerValues(answers map[string][]string) (map[quiz.QuestionKey]string, error) {
	values := make(map[quiz.QuestionKey]string, len(s.catalog.Questions))
	for _, q := range s.catalog.Questions {
		choiceIDs := answers[q.ID]
		if len(choiceIDs) == 0 {
			return nil, fmt.Errorf("%w: question %q", ErrSessionIncomplete, q.ID)
		}
		value, ok := s.catalog.ChoiceValue(q.ID, choiceIDs[0])
		if !ok {
			return nil, fmt.Errorf("question %q has unknown stored choice %q", q.ID, choiceIDs[0])
		}
		values[quiz.QuestionKey(q.Key)] = value
	}
	return values, nil
}

func (s *QuestionnaireService) resultKey(sessionID string) string {
	return "skinmatch:result:" + sessionID
}

func (s *QuestionnaireService) cachedResult(ctx context.Context, sessionID string) *quiz.Result {
	if s.rdb == nil {
		return nil
	}
	payload, err := s.rdb.Get(ctx, s.resultKey(sessionID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("redis result lookup failed", zap.Error(err))
		}
		return nil
	}
	var result quiz.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil
	}
	return &result
}

func (s *QuestionnaireService) cacheResult(ctx context.Context, result *quiz.Result) {
	if s.rdb == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, s.resultKey(result.SessionID), payload, s.resultTTL).Err(); err != nil {
		s.log.Warn("redis result cache write failed", zap.Error(err))
	}
}
