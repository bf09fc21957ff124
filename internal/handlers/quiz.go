package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/config"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/quiz"
)

// ClientIDContextKey is where the client-identity middleware stores the
// browser client id for the request.
const ClientIDContextKey = "client_id"

// QuizHandler serves the quiz surface. Every route operates on the store
// belonging to the request's browser client id.
type QuizHandler struct {
	log      *zap.Logger
	registry *quiz.Registry
}

func NewQuizHandler(log *zap.Logger, registry *quiz.Registry) *QuizHandler {
	return &QuizHandler{log: log, registry: registry}
}

// store resolves the caller's quiz store and a bounded request context.
func (h *QuizHandler) store(c *gin.Context) (*quiz.Store, context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.Conf.Quiz.RequestTimeout)
	return h.registry.Get(ctx, c.GetString(ClientIDContextKey)), ctx, cancel
}

// Questions returns the fetched question catalog plus loading state. A failed
// fetch is retried on every call until it succeeds.
func (h *QuizHandler) Questions(c *gin.Context) {
	store, ctx, cancel := h.store(c)
	defer cancel()

	if err := store.EnsureQuestions(ctx); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "question catalog unavailable"})
		return
	}

	questions := store.Questions()
	ordered := make([]*quiz.RemoteQuestion, 0, len(questions))
	for _, key := range quiz.QuestionKeys() {
		if q := questions[key]; q != nil {
			ordered = append(ordered, q)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"questions": ordered,
		"loading":   store.LoadingQuestions(),
	})
}

// State returns the full store snapshot.
func (h *QuizHandler) State(c *gin.Context) {
	store, _, cancel := h.store(c)
	defer cancel()
	c.JSON(http.StatusOK, store.Snapshot())
}

// EnsureSession provisions (or returns) the remote session id.
func (h *QuizHandler) EnsureSession(c *gin.Context) {
	store, ctx, cancel := h.store(c)
	defer cancel()

	sessionID, err := store.EnsureSession(ctx)
	if err != nil {
		h.log.Warn("session start failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not start quiz session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID})
}

type answerRequest struct {
	ChoiceID string `json:"choiceId"`
	Label    string `json:"label"`
	Value    string `json:"value"`
}

// SetAnswer records one answer. The local write always succeeds; a failed
// remote write still returns the kept answer alongside the error.
func (h *QuizHandler) SetAnswer(c *gin.Context) {
	key := quiz.QuestionKey(c.Param("key"))
	if !quiz.ValidKey(key) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown question key"})
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid answer payload"})
		return
	}

	store, ctx, cancel := h.store(c)
	defer cancel()

	sel := &quiz.Selection{ChoiceID: req.ChoiceID, Label: req.Label, Value: req.Value}
	if err := store.SetAnswer(ctx, key, sel); err != nil {
		status := http.StatusBadGateway
		if !errors.Is(err, quiz.ErrAnswerPersist) && !errors.Is(err, quiz.ErrSessionStart) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"error":   "answer kept locally but not persisted",
			"answers": store.Answers(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"answers": store.Answers(), "isComplete": store.IsComplete()})
}

// ClearAnswer removes one answer locally.
func (h *QuizHandler) ClearAnswer(c *gin.Context) {
	key := quiz.QuestionKey(c.Param("key"))
	if !quiz.ValidKey(key) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown question key"})
		return
	}

	store, ctx, cancel := h.store(c)
	defer cancel()

	if err := store.SetAnswer(ctx, key, nil); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not clear answer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"answers": store.Answers(), "isComplete": store.IsComplete()})
}

// Reset throws away the current session and starts a fresh one.
func (h *QuizHandler) Reset(c *gin.Context) {
	store, ctx, cancel := h.store(c)
	defer cancel()

	sessionID, err := store.Reset(ctx)
	if err != nil {
		// State is already cleared; the next interaction retries the start.
		h.log.Warn("reset could not provision a fresh session", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "quiz reset, but no new session yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID})
}

// Finalize computes (or replays) the result for a complete quiz.
func (h *QuizHandler) Finalize(c *gin.Context) {
	store, ctx, cancel := h.store(c)
	defer cancel()

	result, err := store.Finalize(ctx)
	if err != nil {
		h.log.Warn("finalize failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not finalize quiz"})
		return
	}
	if result == nil {
		c.JSON(http.StatusConflict, gin.H{
			"error":      "quiz is not complete",
			"isComplete": false,
		})
		return
	}
	c.JSON(http.StatusOK, result)
}
