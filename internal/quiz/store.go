package quiz

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Backend is the remote questionnaire service the store synchronizes with.
// The exact wire protocol is the backend's concern; only these four logical
// operations matter to the store.
type Backend interface {
	FetchQuestions(ctx context.Context) ([]RemoteQuestion, error)
	StartSession(ctx context.Context) (string, error)
	SubmitAnswer(ctx context.Context, sessionID, questionID string, choiceIDs []string) error
	FinalizeSession(ctx context.Context, sessionID string) (*Result, error)
}

// Store owns one client's quiz state: the remote session id, the local answer
// cache and the finalized result, and reconciles all of it with the backend
// across restarts and resets.
//
// Answers are written optimistically: the local map reflects the user's pick
// before (and regardless of whether) the remote write succeeds. The durable
// cache is a best-effort mirror read back only during Init.
type Store struct {
	backend Backend
	cache   Cache
	log     *zap.Logger

	flight singleflight.Group

	mu               sync.Mutex
	sessionID        string
	questions        map[QuestionKey]*RemoteQuestion
	answers          map[QuestionKey]*Answer
	result           *Result
	resultSession    string
	loadingQuestions bool
	restored         bool
	lastErr          error
}

// State is a consistent read snapshot for API consumers.
type State struct {
	SessionID        string                   `json:"sessionId"`
	Answers          map[QuestionKey]*Answer  `json:"answers"`
	IsComplete       bool                     `json:"isComplete"`
	LoadingQuestions bool                     `json:"loadingQuestions"`
	LastError        string                   `json:"lastError,omitempty"`
	Result           *Result                  `json:"result,omitempty"`
}

func NewStore(backend Backend, cache Cache, log *zap.Logger) *Store {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		backend: backend,
		cache:   cache,
		log:     log,
		answers: emptyAnswers(),
	}
}

func emptyAnswers() map[QuestionKey]*Answer {
	m := make(map[QuestionKey]*Answer, len(questionKeys))
	for _, k := range questionKeys {
		m[k] = nil
	}
	return m
}

// Init restores persisted state and loads the question catalog. It runs the
// restore strictly before the fetch so the two can never race on shared state;
// a store that already provisioned a fresh session skips the restore entirely.
// The returned error is always a question-fetch error and is non-fatal: the
// store keeps working locally and the fetch is retried by EnsureQuestions.
func (s *Store) Init(ctx context.Context) error {
	s.restore()
	return s.EnsureQuestions(ctx)
}

func (s *Store) restore() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restored {
		return
	}
	s.restored = true
	if s.sessionID != "" {
		return
	}
	id, ok := s.cache.LoadSession()
	if !ok || id == "" {
		return
	}
	s.sessionID = id
	if persisted, ok := s.cache.LoadAnswers(); ok {
		restored := emptyAnswers()
		for _, k := range questionKeys {
			if a := persisted[k]; a != nil {
				cp := *a
				restored[k] = &cp
			}
		}
		s.answers = restored
	}
	s.log.Debug("restored quiz session from cache", zap.String("session_id", id))
}

// EnsureQuestions fetches the remote question set if it is not loaded yet and
// reconciles any label-only answers against it. Concurrent callers share one
// fetch.
func (s *Store) EnsureQuestions(ctx context.Context) error {
	s.mu.Lock()
	if len(s.questions) > 0 {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	_, err, _ := s.flight.Do("questions", func() (interface{}, error) {
		s.mu.Lock()
		if len(s.questions) > 0 {
			s.mu.Unlock()
			return nil, nil
		}
		s.loadingQuestions = true
		s.mu.Unlock()

		fetched, err := s.backend.FetchQuestions(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.loadingQuestions = false
		if err != nil {
			s.lastErr = fmt.Errorf("%w: %v", ErrQuestionFetch, err)
			return nil, s.lastErr
		}
		byKey := make(map[QuestionKey]*RemoteQuestion, len(fetched))
		for i := range fetched {
			q := fetched[i]
			if !ValidKey(q.Key) {
				s.log.Warn("ignoring question with unknown key", zap.String("key", string(q.Key)))
				continue
			}
			byKey[q.Key] = &q
		}
		s.questions = byKey
		s.reconcileLocked()
		return nil, nil
	})
	return err
}

// reconcileLocked upgrades label-only answers to resolved ones by matching
// them against the now-available choices, value-equality first, then label.
// Reconciliation never submits to the server; the next explicit SetAnswer is
// responsible for persisting an upgraded answer remotely.
func (s *Store) reconcileLocked() {
	changed := false
	for _, k := range questionKeys {
		a := s.answers[k]
		if a == nil || a.ChoiceID != "" {
			continue
		}
		q := s.questions[k]
		if q == nil {
			continue
		}
		c := q.MatchChoice(a.Label, a.Value)
		if c == nil {
			continue
		}
		a.ChoiceID = c.ID
		if a.Label == "" {
			a.Label = c.Label
		}
		if a.Value == "" {
			a.Value = c.Value
		}
		changed = true
		s.log.Warn("reconciled local answer without re-submitting it",
			zap.String("question_key", string(k)),
			zap.String("choice_id", c.ID))
	}
	if changed {
		s.cache.SaveAnswers(copyAnswers(s.answers))
	}
}

// EnsureSession guarantees a session id exists before any server-side answer
// write. Idempotent when one is cached; concurrent callers share a single
// in-flight start. A brand-new session never inherits stale answers: both the
// local map and the durable cache are cleared before the remote call.
func (s *Store) EnsureSession(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.sessionID != "" {
		id := s.sessionID
		s.mu.Unlock()
		return id, nil
	}
	s.mu.Unlock()

	v, err, _ := s.flight.Do("start", func() (interface{}, error) {
		s.mu.Lock()
		if s.sessionID != "" {
			id := s.sessionID
			s.mu.Unlock()
			return id, nil
		}
		// A fresh session must not be clobbered by a late-running restore.
		s.restored = true
		s.answers = emptyAnswers()
		s.mu.Unlock()
		s.cache.Clear()

		id, err := s.backend.StartSession(ctx)
		if err != nil {
			werr := fmt.Errorf("%w: %v", ErrSessionStart, err)
			s.mu.Lock()
			s.lastErr = werr
			s.mu.Unlock()
			return nil, werr
		}

		s.mu.Lock()
		s.sessionID = id
		s.lastErr = nil
		snapshot := copyAnswers(s.answers)
		s.mu.Unlock()
		s.cache.SaveSession(id)
		s.cache.SaveAnswers(snapshot)
		s.log.Info("started quiz session", zap.String("session_id", id))
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// SetAnswer updates the local answer immediately and unconditionally, then
// persists it remotely when it carries a resolved choice id and the matching
// question is known. A nil selection clears the answer locally. On a remote
// failure the local value is kept and ErrAnswerPersist is recorded; the UI can
// re-select the same answer to retry the write.
func (s *Store) SetAnswer(ctx context.Context, key QuestionKey, sel *Selection) error {
	if !ValidKey(key) {
		return fmt.Errorf("quiz: unknown question key %q", key)
	}

	s.mu.Lock()
	var ans *Answer
	if sel != nil {
		ans = &Answer{ChoiceID: sel.ChoiceID, Label: sel.Label, Value: sel.Value}
	}
	s.answers[key] = ans
	snapshot := copyAnswers(s.answers)
	question := s.questions[key]
	s.mu.Unlock()
	s.cache.SaveAnswers(snapshot)

	if ans == nil || ans.ChoiceID == "" {
		// Cleared, or chosen before the choice list loaded. Kept local only;
		// reconciliation resolves it once questions arrive.
		return nil
	}
	if question == nil {
		// Cannot address the server-side question without its id.
		s.log.Debug("skipping remote answer write, question not loaded",
			zap.String("question_key", string(key)))
		return nil
	}

	sessionID, err := s.EnsureSession(ctx)
	if err != nil {
		return err
	}
	if err := s.backend.SubmitAnswer(ctx, sessionID, question.ID, []string{ans.ChoiceID}); err != nil {
		werr := fmt.Errorf("%w: %v", ErrAnswerPersist, err)
		s.mu.Lock()
		// A reset mid-flight abandoned interest in this write.
		if s.sessionID == sessionID {
			s.lastErr = werr
		}
		s.mu.Unlock()
		s.log.Warn("answer kept locally but not persisted remotely",
			zap.String("question_key", string(key)), zap.Error(err))
		return werr
	}
	return nil
}

// Reset discards the session and all local state, then eagerly provisions a
// new remote session. When the restart fails the store is left without a
// session id and the next interaction retries via EnsureSession.
func (s *Store) Reset(ctx context.Context) (string, error) {
	s.mu.Lock()
	s.restored = true
	s.sessionID = ""
	s.answers = emptyAnswers()
	s.result = nil
	s.resultSession = ""
	s.mu.Unlock()
	s.cache.Clear()
	return s.EnsureSession(ctx)
}

// Finalize converts a complete answer set into a Result. It returns (nil, nil)
// without a network call while any answer is missing or unresolved, returns
// the cached Result while the session id is unchanged, and de-duplicates
// concurrent callers onto one in-flight request. A result whose session is no
// longer current is never cached.
func (s *Store) Finalize(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if !s.isCompleteLocked() {
		s.mu.Unlock()
		return nil, nil
	}
	if s.result != nil && s.resultSession == s.sessionID {
		r := s.result
		s.mu.Unlock()
		return r, nil
	}
	sessionID := s.sessionID
	s.mu.Unlock()
	if sessionID == "" {
		// Complete purely through reconciliation, with no session ever
		// started: there is nothing server-side to finalize yet.
		return nil, nil
	}

	v, err, _ := s.flight.Do("finalize", func() (interface{}, error) {
		s.mu.Lock()
		if s.result != nil && s.resultSession == s.sessionID {
			r := s.result
			s.mu.Unlock()
			return r, nil
		}
		s.mu.Unlock()

		res, err := s.backend.FinalizeSession(ctx, sessionID)
		if err != nil {
			werr := fmt.Errorf("%w: %v", ErrFinalize, err)
			s.mu.Lock()
			if s.sessionID == sessionID {
				s.lastErr = werr
			}
			s.mu.Unlock()
			return nil, werr
		}

		s.mu.Lock()
		if s.sessionID == sessionID {
			s.result = res
			s.resultSession = sessionID
			s.lastErr = nil
		}
		s.mu.Unlock()
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (s *Store) isCompleteLocked() bool {
	for _, k := range questionKeys {
		if !s.answers[k].Resolved() {
			return false
		}
	}
	return true
}

// SessionID returns the current session id, or "" when none is active.
func (s *Store) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Questions returns the fetched question set keyed by question key.
func (s *Store) Questions() map[QuestionKey]*RemoteQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[QuestionKey]*RemoteQuestion, len(s.questions))
	for k, q := range s.questions {
		out[k] = q
	}
	return out
}

// Answers returns a copy of the answer map; keys are always the full set.
func (s *Store) Answers() map[QuestionKey]*Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyAnswers(s.answers)
}

// IsComplete reports whether every question has a resolved answer.
func (s *Store) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isCompleteLocked()
}

// Result returns the finalized result for the current session. A result left
// over from a previous session is discarded on access.
func (s *Store) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	if s.resultSession != s.sessionID {
		s.result = nil
		s.resultSession = ""
		return nil
	}
	return s.result
}

// LoadingQuestions reports whether a question fetch is in flight.
func (s *Store) LoadingQuestions() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadingQuestions
}

// LastError returns the most recent store-level failure, if any.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Snapshot returns a consistent view of the store for the state endpoint.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		SessionID:        s.sessionID,
		Answers:          copyAnswers(s.answers),
		IsComplete:       s.isCompleteLocked(),
		LoadingQuestions: s.loadingQuestions,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if s.result != nil && s.resultSession == s.sessionID {
		st.Result = s.result
	}
	return st
}
