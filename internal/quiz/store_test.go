package quiz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type submission struct {
	sessionID  string
	questionID string
	choiceIDs  []string
}

// fakeBackend counts calls and can be made to fail or block per operation.
type fakeBackend struct {
	mu          sync.Mutex
	questions   []RemoteQuestion
	fetchErr    error
	startErr    error
	submitErr   error
	finalizeErr error

	startHold    chan struct{}
	finalizeHold chan struct{}

	startCalls    int32
	fetchCalls    int32
	submitCalls   int32
	finalizeCalls int32

	nextSession int32
	submissions []submission
}

func (f *fakeBackend) FetchQuestions(ctx context.Context) ([]RemoteQuestion, error) {
	atomic.AddInt32(&f.fetchCalls, 1)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.questions, nil
}

func (f *fakeBackend) StartSession(ctx context.Context) (string, error) {
	atomic.AddInt32(&f.startCalls, 1)
	if f.startHold != nil {
		<-f.startHold
	}
	if f.startErr != nil {
		return "", f.startErr
	}
	n := atomic.AddInt32(&f.nextSession, 1)
	return fmt.Sprintf("session-%d", n), nil
}

func (f *fakeBackend) SubmitAnswer(ctx context.Context, sessionID, questionID string, choiceIDs []string) error {
	atomic.AddInt32(&f.submitCalls, 1)
	if f.submitErr != nil {
		return f.submitErr
	}
	f.mu.Lock()
	f.submissions = append(f.submissions, submission{sessionID, questionID, choiceIDs})
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) FinalizeSession(ctx context.Context, sessionID string) (*Result, error) {
	atomic.AddInt32(&f.finalizeCalls, 1)
	if f.finalizeHold != nil {
		<-f.finalizeHold
	}
	if f.finalizeErr != nil {
		return nil, f.finalizeErr
	}
	return &Result{SessionID: sessionID, Summary: "combination skin"}, nil
}

func catalogQuestions() []RemoteQuestion {
	qs := make([]RemoteQuestion, 0, len(questionKeys))
	for i, key := range questionKeys {
		qs = append(qs, RemoteQuestion{
			ID:  fmt.Sprintf("q%d", i+1),
			Key: key,
			Choices: []Choice{
				{ID: fmt.Sprintf("q%d-c1", i+1), Label: "Option A", Value: "a"},
				{ID: fmt.Sprintf("q%d-c2", i+1), Label: "Option B", Value: "b"},
			},
		})
	}
	return qs
}

func newTestStore(t *testing.T, backend *fakeBackend) *Store {
	t.Helper()
	s := NewStore(backend, NewMemoryCache(), nil)
	require.NoError(t, s.Init(context.Background()))
	return s
}

func answerAll(t *testing.T, s *Store) {
	t.Helper()
	for i, key := range QuestionKeys() {
		err := s.SetAnswer(context.Background(), key, &Selection{
			ChoiceID: fmt.Sprintf("q%d-c1", i+1),
			Label:    "Option A",
			Value:    "a",
		})
		require.NoError(t, err)
	}
}

func TestEnsureSessionIsIdempotent(t *testing.T) {
	backend := &fakeBackend{questions: catalogQuestions()}
	s := newTestStore(t, backend)

	first, err := s.EnsureSession(context.Background())
	require.NoError(t, err)
	second, err := s.EnsureSession(context.Background())
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.EqualValues(t, 1, atomic.LoadInt32(&backend.startCalls))
}

func TestConcurrentEnsureSessionSharesOneStart(t *testing.T) {
	backend := &fakeBackend{
		questions: catalogQuestions(),
		startHold: make(chan struct{}),
	}
	s := newTestStore(t, backend)

	const callers = 8
	ids := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = s.EnsureSession(context.Background())
		}(i)
	}
	close(backend.startHold)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], ids[i])
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&backend.startCalls))
}

func TestFreshSessionClearsPersistedAnswers(t *testing.T) {
	cache := NewMemoryCache()
	cache.SaveSession("stale-session")
	cache.SaveAnswers(map[QuestionKey]*Answer{
		KeySkinType: {ChoiceID: "old", Label: "Oily", Value: "oily"},
	})

	backend := &fakeBackend{questions: catalogQuestions()}
	s := NewStore(backend, cache, nil)

	// Fresh provisioning happens before the restoration effect runs.
	id, err := s.EnsureSession(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, "stale-session", id)

	require.NoError(t, s.Init(context.Background()))

	answers := s.Answers()
	require.Len(t, answers, len(QuestionKeys()))
	for key, a := range answers {
		require.Nilf(t, a, "answer for %s should be cleared", key)
	}
	_, ok := cache.LoadSession()
	require.True(t, ok, "new session id should be mirrored")
	persisted, _ := cache.LoadAnswers()
	require.Nil(t, persisted[KeySkinType])
}

func TestRestoreAdoptsPersistedState(t *testing.T) {
	cache := NewMemoryCache()
	cache.SaveSession("session-42")
	cache.SaveAnswers(map[QuestionKey]*Answer{
		KeySkinType: {Label: "Oily", Value: "a"},
	})

	backend := &fakeBackend{questions: catalogQuestions()}
	s := NewStore(backend, cache, nil)
	require.NoError(t, s.Init(context.Background()))

	require.Equal(t, "session-42", s.SessionID())
	require.EqualValues(t, 0, atomic.LoadInt32(&backend.startCalls))
	// Restored label-only answer was reconciled against the fetched catalog.
	require.Equal(t, "q4-c1", s.Answers()[KeySkinType].ChoiceID)
}

func TestFinalizeGatedOnCompleteness(t *testing.T) {
	backend := &fakeBackend{questions: catalogQuestions()}
	s := newTestStore(t, backend)
	_, err := s.EnsureSession(context.Background())
	require.NoError(t, err)

	// Six of seven answered.
	keys := QuestionKeys()
	for i, key := range keys[:len(keys)-1] {
		require.NoError(t, s.SetAnswer(context.Background(), key, &Selection{
			ChoiceID: fmt.Sprintf("q%d-c1", i+1), Label: "Option A", Value: "a",
		}))
	}

	res, err := s.Finalize(context.Background())
	require.NoError(t, err)
	require.Nil(t, res)
	require.EqualValues(t, 0, atomic.LoadInt32(&backend.finalizeCalls))

	// An unresolved answer does not count as complete either.
	require.NoError(t, s.SetAnswer(context.Background(), keys[len(keys)-1], &Selection{
		Label: "Option C", Value: "c",
	}))
	res, err = s.Finalize(context.Background())
	require.NoError(t, err)
	require.Nil(t, res)
	require.EqualValues(t, 0, atomic.LoadInt32(&backend.finalizeCalls))
}

func TestFinalizeIdempotentPerSession(t *testing.T) {
	backend := &fakeBackend{questions: catalogQuestions()}
	s := newTestStore(t, backend)
	answerAll(t, s)

	first, err := s.Finalize(context.Background())
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := s.Finalize(context.Background())
	require.NoError(t, err)
	require.Same(t, first, second)
	require.EqualValues(t, 1, atomic.LoadInt32(&backend.finalizeCalls))
}

func TestConcurrentFinalizeSharesOneRequest(t *testing.T) {
	backend := &fakeBackend{
		questions:    catalogQuestions(),
		finalizeHold: make(chan struct{}),
	}
	s := newTestStore(t, backend)
	answerAll(t, s)

	const callers = 6
	results := make([]*Result, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Finalize(context.Background())
		}(i)
	}
	close(backend.finalizeHold)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Same(t, results[0], results[i])
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&backend.finalizeCalls))
}

func TestReconciliationMatchesValueThenLabel(t *testing.T) {
	backend := &fakeBackend{
		questions: []RemoteQuestion{{
			ID:  "q-skin",
			Key: KeySkinType,
			Choices: []Choice{
				{ID: "c1", Label: "Oily", Value: "oily"},
				{ID: "c2", Label: "Dry", Value: "dry"},
			},
		}},
		fetchErr: errors.New("backend down"),
	}
	s := NewStore(backend, NewMemoryCache(), nil)
	require.Error(t, s.Init(context.Background()))

	// Chosen before the question list loaded: label-only, kept local.
	require.NoError(t, s.SetAnswer(context.Background(), KeySkinType, &Selection{
		Label: "Oily", Value: "oily",
	}))
	require.EqualValues(t, 0, atomic.LoadInt32(&backend.submitCalls))

	backend.fetchErr = nil
	require.NoError(t, s.EnsureQuestions(context.Background()))

	got := s.Answers()[KeySkinType]
	require.Equal(t, "c1", got.ChoiceID)
	// Reconciliation resolves locally only, it never submits as a side effect.
	require.EqualValues(t, 0, atomic.LoadInt32(&backend.submitCalls))
}

func TestReconciliationFallsBackToLabelMatch(t *testing.T) {
	q := RemoteQuestion{
		ID:  "q-skin",
		Key: KeySkinType,
		Choices: []Choice{
			{ID: "c1", Label: "Oily", Value: "oily_v2"},
			{ID: "c2", Label: "Dry", Value: "dry_v2"},
		},
	}
	// Values differ from the cached answer's; the label still matches.
	require.Equal(t, "c1", q.MatchChoice("Oily", "oily").ID)
	// Value match wins when both would hit.
	require.Equal(t, "c2", q.MatchChoice("Oily", "dry_v2").ID)
	// No match at all.
	require.Nil(t, q.MatchChoice("Normal", "normal"))
}

func TestResetStartsDistinctSessionAndClearsAnswers(t *testing.T) {
	backend := &fakeBackend{questions: catalogQuestions()}
	s := newTestStore(t, backend)
	answerAll(t, s)
	before := s.SessionID()
	require.NotEmpty(t, before)

	after, err := s.Reset(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, after)
	require.NotEqual(t, before, after)

	for key, a := range s.Answers() {
		require.Nilf(t, a, "answer for %s should be nil after reset", key)
	}
}

func TestResetToleratesStartFailure(t *testing.T) {
	backend := &fakeBackend{questions: catalogQuestions()}
	s := newTestStore(t, backend)
	answerAll(t, s)

	backend.startErr = errors.New("503")
	_, err := s.Reset(context.Background())
	require.ErrorIs(t, err, ErrSessionStart)
	require.Empty(t, s.SessionID())
	require.ErrorIs(t, s.LastError(), ErrSessionStart)

	// The next interaction retries and succeeds.
	backend.startErr = nil
	id, err := s.EnsureSession(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.NoError(t, s.LastError())
}

func TestStaleResultDiscardedAfterReset(t *testing.T) {
	backend := &fakeBackend{questions: catalogQuestions()}
	s := newTestStore(t, backend)
	answerAll(t, s)

	res, err := s.Finalize(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NotNil(t, s.Result())

	_, err = s.Reset(context.Background())
	require.NoError(t, err)
	require.Nil(t, s.Result())
	require.Nil(t, s.Snapshot().Result)
}

func TestOptimisticAnswerSurvivesSubmitFailure(t *testing.T) {
	backend := &fakeBackend{questions: catalogQuestions()}
	s := newTestStore(t, backend)
	_, err := s.EnsureSession(context.Background())
	require.NoError(t, err)

	backend.submitErr = errors.New("connection reset")
	sel := &Selection{ChoiceID: "q4-c2", Label: "Option B", Value: "b"}
	err = s.SetAnswer(context.Background(), KeySkinType, sel)
	require.ErrorIs(t, err, ErrAnswerPersist)

	got := s.Answers()[KeySkinType]
	require.NotNil(t, got)
	require.Equal(t, "q4-c2", got.ChoiceID)
	require.Equal(t, "b", got.Value)
	require.ErrorIs(t, s.LastError(), ErrAnswerPersist)
}

func TestClearAnswerIsLocalOnly(t *testing.T) {
	backend := &fakeBackend{questions: catalogQuestions()}
	s := newTestStore(t, backend)
	require.NoError(t, s.SetAnswer(context.Background(), KeyBudget, &Selection{
		ChoiceID: "q7-c1", Label: "Option A", Value: "a",
	}))
	submitted := atomic.LoadInt32(&backend.submitCalls)

	require.NoError(t, s.SetAnswer(context.Background(), KeyBudget, nil))
	require.Nil(t, s.Answers()[KeyBudget])
	require.Equal(t, submitted, atomic.LoadInt32(&backend.submitCalls))
}

func TestSetAnswerLazilyStartsSession(t *testing.T) {
	backend := &fakeBackend{questions: catalogQuestions()}
	s := newTestStore(t, backend)
	require.Empty(t, s.SessionID())

	require.NoError(t, s.SetAnswer(context.Background(), KeyPrimaryConcern, &Selection{
		ChoiceID: "q1-c1", Label: "Option A", Value: "a",
	}))

	require.NotEmpty(t, s.SessionID())
	backend.mu.Lock()
	defer backend.mu.Unlock()
	require.Len(t, backend.submissions, 1)
	require.Equal(t, "q1", backend.submissions[0].questionID)
	require.Equal(t, []string{"q1-c1"}, backend.submissions[0].choiceIDs)
}

func TestQuestionFetchFailureIsRetryable(t *testing.T) {
	backend := &fakeBackend{questions: catalogQuestions(), fetchErr: errors.New("timeout")}
	s := NewStore(backend, NewMemoryCache(), nil)

	err := s.Init(context.Background())
	require.ErrorIs(t, err, ErrQuestionFetch)
	require.ErrorIs(t, s.LastError(), ErrQuestionFetch)
	require.Empty(t, s.Questions())

	backend.fetchErr = nil
	require.NoError(t, s.EnsureQuestions(context.Background()))
	require.Len(t, s.Questions(), len(QuestionKeys()))
}

func TestSnapshotReflectsState(t *testing.T) {
	backend := &fakeBackend{questions: catalogQuestions()}
	s := newTestStore(t, backend)
	answerAll(t, s)

	st := s.Snapshot()
	require.Equal(t, s.SessionID(), st.SessionID)
	require.True(t, st.IsComplete)
	require.Len(t, st.Answers, len(QuestionKeys()))
	require.Empty(t, st.LastError)
}
