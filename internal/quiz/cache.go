package quiz

import "sync"

// Cache is the durable client-side mirror of the session id and answers. It is
// a best-effort, lower-trust store: the live in-memory state always wins and
// the cache is only read back during initial restore. Implementations must be
// safe for concurrent use.
type Cache interface {
	LoadSession() (string, bool)
	LoadAnswers() (map[QuestionKey]*Answer, bool)
	SaveSession(id string)
	SaveAnswers(answers map[QuestionKey]*Answer)
	Clear()
}

// MemoryCache is a process-local Cache. It is the default when no durable
// cache is wired in, and the test double for the store's persistence paths.
type MemoryCache struct {
	mu         sync.Mutex
	session    string
	hasSession bool
	answers    map[QuestionKey]*Answer
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) LoadSession() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session, c.hasSession
}

func (c *MemoryCache) LoadAnswers() (map[QuestionKey]*Answer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.answers == nil {
		return nil, false
	}
	return copyAnswers(c.answers), true
}

func (c *MemoryCache) SaveSession(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = id
	c.hasSession = true
}

func (c *MemoryCache) SaveAnswers(answers map[QuestionKey]*Answer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answers = copyAnswers(answers)
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = ""
	c.hasSession = false
	c.answers = nil
}

func copyAnswers(in map[QuestionKey]*Answer) map[QuestionKey]*Answer {
	out := make(map[QuestionKey]*Answer, len(in))
	for k, a := range in {
		if a == nil {
			out[k] = nil
			continue
		}
		cp := *a
		out[k] = &cp
	}
	return out
}
