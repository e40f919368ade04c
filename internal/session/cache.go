package session

import (
	"time"

	"github.com/stellarlinkco/rosterbot/internal/roster"
)

const DefaultTTL = 24 * time.Hour

// Cache implements the per-conversation result cache on top of a Store.
// Callers that read and then write a conversation hold Lock for that chat.
type Cache struct {
	store Store
	locks *keyedMutex
	ttl   time.Duration
	now   func() time.Time
}

func NewCache(store Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store: store,
		locks: newKeyedMutex(),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Lock serializes access to one conversation. The returned func releases it.
func (c *Cache) Lock(chatID string) func() {
	return c.locks.Lock(chatID)
}

// StartSession forgets everything cached for the chat.
func (c *Cache) StartSession(chatID string) {
	c.store.Delete(chatID)
}

// StoreResults replaces the chat's state with results on page 1 and no
// displayed message.
func (c *Cache) StoreResults(chatID, query string, results []roster.Record) {
	c.store.Put(chatID, State{
		Query:   query,
		Results: results,
		Page:    1,
		Touched: c.now(),
	})
}

func (c *Cache) Get(chatID string) (State, bool) {
	return c.store.Get(chatID)
}

// SetDisplayedMessage records the page message id; 0 clears it.
func (c *Cache) SetDisplayedMessage(chatID string, messageID int) {
	c.update(chatID, func(st *State) { st.MessageID = messageID })
}

func (c *Cache) SetPage(chatID string, page int) {
	c.update(chatID, func(st *State) { st.Page = page })
}

func (c *Cache) update(chatID string, fn func(st *State)) {
	st, ok := c.store.Get(chatID)
	if !ok {
		return
	}
	fn(&st)
	st.Touched = c.now()
	c.store.Put(chatID, st)
}

// Sweepable is implemented by stores that can enumerate their keys.
type Sweepable interface {
	Keys() []string
	Peek(chatID string) (State, bool)
}

// Sweep drops conversations idle for longer than the TTL and reports how many
// were removed. Stores that cannot enumerate keys are left alone.
func (c *Cache) Sweep(now time.Time) int {
	s, ok := c.store.(Sweepable)
	if !ok {
		return 0
	}
	removed := 0
	for _, key := range s.Keys() {
		st, ok := s.Peek(key)
		if !ok || now.Sub(st.Touched) <= c.ttl {
			continue
		}
		unlock := c.Lock(key)
		if st, ok := s.Peek(key); ok && now.Sub(st.Touched) > c.ttl {
			c.store.Delete(key)
			removed++
		}
		unlock()
	}
	return removed
}
