package session

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/stellarlinkco/rosterbot/internal/roster"
)

// State is the pagination cursor of one conversation.
type State struct {
	Query     string
	Results   []roster.Record
	Page      int
	MessageID int // 0 when no page message is displayed
	Touched   time.Time
}

// Store keeps conversation state by chat id.
type Store interface {
	Get(chatID string) (State, bool)
	Put(chatID string, st State)
	Delete(chatID string)
}

const DefaultMaxEntries = 10000

// MemoryStore is an in-process LRU store. It is safe for concurrent use.
type MemoryStore struct {
	cache *lru.Cache[string, State]
}

func NewMemoryStore(maxEntries int) (*MemoryStore, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c, err := lru.New[string, State](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create session lru: %w", err)
	}
	return &MemoryStore{cache: c}, nil
}

func (m *MemoryStore) Get(chatID string) (State, bool) {
	return m.cache.Get(chatID)
}

func (m *MemoryStore) Put(chatID string, st State) {
	m.cache.Add(chatID, st)
}

func (m *MemoryStore) Delete(chatID string) {
	m.cache.Remove(chatID)
}

func (m *MemoryStore) Len() int {
	return m.cache.Len()
}

// Keys returns chat ids from oldest to newest use.
func (m *MemoryStore) Keys() []string {
	return m.cache.Keys()
}

// Peek reads a state without refreshing its recency.
func (m *MemoryStore) Peek(chatID string) (State, bool) {
	return m.cache.Peek(chatID)
}
