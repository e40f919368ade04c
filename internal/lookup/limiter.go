package lookup

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

const maxTrackedChats = 10000

// chatLimiter rate limits searches per chat. Limiters of chats that went
// quiet fall out of the LRU.
type chatLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

// newChatLimiter returns nil when rps <= 0; a nil limiter allows everything.
func newChatLimiter(rps float64, burst int) *chatLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	cache, err := lru.New[string, *rate.Limiter](maxTrackedChats)
	if err != nil {
		return nil
	}
	return &chatLimiter{
		limiters: cache,
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

func (l *chatLimiter) get(chatID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters.Get(chatID)
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters.Add(chatID, limiter)
	}
	return limiter
}

func (l *chatLimiter) Allow(chatID string) bool {
	if l == nil {
		return true
	}
	return l.get(chatID).Allow()
}
