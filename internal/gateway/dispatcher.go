package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/stellarlinkco/rosterbot/internal/bus"
)

const (
	defaultQueueSize = 16
	defaultIdle      = time.Minute
)

var errQueueFull = errors.New("chat queue full")

// Handler processes one event. lookup.Service implements it.
type Handler interface {
	Handle(ctx context.Context, ev bus.InboundEvent)
}

// dispatcher runs one serial worker per chat so a chat's events are handled
// in arrival order while different chats proceed in parallel. Workers retire
// after sitting idle.
type dispatcher struct {
	handler Handler
	logger  *slog.Logger
	idle    time.Duration

	mu     sync.Mutex
	queues map[string]*chatQueue
	wg     sync.WaitGroup
}

type chatQueue struct {
	events  chan bus.InboundEvent
	pending int // guarded by dispatcher.mu
}

func newDispatcher(h Handler, logger *slog.Logger) *dispatcher {
	return &dispatcher{
		handler: h,
		logger:  logger,
		idle:    defaultIdle,
		queues:  make(map[string]*chatQueue),
	}
}

// Dispatch queues ev behind earlier events of the same chat. It never blocks:
// when that chat's queue is full the event is dropped with errQueueFull, so
// one busy chat cannot hold up the others.
func (d *dispatcher) Dispatch(ctx context.Context, ev bus.InboundEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := ev.SessionKey()

	d.mu.Lock()
	q, ok := d.queues[key]
	if !ok {
		q = &chatQueue{events: make(chan bus.InboundEvent, defaultQueueSize)}
		d.queues[key] = q
		d.wg.Add(1)
		go d.work(ctx, key, q)
	}
	q.pending++
	d.mu.Unlock()

	select {
	case q.events <- ev:
		return nil
	default:
		d.mu.Lock()
		q.pending--
		d.mu.Unlock()
		return errQueueFull
	}
}

func (d *dispatcher) work(ctx context.Context, key string, q *chatQueue) {
	defer d.wg.Done()

	timer := time.NewTimer(d.idle)
	defer timer.Stop()

	for {
		select {
		case ev := <-q.events:
			d.handle(ctx, ev)
			d.mu.Lock()
			q.pending--
			d.mu.Unlock()
			timer.Reset(d.idle)
		case <-timer.C:
			d.mu.Lock()
			if q.pending == 0 {
				delete(d.queues, key)
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
			timer.Reset(d.idle)
		case <-ctx.Done():
			d.mu.Lock()
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
	}
}

func (d *dispatcher) handle(ctx context.Context, ev bus.InboundEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panic", "event_id", ev.ID, "chat", ev.ChatID, "panic", r)
		}
	}()
	d.handler.Handle(ctx, ev)
}

func (d *dispatcher) size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queues)
}

// wait blocks until every worker has exited or timeout passes.
func (d *dispatcher) wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
