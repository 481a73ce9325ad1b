// internal/realtime/hub.go
package realtime

import (
	"context"
	"log"
	"sync"

	"github.com/jeya-sree-2007/feedbackhub-api/internal/models"
)

// Filter selects which reviews a subscription sees. The zero value
// matches the whole collection; a non-empty UID narrows it to one
// device's own reviews.
type Filter struct {
	UID string
}

func (f Filter) match(r models.Review) bool {
	return f.UID == "" || r.UID == f.UID
}

// Loader produces the full current review set. The hub reloads through
// it on every change notification.
type Loader interface {
	LoadAll(ctx context.Context) ([]models.Review, error)
}

type subscriber struct {
	filter Filter
	fn     func([]models.Review)
}

// Hub is a live-query fanout over the review collection: subscribers
// register an equality filter and a callback, and on every change each
// one receives the full current matching set (not a delta). Callbacks
// run on the hub goroutine and must not block.
type Hub struct {
	loader Loader

	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64

	notify chan struct{}
	done   chan struct{}
}

func NewHub(loader Loader) *Hub {
	return &Hub{
		loader: loader,
		subs:   make(map[uint64]*subscriber),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Subscribe registers a listener and returns its cancel function.
// Cancel is idempotent and must be called on teardown; a cancelled
// subscriber is never invoked again. The initial snapshot is delivered
// asynchronously via the hub goroutine.
func (h *Hub) Subscribe(f Filter, fn func([]models.Review)) (cancel func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = &subscriber{filter: f, fn: fn}
	h.mu.Unlock()

	h.Notify()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Notify schedules a reload + fanout. Bursts coalesce into a single
// reload; every subscriber still ends up with the latest set.
func (h *Hub) Notify() {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// SubscriberCount reports how many live subscriptions exist.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Run drives the hub until Close. Start it with `go hub.Run()`.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return
		case <-h.notify:
			h.fanout()
		}
	}
}

func (h *Hub) Close() {
	close(h.done)
}

func (h *Hub) fanout() {
	all, err := h.loader.LoadAll(context.Background())
	if err != nil {
		log.Println("realtime: reload failed:", err)
		return
	}

	h.mu.Lock()
	targets := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		matched := make([]models.Review, 0, len(all))
		for _, r := range all {
			if s.filter.match(r) {
				matched = append(matched, r)
			}
		}
		s.fn(matched)
	}
}
