package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeya-sree-2007/feedbackhub-api/internal/models"
)

type memLoader struct {
	mu      sync.Mutex
	reviews []models.Review
}

func (l *memLoader) LoadAll(ctx context.Context) ([]models.Review, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.Review, len(l.reviews))
	copy(out, l.reviews)
	return out, nil
}

func (l *memLoader) set(reviews []models.Review) {
	l.mu.Lock()
	l.reviews = reviews
	l.mu.Unlock()
}

type recorder struct {
	mu    sync.Mutex
	snaps [][]models.Review
}

func (r *recorder) record(s []models.Review) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recorder) last() ([]models.Review, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return nil, false
	}
	return r.snaps[len(r.snaps)-1], true
}

func (r *recorder) waitForSnapshot(t *testing.T, cond func([]models.Review) bool) []models.Review {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s, ok := r.last(); ok && cond(s) {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for snapshot")
	return nil
}

func newRunningHub(t *testing.T, loader Loader) *Hub {
	t.Helper()
	hub := NewHub(loader)
	go hub.Run()
	t.Cleanup(hub.Close)
	return hub
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	loader := &memLoader{reviews: []models.Review{
		{UID: "user_a", Rating: 5},
		{UID: "user_b", Rating: 3},
	}}
	hub := newRunningHub(t, loader)

	rec := &recorder{}
	cancel := hub.Subscribe(Filter{}, rec.record)
	defer cancel()

	snap := rec.waitForSnapshot(t, func(s []models.Review) bool { return len(s) == 2 })
	assert.Len(t, snap, 2)
}

func TestScopedFilterNeverLeaksForeignRows(t *testing.T) {
	loader := &memLoader{reviews: []models.Review{
		{UID: "user_a", Rating: 5},
		{UID: "user_b", Rating: 3},
		{UID: "user_a", Rating: 4},
	}}
	hub := newRunningHub(t, loader)

	rec := &recorder{}
	cancel := hub.Subscribe(Filter{UID: "user_a"}, rec.record)
	defer cancel()

	snap := rec.waitForSnapshot(t, func(s []models.Review) bool { return len(s) == 2 })
	for _, r := range snap {
		assert.Equal(t, "user_a", r.UID)
	}
}

func TestNotifyRefansOutAfterChange(t *testing.T) {
	loader := &memLoader{}
	hub := newRunningHub(t, loader)

	rec := &recorder{}
	cancel := hub.Subscribe(Filter{}, rec.record)
	defer cancel()

	rec.waitForSnapshot(t, func(s []models.Review) bool { return len(s) == 0 })

	loader.set([]models.Review{{UID: "user_a", Rating: 5}})
	hub.Notify()

	snap := rec.waitForSnapshot(t, func(s []models.Review) bool { return len(s) == 1 })
	assert.Equal(t, 5, snap[0].Rating)
}

func TestCancelStopsDeliveryAndIsIdempotent(t *testing.T) {
	loader := &memLoader{}
	hub := newRunningHub(t, loader)

	rec := &recorder{}
	cancel := hub.Subscribe(Filter{}, rec.record)
	rec.waitForSnapshot(t, func(s []models.Review) bool { return true })

	cancel()
	cancel() // second call must be a no-op
	require.Equal(t, 0, hub.SubscriberCount())

	rec.mu.Lock()
	seen := len(rec.snaps)
	rec.mu.Unlock()

	loader.set([]models.Review{{UID: "user_a", Rating: 1}})
	hub.Notify()
	time.Sleep(50 * time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, seen, len(rec.snaps))
}

func TestRepeatedSubscribeCancelDoesNotLeak(t *testing.T) {
	hub := newRunningHub(t, &memLoader{})

	for i := 0; i < 50; i++ {
		cancel := hub.Subscribe(Filter{UID: "user_x"}, func([]models.Review) {})
		cancel()
	}
	assert.Equal(t, 0, hub.SubscriberCount())
}
