package workspace

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeya-sree-2007/feedbackhub-api/internal/device"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/models"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/realtime"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/services/review"
)

// fakeStore is an in-memory Store that stamps Date/UID on create the
// way the real service does.
type fakeStore struct {
	mu          sync.Mutex
	rows        map[uuid.UUID]models.Review
	submitCalls int
	failWith    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[uuid.UUID]models.Review{}}
}

func (s *fakeStore) Submit(ctx context.Context, uid string, in review.Input) (models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitCalls++
	if s.failWith != nil {
		return models.Review{}, s.failWith
	}
	rv := models.Review{
		ID:      uuid.New(),
		Name:    in.Name,
		Rating:  in.Rating,
		Comment: in.Comment,
		Date:    time.Now().UTC(),
		UID:     uid,
	}
	s.rows[rv.ID] = rv
	return rv, nil
}

func (s *fakeStore) Update(ctx context.Context, id uuid.UUID, uid string, in review.Input) (models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return models.Review{}, s.failWith
	}
	rv, ok := s.rows[id]
	if !ok {
		return models.Review{}, review.ErrNotFound
	}
	rv.Name, rv.Rating, rv.Comment = in.Name, in.Rating, in.Comment
	s.rows[id] = rv
	return rv, nil
}

func (s *fakeStore) Delete(ctx context.Context, id uuid.UUID, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if _, ok := s.rows[id]; !ok {
		return review.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *fakeStore) get(id uuid.UUID) (models.Review, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rv, ok := s.rows[id]
	return rv, ok
}

// fakeSubscriber lets the test push snapshots synchronously.
type fakeSubscriber struct {
	mu   sync.Mutex
	subs []*fakeSub
}

type fakeSub struct {
	filter    realtime.Filter
	fn        func([]models.Review)
	cancelled bool
}

func (f *fakeSubscriber) Subscribe(flt realtime.Filter, fn func([]models.Review)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeSub{filter: flt, fn: fn}
	f.subs = append(f.subs, sub)
	return func() {
		f.mu.Lock()
		sub.cancelled = true
		f.mu.Unlock()
	}
}

func (f *fakeSubscriber) push(all []models.Review) {
	f.mu.Lock()
	subs := append([]*fakeSub(nil), f.subs...)
	f.mu.Unlock()

	for _, s := range subs {
		if s.cancelled {
			continue
		}
		matched := []models.Review{}
		for _, r := range all {
			if s.filter.UID == "" || s.filter.UID == r.UID {
				matched = append(matched, r)
			}
		}
		s.fn(matched)
	}
}

func (f *fakeSubscriber) active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.subs {
		if !s.cancelled {
			n++
		}
	}
	return n
}

func newStartedWorkspace(t *testing.T) (*Workspace, *fakeStore, *fakeSubscriber) {
	t.Helper()
	store := newFakeStore()
	subs := &fakeSubscriber{}
	w := New(store, subs, device.NewResolver(device.NewMemStore()))
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Close)
	return w, store, subs
}

func fillForm(w *Workspace, name, comment string, rating int) {
	w.OnChange(FieldName, name)
	w.OnChange(FieldComment, comment)
	w.SetRating(rating)
}

func TestSubmitWithoutRatingNeverContactsStore(t *testing.T) {
	w, store, _ := newStartedWorkspace(t)
	fillForm(w, "alice", "nice", 0)

	err := w.Submit(context.Background())

	assert.ErrorIs(t, err, review.ErrRatingRequired)
	assert.Equal(t, 0, store.submitCalls)
	// form is not cleared on rejection
	assert.Equal(t, "Alice", w.Form().Name)
	assert.Equal(t, "Nice", w.Form().Comment)
}

func TestSubmitStampsIdentityAndClearsForm(t *testing.T) {
	w, store, _ := newStartedWorkspace(t)
	fillForm(w, "alice", "nice place", 5)

	require.NoError(t, w.Submit(context.Background()))

	require.Equal(t, 1, store.submitCalls)
	store.mu.Lock()
	var created models.Review
	for _, rv := range store.rows {
		created = rv
	}
	store.mu.Unlock()

	assert.Equal(t, w.UID(), created.UID)
	assert.False(t, created.Date.IsZero())
	assert.Equal(t, FormState{}, w.Form())
	assert.Equal(t, "Feedback Submitted!", w.Notice())
	assert.Empty(t, w.Notice()) // notice is consumed
}

func TestSubmitInEditModeUpdatesWithoutTouchingDateOrUID(t *testing.T) {
	w, store, _ := newStartedWorkspace(t)
	fillForm(w, "alice", "first impression", 3)
	require.NoError(t, w.Submit(context.Background()))

	var created models.Review
	store.mu.Lock()
	for _, rv := range store.rows {
		created = rv
	}
	store.mu.Unlock()

	w.StartEdit(created)
	w.OnChange(FieldComment, "changed my mind")
	w.SetRating(5)
	require.NoError(t, w.Submit(context.Background()))

	updated, ok := store.get(created.ID)
	require.True(t, ok)
	assert.Equal(t, "Changed my mind", updated.Comment)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, created.Date, updated.Date)
	assert.Equal(t, created.UID, updated.UID)
	assert.Equal(t, "Feedback Updated!", w.Notice())

	_, editing := w.Editing()
	assert.False(t, editing)
}

func TestStartEditCopiesEditableFieldsOnly(t *testing.T) {
	w, _, _ := newStartedWorkspace(t)
	item := models.Review{
		ID: uuid.New(), Name: "Bob", Comment: "Fine", Rating: 2,
		Date: time.Now(), UID: "user_other",
	}

	w.StartEdit(item)

	assert.Equal(t, FormState{Name: "Bob", Comment: "Fine", Rating: 2}, w.Form())
	id, editing := w.Editing()
	assert.True(t, editing)
	assert.Equal(t, item.ID, id)
}

func TestDeleteIsTwoStep(t *testing.T) {
	w, store, _ := newStartedWorkspace(t)
	fillForm(w, "alice", "meh", 2)
	require.NoError(t, w.Submit(context.Background()))

	var created models.Review
	store.mu.Lock()
	for _, rv := range store.rows {
		created = rv
	}
	store.mu.Unlock()

	w.RequestDelete(created.ID)
	_, ok := store.get(created.ID)
	assert.True(t, ok, "nothing deleted before confirmation")

	w.CancelDelete()
	require.NoError(t, w.ConfirmDelete(context.Background()))
	_, ok = store.get(created.ID)
	assert.True(t, ok, "cancelled request must not delete")

	w.RequestDelete(created.ID)
	require.NoError(t, w.ConfirmDelete(context.Background()))
	_, ok = store.get(created.ID)
	assert.False(t, ok)
}

func TestDeletingEditedRecordResetsForm(t *testing.T) {
	w, store, _ := newStartedWorkspace(t)
	fillForm(w, "alice", "meh", 2)
	require.NoError(t, w.Submit(context.Background()))

	var created models.Review
	store.mu.Lock()
	for _, rv := range store.rows {
		created = rv
	}
	store.mu.Unlock()

	w.StartEdit(created)
	w.RequestDelete(created.ID)
	require.NoError(t, w.ConfirmDelete(context.Background()))

	assert.Equal(t, FormState{}, w.Form())
	_, editing := w.Editing()
	assert.False(t, editing)
}

func TestStoreFailureKeepsForm(t *testing.T) {
	w, store, _ := newStartedWorkspace(t)
	store.failWith = errors.New("store unavailable")
	fillForm(w, "alice", "nice", 4)

	err := w.Submit(context.Background())

	assert.Error(t, err)
	assert.Equal(t, "Alice", w.Form().Name)
	assert.Empty(t, w.Notice())
}

func TestScopedSnapshotSortedNewestFirstAndFiltered(t *testing.T) {
	w, _, subs := newStartedWorkspace(t)
	uid := w.UID()

	older := models.Review{ID: uuid.New(), UID: uid, Rating: 3, Date: time.Now().Add(-time.Hour)}
	newer := models.Review{ID: uuid.New(), UID: uid, Rating: 5, Date: time.Now()}
	foreign := models.Review{ID: uuid.New(), UID: "user_somebodyelse", Rating: 1, Date: time.Now()}

	subs.push([]models.Review{older, foreign, newer})

	got := w.Reviews()
	require.Len(t, got, 2)
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)

	// the foreign review still feeds global stats
	st := w.Stats()
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, "3.0", st.Average)
}

func TestConcurrentStartsDoNotLeakSubscriptions(t *testing.T) {
	w, _, subs := newStartedWorkspace(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Start(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, subs.active())
}

func TestRestartDoesNotLeakSubscriptions(t *testing.T) {
	w, _, subs := newStartedWorkspace(t)
	require.Equal(t, 2, subs.active())

	for i := 0; i < 5; i++ {
		require.NoError(t, w.Start(context.Background()))
	}
	assert.Equal(t, 2, subs.active())

	w.Close()
	assert.Equal(t, 0, subs.active())
}

func TestSubscriptionsOpenOnlyAfterIdentityResolved(t *testing.T) {
	store := newFakeStore()
	subs := &fakeSubscriber{}
	w := New(store, subs, device.NewResolver(device.NewMemStore()))

	require.Equal(t, 0, subs.active())
	require.NoError(t, w.Start(context.Background()))
	defer w.Close()

	require.NotEmpty(t, w.UID())
	subs.mu.Lock()
	defer subs.mu.Unlock()
	for _, s := range subs.subs {
		if s.filter.UID != "" {
			assert.Equal(t, w.UID(), s.filter.UID, "scoped query must carry the resolved identity")
		}
	}
}
