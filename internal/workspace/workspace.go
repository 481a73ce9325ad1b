// Package workspace owns the review-screen state that the original UI
// kept in ambient component state: the edit form, the edit/delete
// context, the device's own review list and the global stats. It talks
// to the store and the live-query hub through narrow interfaces so it
// runs the same against the in-process service or test fakes.
package workspace

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jeya-sree-2007/feedbackhub-api/internal/device"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/models"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/realtime"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/services/review"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/stats"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/utils"
)

const (
	noticeSubmitted = "Feedback Submitted!"
	noticeUpdated   = "Feedback Updated!"
)

// Field names a form input.
type Field string

const (
	FieldName    Field = "name"
	FieldComment Field = "comment"
)

// FormState is the editable part of a review. Date and UID are not
// editable and so never appear here.
type FormState struct {
	Name    string
	Comment string
	Rating  int
}

// Store is the write side of the review collection.
type Store interface {
	Submit(ctx context.Context, uid string, in review.Input) (models.Review, error)
	Update(ctx context.Context, id uuid.UUID, uid string, in review.Input) (models.Review, error)
	Delete(ctx context.Context, id uuid.UUID, uid string) error
}

// Subscriber is the read side: a cancellable live query.
type Subscriber interface {
	Subscribe(f realtime.Filter, fn func([]models.Review)) (cancel func())
}

// Workspace is the review screen's state container. All exported
// methods are safe for concurrent use; subscription callbacks and
// user-driven calls interleave freely.
type Workspace struct {
	store    Store
	subs     Subscriber
	resolver *device.Resolver

	// startMu serializes Start/Close so overlapping starts can't
	// clobber each other's cancel pairs and leak subscriptions
	startMu sync.Mutex

	mu         sync.Mutex
	uid        string
	form       FormState
	editID     uuid.UUID
	editing    bool
	deleteID   uuid.UUID
	confirming bool
	reviews    []models.Review
	stats      stats.Stats
	notice     string
	cancels    []func()
}

func New(store Store, subs Subscriber, resolver *device.Resolver) *Workspace {
	return &Workspace{
		store:    store,
		subs:     subs,
		resolver: resolver,
		stats:    stats.Stats{Average: "0.0"},
	}
}

// Start resolves the device identity and opens both live queries: the
// scoped one feeding the own-review list and the global one feeding
// stats. Neither subscription is opened before the identity is known.
// Calling Start again (e.g. after the identity storage changed) tears
// down the previous subscriptions first, so repeated starts never
// leak listeners.
func (w *Workspace) Start(ctx context.Context) error {
	uid, err := w.resolver.Resolve()
	if err != nil {
		return err
	}

	w.startMu.Lock()
	defer w.startMu.Unlock()

	w.teardown()

	w.mu.Lock()
	w.uid = uid
	w.mu.Unlock()

	cancelList := w.subs.Subscribe(realtime.Filter{UID: uid}, w.onOwnReviews)
	cancelStats := w.subs.Subscribe(realtime.Filter{}, w.onAllReviews)

	w.mu.Lock()
	w.cancels = []func(){cancelList, cancelStats}
	w.mu.Unlock()
	return nil
}

// Close tears down the live queries. Safe to call repeatedly.
func (w *Workspace) Close() {
	w.startMu.Lock()
	defer w.startMu.Unlock()
	w.teardown()
}

// teardown cancels the current subscriptions. Callers hold startMu.
func (w *Workspace) teardown() {
	w.mu.Lock()
	cancels := w.cancels
	w.cancels = nil
	w.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

func (w *Workspace) onOwnReviews(rs []models.Review) {
	// the store does not guarantee order; newest first is our job
	sort.Slice(rs, func(i, j int) bool { return rs[i].Date.After(rs[j].Date) })

	w.mu.Lock()
	w.reviews = rs
	w.mu.Unlock()
}

func (w *Workspace) onAllReviews(rs []models.Review) {
	agg := stats.Aggregate(rs)

	w.mu.Lock()
	w.stats = agg
	w.mu.Unlock()
}

// UID returns the resolved device identity ("" before Start).
func (w *Workspace) UID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.uid
}

// OnChange sets a text field, capitalizing the first letter the way
// the original input handler did.
func (w *Workspace) OnChange(field Field, value string) {
	value = utils.CapitalizeFirst(value)

	w.mu.Lock()
	defer w.mu.Unlock()
	switch field {
	case FieldName:
		w.form.Name = value
	case FieldComment:
		w.form.Comment = value
	}
}

// SetRating sets the star rating.
func (w *Workspace) SetRating(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.form.Rating = n
}

// Form returns the current form state.
func (w *Workspace) Form() FormState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.form
}

// Editing reports the edit context, if any.
func (w *Workspace) Editing() (uuid.UUID, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.editID, w.editing
}

// Reviews returns the device's own reviews, newest first.
func (w *Workspace) Reviews() []models.Review {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]models.Review, len(w.reviews))
	copy(out, w.reviews)
	return out
}

// Stats returns the latest global aggregate.
func (w *Workspace) Stats() stats.Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Notice returns and clears the last success notification.
func (w *Workspace) Notice() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := w.notice
	w.notice = ""
	return n
}

// Submit creates a new review, or updates the one under edit. An unset
// rating is rejected before the store is contacted and leaves the form
// exactly as it was. A store failure is terminal for this attempt: the
// form keeps its contents so the user can resubmit.
func (w *Workspace) Submit(ctx context.Context) error {
	w.mu.Lock()
	form := w.form
	uid := w.uid
	editID, editing := w.editID, w.editing
	w.mu.Unlock()

	if form.Rating == 0 {
		return review.ErrRatingRequired
	}

	in := review.Input{Name: form.Name, Rating: form.Rating, Comment: form.Comment}

	var err error
	notice := noticeSubmitted
	if editing {
		_, err = w.store.Update(ctx, editID, uid, in)
		notice = noticeUpdated
	} else {
		_, err = w.store.Submit(ctx, uid, in)
	}
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.form = FormState{}
	w.editing = false
	w.editID = uuid.Nil
	w.notice = notice
	w.mu.Unlock()
	return nil
}

// StartEdit loads an existing review into the form. Only the editable
// fields are copied; date and uid stay behind.
func (w *Workspace) StartEdit(item models.Review) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.form = FormState{Name: item.Name, Comment: item.Comment, Rating: item.Rating}
	w.editID = item.ID
	w.editing = true
}

// RequestDelete records a delete candidate; nothing is removed until
// ConfirmDelete.
func (w *Workspace) RequestDelete(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.deleteID = id
	w.confirming = true
}

// CancelDelete abandons the pending delete.
func (w *Workspace) CancelDelete() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.deleteID = uuid.Nil
	w.confirming = false
}

// PendingDelete reports the delete candidate, if any.
func (w *Workspace) PendingDelete() (uuid.UUID, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.deleteID, w.confirming
}

// ConfirmDelete removes the pending review. If that review was loaded
// in the edit form, the form is reset and edit mode exited.
func (w *Workspace) ConfirmDelete(ctx context.Context) error {
	w.mu.Lock()
	id, confirming := w.deleteID, w.confirming
	uid := w.uid
	w.mu.Unlock()

	if !confirming {
		return nil
	}

	if err := w.store.Delete(ctx, id, uid); err != nil {
		return err
	}

	w.mu.Lock()
	if w.editing && w.editID == id {
		w.form = FormState{}
		w.editing = false
		w.editID = uuid.Nil
	}
	w.deleteID = uuid.Nil
	w.confirming = false
	w.mu.Unlock()
	return nil
}
