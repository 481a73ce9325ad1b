package review

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/jeya-sree-2007/feedbackhub-api/internal/models"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/realtime"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/stats"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/utils"
)

var (
	ErrRatingRequired   = errors.New("a star rating is required")
	ErrRatingOutOfRange = errors.New("rating must be between 1 and 5")
	ErrNameRequired     = errors.New("name is required")
	ErrCommentRequired  = errors.New("comment is required")
	ErrDeviceRequired   = errors.New("device identity is required")
	ErrNotFound         = errors.New("review not found")
	ErrNotOwner         = errors.New("review belongs to another device")
)

// Service mediates all review writes: it validates locally before the
// database is contacted, stamps Date and UID at create, and keeps both
// immutable on update. Every successful write wakes the hub and tells
// the other instances over redis.
type Service struct {
	DB  *gorm.DB
	Hub *realtime.Hub
	RDB *redis.Client
}

func NewService(db *gorm.DB, hub *realtime.Hub, rdb *redis.Client) *Service {
	return &Service{DB: db, Hub: hub, RDB: rdb}
}

// Input is what a device may set on a review. Date and UID are not
// here on purpose.
type Input struct {
	Name    string `json:"name"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (in *Input) validate() error {
	if in.Rating == 0 {
		return ErrRatingRequired
	}
	if in.Rating < 1 || in.Rating > 5 {
		return ErrRatingOutOfRange
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return ErrNameRequired
	}
	in.Name = utils.CapitalizeFirst(in.Name)
	in.Comment = strings.TrimSpace(in.Comment)
	if in.Comment == "" {
		return ErrCommentRequired
	}
	return nil
}

// Submit creates a review for the given device. Validation failures
// never reach the database.
func (s *Service) Submit(ctx context.Context, uid string, in Input) (models.Review, error) {
	if uid == "" {
		return models.Review{}, ErrDeviceRequired
	}
	if err := in.validate(); err != nil {
		return models.Review{}, err
	}

	rv := models.Review{
		Name:    in.Name,
		Rating:  in.Rating,
		Comment: in.Comment,
		Date:    time.Now().UTC(),
		UID:     uid,
	}
	if err := s.DB.WithContext(ctx).Create(&rv).Error; err != nil {
		return models.Review{}, err
	}

	s.notifyChange(ctx)
	return rv, nil
}

// Update rewrites name, rating and comment of the device's own review.
// Date and UID are never part of the update set.
func (s *Service) Update(ctx context.Context, id uuid.UUID, uid string, in Input) (models.Review, error) {
	if uid == "" {
		return models.Review{}, ErrDeviceRequired
	}
	if err := in.validate(); err != nil {
		return models.Review{}, err
	}

	var rv models.Review
	if err := s.DB.WithContext(ctx).First(&rv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Review{}, ErrNotFound
		}
		return models.Review{}, err
	}
	if rv.UID != uid {
		return models.Review{}, ErrNotOwner
	}

	if err := s.DB.WithContext(ctx).Model(&rv).Updates(map[string]interface{}{
		"name":    in.Name,
		"rating":  in.Rating,
		"comment": in.Comment,
	}).Error; err != nil {
		return models.Review{}, err
	}

	s.notifyChange(ctx)
	return rv, nil
}

// Delete removes the device's own review.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, uid string) error {
	if uid == "" {
		return ErrDeviceRequired
	}

	var rv models.Review
	if err := s.DB.WithContext(ctx).First(&rv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if rv.UID != uid {
		return ErrNotOwner
	}

	if err := s.DB.WithContext(ctx).Delete(&rv).Error; err != nil {
		return err
	}

	s.notifyChange(ctx)
	return nil
}

// ListByDevice returns the device's own reviews, newest first.
func (s *Service) ListByDevice(ctx context.Context, uid string) ([]models.Review, error) {
	if uid == "" {
		return nil, ErrDeviceRequired
	}
	var out []models.Review
	err := s.DB.WithContext(ctx).
		Where("uid = ?", uid).
		Order("date DESC").
		Find(&out).Error
	return out, err
}

// LoadAll returns the whole collection. It doubles as the hub's Loader.
func (s *Service) LoadAll(ctx context.Context) ([]models.Review, error) {
	var out []models.Review
	err := s.DB.WithContext(ctx).Find(&out).Error
	return out, err
}

// Stats aggregates the whole collection.
func (s *Service) Stats(ctx context.Context) (stats.Stats, error) {
	all, err := s.LoadAll(ctx)
	if err != nil {
		return stats.Stats{}, err
	}
	return stats.Aggregate(all), nil
}

func (s *Service) notifyChange(ctx context.Context) {
	if s.Hub != nil {
		s.Hub.Notify()
	}
	if s.RDB != nil {
		realtime.PublishChange(ctx, s.RDB)
	}
}

// IsValidationErr reports whether err is a local validation failure
// (as opposed to a store failure).
func IsValidationErr(err error) bool {
	switch {
	case errors.Is(err, ErrRatingRequired),
		errors.Is(err, ErrRatingOutOfRange),
		errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrCommentRequired),
		errors.Is(err, ErrDeviceRequired):
		return true
	}
	return false
}
