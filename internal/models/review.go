package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is one star rating + comment submitted from a device.
// UID is the submitting device's identity (not the account id); it is
// written once at create and never reassigned. Date is the submission
// timestamp and survives edits untouched.
type Review struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	Name    string    `gorm:"not null" json:"name"`
	Rating  int       `gorm:"not null" json:"rating"` // 1-5
	Comment string    `gorm:"type:text;not null" json:"comment"`
	Date    time.Time `gorm:"not null" json:"date"`
	UID     string    `gorm:"type:varchar(64);not null;index" json:"uid"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
