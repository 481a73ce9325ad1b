package models

import (
	"time"

	"gorm.io/datatypes"
)

// Device is a registered device identity. The identity string itself is
// generated client-side (see internal/device) and sent up on register;
// the row only tracks when we saw it plus whatever client info it
// self-reported (platform, user agent, app version).
type Device struct {
	ID       uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	DeviceID string         `gorm:"type:varchar(64);not null;uniqueIndex" json:"device_id"`
	Meta     datatypes.JSON `json:"meta,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}
