package models

import "time"

// TableNode -> identitas QR permanen untuk satu meja fisik
type TableNode struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Label       string    `gorm:"type:varchar(50);not null" json:"label"`
	AccessToken string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"access_token"`
	VenueID     uint      `gorm:"index;not null" json:"venue_id"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}
