package models

import "time"

const (
	SessionActive = "active"
	SessionEnded  = "ended"
)

// Session -> satu periode okupansi meja oleh tamu, diproteksi PIN
type Session struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TableNodeID uint      `gorm:"not null;uniqueIndex:idx_one_active_per_node" json:"table_node_id"`
	TableNode   TableNode `gorm:"foreignKey:TableNodeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Status      string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	// ActiveFlag bernilai 1 selama sesi aktif dan NULL setelah berakhir.
	// Unique index (table_node_id, active_flag) menjamin maksimal satu
	// sesi aktif per meja di level storage; baris NULL tidak bertabrakan.
	ActiveFlag       *uint      `gorm:"uniqueIndex:idx_one_active_per_node" json:"-"`
	VerificationCode string     `gorm:"type:varchar(8);not null" json:"-"`
	PinRequired      bool       `gorm:"not null;default:true" json:"pin_required"`
	StartedAt        time.Time  `gorm:"not null" json:"started_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	CreatedAt        time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null" json:"updated_at"`
}

// IsActive -> true selama sesi masih menerima order
func (s *Session) IsActive() bool {
	return s.Status == SessionActive
}
