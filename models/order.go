package models

import "time"

// Status persiapan order (sumbu dapur)
const (
	OrderPending   = "pending"
	OrderPreparing = "preparing"
	OrderServing   = "serving"
	OrderServed    = "served"
)

// Status pembayaran order (sumbu terpisah dari persiapan)
const (
	PaymentUnpaid = "unpaid"
	PaymentPaid   = "paid"
)

// Order -> satu line item yang dipesan dalam sebuah sesi.
// order_status dan payment_status adalah dua sumbu independen:
// order boleh served sekaligus masih unpaid.
type Order struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	SessionID     uint       `gorm:"index;not null" json:"session_id"`
	Session       Session    `gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	MenuItemID    uint       `gorm:"not null" json:"menu_item_id"`
	MenuItem      MenuItem   `gorm:"foreignKey:MenuItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"menu_item"`
	Quantity      int        `gorm:"not null" json:"quantity"`
	Price         float64    `gorm:"type:decimal(10,2);not null" json:"price"`
	CustomerName  string     `gorm:"type:varchar(100)" json:"customer_name"`
	DeviceID      string     `gorm:"type:varchar(100);index" json:"device_id"`
	OrderStatus   string     `gorm:"type:varchar(20);not null;default:'pending'" json:"order_status"`
	PaymentStatus string     `gorm:"type:varchar(20);not null;default:'unpaid'" json:"payment_status"`
	Note          string     `gorm:"type:text" json:"note"`
	ServedAt      *time.Time `json:"served_at,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updated_at"`
}

// Subtotal -> kontribusi order ke total meja
func (o *Order) Subtotal() float64 {
	return float64(o.Quantity) * o.Price
}

// IsFinished -> order sudah selesai dari sisi dapur
func (o *Order) IsFinished() bool {
	return o.OrderStatus == OrderServed
}
