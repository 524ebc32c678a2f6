package model

import "time"

// PaymentEvent is the receipt of one verified payment confirmation. The
// gateway's event id is the key, so redelivered events collapse.
type PaymentEvent struct {
	EventID   string    `gorm:"type:varchar(128);primaryKey" json:"event_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Source    string    `gorm:"type:varchar(20);not null" json:"source"`
	Amount    int64     `gorm:"not null" json:"amount"`
	Currency  string    `gorm:"type:varchar(3);not null" json:"currency"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (PaymentEvent) TableName() string {
	return "payment_events"
}
