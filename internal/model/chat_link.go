package model

import "time"

// ChatLink maps a Telegram chat to an application user. Paid status is read
// from the user's Subscription, never stored here.
type ChatLink struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      *uint     `gorm:"uniqueIndex" json:"user_id"`
	ChatID      int64     `gorm:"not null;uniqueIndex" json:"chat_id"`
	DisplayName string    `gorm:"type:varchar(150)" json:"display_name"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ChatLink) TableName() string {
	return "chat_links"
}

// ChatLinkToken is a one-time code a signed-in web user hands to the bot
// (`/start <token>`) to link or re-link a chat to their account.
type ChatLinkToken struct {
	Token     string     `gorm:"type:varchar(64);primaryKey" json:"token"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	ExpiresAt time.Time  `gorm:"not null;index" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ChatLinkToken) TableName() string {
	return "chat_link_tokens"
}
