package types

import "time"

// Letter is one stored valentine letter, delivered on the 14th.
type Letter struct {
	ID            uint64 `gorm:"primaryKey"`
	GuildID       uint64 `gorm:"index;not null"`
	SenderID      uint64 `gorm:"index;not null"`
	SenderName    string `gorm:"size:64"`
	RecipientID   uint64 `gorm:"not null"`
	RecipientName string `gorm:"size:64"`
	Body          string `gorm:"type:text;not null"`
	Anonymous     bool   `gorm:"default:false"`
	Delivered     bool   `gorm:"default:false;index"`
	DeliveredAt   *time.Time
	CreatedAt     time.Time
}

// Birthday is one member's registered date. Year is optional.
type Birthday struct {
	GuildID uint64 `gorm:"primaryKey;autoIncrement:false"`
	UserID  uint64 `gorm:"primaryKey;autoIncrement:false"`
	Day     int    `gorm:"not null"`
	Month   int    `gorm:"not null"`
	Year    int
}

// Ticket tracks one support channel from open to close.
type Ticket struct {
	ID        uint64 `gorm:"primaryKey"`
	Reference string `gorm:"size:36;uniqueIndex;not null"`
	GuildID   uint64 `gorm:"index;not null"`
	ChannelID uint64 `gorm:"index;not null"`
	OpenerID  uint64 `gorm:"not null"`
	Topic     string `gorm:"size:64"`
	ClaimedBy uint64
	Closed    bool `gorm:"default:false"`
	CreatedAt time.Time
	ClosedAt  *time.Time
}
