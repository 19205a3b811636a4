package entity

// User is an account identified by its telegram handle.
// HashedPassword never leaves the service layer.
type User struct {
	ID             int64  `gorm:"primaryKey"`
	TelegramID     string `gorm:"not null;uniqueIndex"`
	HashedPassword string `gorm:"not null"`

	// Relations
	Notes []*Note `gorm:"foreignKey:UserID;references:ID"`
}
