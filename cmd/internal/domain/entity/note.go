package entity

type Note struct {
	ID        int64  `gorm:"primaryKey"`
	Title     string `gorm:"not null;index"`
	Content   string `gorm:"type:text;not null"`
	CreatedAt int64  `gorm:"not null;autoCreateTime:false"`
	UpdatedAt int64  `gorm:"not null;autoUpdateTime:false"`
	UserID    int64  `gorm:"not null;index"` // References: users(id)

	// Relations
	Tags []*Tag `gorm:"many2many:note_tag"`
}

// Tag is shared by every user: names are unique across the whole table,
// not per owner.
type Tag struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"not null;uniqueIndex"`
}

// NoteTag is the explicit join row between notes and tags.
type NoteTag struct {
	NoteID int64 `gorm:"primaryKey;autoIncrement:false"`
	TagID  int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (NoteTag) TableName() string {
	return "note_tag"
}
