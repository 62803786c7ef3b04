package models

import "time"

// Post is a blog entry. AuthorName and AuthorAvatar are copied from the
// author at creation time and are not kept in sync afterwards.
type Post struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	Image        string    `gorm:"type:text" json:"image"`
	AuthorID     uint      `gorm:"index;not null" json:"author_id"`
	AuthorName   string    `gorm:"size:255;not null" json:"author_name"`
	AuthorAvatar string    `gorm:"size:512;not null" json:"author_avatar"`
	CreatedAt    time.Time `json:"created_at"`
	IsUpdated    bool      `gorm:"not null;default:false" json:"is_updated"`
}
