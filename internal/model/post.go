package model

import "time"

type PostStatus string

const (
	PostActive   PostStatus = "ACTIVE"
	PostInactive PostStatus = "INACTIVE"
)

type Post struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	AuthorID   uint       `gorm:"not null;index" json:"author_id"`
	Author     *User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Title      string     `gorm:"size:255;not null" json:"title"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	Status     PostStatus `gorm:"size:16;not null;default:ACTIVE;index" json:"status"`
	Rating     int        `gorm:"not null;default:0" json:"rating"`
	Categories []Category `gorm:"many2many:post_categories;constraint:OnDelete:CASCADE" json:"categories"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Bookmark is the join row between a user and a saved post.
type Bookmark struct {
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	PostID    uint      `gorm:"primaryKey" json:"post_id"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
