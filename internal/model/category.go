package model

import "time"

type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:64;not null;uniqueIndex" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	PostsCount  int       `gorm:"->;-:migration" json:"posts_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
