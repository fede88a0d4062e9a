package model

import "time"

type LikeType string

const (
	LikeTypeLike    LikeType = "LIKE"
	LikeTypeDislike LikeType = "DISLIKE"
)

// Delta is the signed rating change the like contributes while it exists.
func (t LikeType) Delta() int {
	if t == LikeTypeDislike {
		return -1
	}
	return 1
}

func (t LikeType) Valid() bool {
	return t == LikeTypeLike || t == LikeTypeDislike
}

// Like targets exactly one of PostID or CommentID.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AuthorID  uint      `gorm:"not null;uniqueIndex:idx_like_author_post;uniqueIndex:idx_like_author_comment" json:"author_id"`
	Author    *User     `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	PostID    *uint     `gorm:"uniqueIndex:idx_like_author_post" json:"post_id,omitempty"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	CommentID *uint     `gorm:"uniqueIndex:idx_like_author_comment" json:"comment_id,omitempty"`
	Comment   *Comment  `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"-"`
	Type      LikeType  `gorm:"size:16;not null" json:"type"`
	CreatedAt time.Time `json:"created_at"`
}
