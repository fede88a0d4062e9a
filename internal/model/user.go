package model

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Login     string    `gorm:"size:20;not null;uniqueIndex" json:"login"`
	Email     string    `gorm:"size:128;not null;uniqueIndex" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	FullName  string    `gorm:"size:128" json:"fullname"`
	Avatar    string    `gorm:"size:255" json:"avatar"`
	Rating    int       `gorm:"not null;default:0" json:"rating"`
	Role      Role      `gorm:"size:16;not null;default:USER" json:"role"`
	Verified  bool      `gorm:"not null;default:false" json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
