package models

import "time"

type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Username   string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email      string    `gorm:"size:254" json:"email"`
	FirstName  string    `gorm:"size:150" json:"first_name"`
	LastName   string    `gorm:"size:150" json:"last_name"`
	Password   string    `gorm:"not null" json:"-"` // bcrypt hash
	IsStaff    bool      `gorm:"not null;default:false" json:"is_staff"`
	DateJoined time.Time `gorm:"autoCreateTime" json:"date_joined"`
}

// AuthToken is the opaque key handed out by the login endpoint.
type AuthToken struct {
	Key       string    `gorm:"size:64;primaryKey" json:"token"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"-"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"-"`
}
