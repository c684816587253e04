package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

const (
	DefaultWelcomeMessage = "Welcome to my profile!"
	DefaultAvatar         = "https://t3.ftcdn.net/jpg/05/16/27/58/360_F_516275801_f3Fsp17x6HQK0xQgDQEELoTuERO4SsWV.jpg"
)

type User struct {
	ID            uint                        `gorm:"primaryKey" json:"id"`
	Username      string                      `gorm:"size:20;uniqueIndex;not null" json:"username"`
	Email         string                      `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password      string                      `gorm:"size:255;not null" json:"-"`
	Roles         datatypes.JSONSlice[string] `json:"roles"`
	RefreshToken  *string                     `gorm:"size:1024;index" json:"-"`
	ResetPassword ResetPassword               `gorm:"embedded;embeddedPrefix:reset_" json:"-"`
	Bio           Bio                         `gorm:"embedded;embeddedPrefix:bio_" json:"bio"`
	CreatedAt     time.Time                   `json:"createdAt"`
	UpdatedAt     time.Time                   `json:"updatedAt"`
}

type Bio struct {
	WelcomeMessage string `gorm:"size:500" json:"welcomeMessage"`
	Avatar         string `gorm:"size:500" json:"avatar"`
}

func DefaultBio() Bio {
	return Bio{WelcomeMessage: DefaultWelcomeMessage, Avatar: DefaultAvatar}
}

func (u *User) HasRole(roles ...string) bool {
	for _, have := range u.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

// Owner is the public slice of a user embedded in warranty listings.
type Owner struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
