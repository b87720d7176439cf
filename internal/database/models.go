package database

import (
	"time"

	"github.com/mfyhq/collabchat/internal/types"
)

type User struct {
	Id           int64
	Nickname     string
	Email        string
	FullName     string
	Avatar       string
	Role         types.Role
	PasswordHash string
	LastOnline   time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// User converts the stored record to its wire representation, dropping the
// password hash.
func (u User) User() types.User {
	return types.User{
		Id:         u.Id,
		Nickname:   u.Nickname,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		Role:       u.Role,
		LastOnline: u.LastOnline,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

type CreateUserParams struct {
	Nickname     string
	Email        string
	FullName     string
	PasswordHash string
}

type CreateProjectParams struct {
	Name        string
	Description string
	ExternalId  string
	OwnerId     int64
}
