package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrUserNotFound = errors.New("user not found")

// User is the identity the auction boundary needs, profiles are managed elsewhere
type User struct {
	ID            uuid.UUID
	Email         string
	DisplayName   string
	Phone         string
	Active        bool
	PhoneVerified bool
	Admin         bool
}

// CanBid only active users with a verified phone may place bids
func (u *User) CanBid() bool {
	return u.Active && u.PhoneVerified
}

//go:generate mockgen -source=user.go -destination=mock/repository.go -package=mock UserRepository

// UserRepository is the read side used by the http boundary and the notifier
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}
