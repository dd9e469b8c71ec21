package application

import (
	"context"
	"fmt"

	notification "github.com/cristianortiz/pigeonAuction/internal/notification/domain"
	"github.com/cristianortiz/pigeonAuction/internal/user/domain"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
)

// recipientCacheSize bounds the resolved recipients kept between dispatch ticks
const recipientCacheSize = 1024

// RecipientResolver adapts the user repository to the notification module.
// Resolved recipients are kept in a small LRU, a seller with several finished
// auctions is looked up once per process.
type RecipientResolver struct {
	users domain.UserRepository
	cache *lru.Cache
}

func NewRecipientResolver(users domain.UserRepository) *RecipientResolver {
	cache, _ := lru.New(recipientCacheSize)
	return &RecipientResolver{users: users, cache: cache}
}

func (r *RecipientResolver) Resolve(ctx context.Context, userID uuid.UUID) (*notification.Recipient, error) {
	if v, ok := r.cache.Get(userID); ok {
		rcp := *v.(*notification.Recipient)
		return &rcp, nil
	}
	u, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve recipient %s: %w", userID, err)
	}
	rcp := &notification.Recipient{
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
	}
	r.cache.Add(userID, rcp)
	out := *rcp
	return &out, nil
}

var _ notification.RecipientResolver = (*RecipientResolver)(nil)
