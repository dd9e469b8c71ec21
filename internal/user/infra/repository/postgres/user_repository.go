package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cristianortiz/pigeonAuction/internal/user/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository implementa la interfaz domain.UserRepository para PostgreSQL.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository crea una nueva instancia de UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID obtiene un usuario por su ID desde la base de datos.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
        SELECT id, email, display_name, phone, active, phone_verified, is_admin
        FROM users
        WHERE id = $1
    `
	u := &domain.User{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Email,
		&u.DisplayName,
		&u.Phone,
		&u.Active,
		&u.PhoneVerified,
		&u.Admin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		// Otro error de base de datos
		return nil, fmt.Errorf("select user %s: %w", id, err)
	}
	return u, nil
}

var _ domain.UserRepository = (*UserRepository)(nil)
