// Package users is the credential store: lookup and creation of principals.
package users

import (
	"context"

	"github.com/paralympics/authapi/internal/server/models"
)

// Repository persists principals. Lookups of a missing row return
// common.ErrorNotFound; inserting a taken email returns common.ErrAlreadyExists.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
