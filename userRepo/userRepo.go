package userRepo

import (
	"context"

	"github.com/khagerman/Nostalgia-Machine-backend/models"
)

// CredentialStore owns user records. Password hashes never leave it.
type CredentialStore interface {
	Register(ctx context.Context, username, password string) (models.User, error)
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	Get(ctx context.Context, username string) (models.User, error)
	Remove(ctx context.Context, username string) error
}
