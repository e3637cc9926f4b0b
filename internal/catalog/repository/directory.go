package repository

import (
	"context"
	"errors"

	catalogerrors "libretto/internal/catalog/errors"
	"libretto/pkg/config"
)

// Directory answers existence checks for catalog records. It backs the
// bookings service's reference validation when both services share a
// database; deployments that split them use the HTTP catalog client
// instead.
type Directory struct {
	users UserRepository
	books BookRepository
}

func NewDirectory(cfg *config.Config) *Directory {
	return &Directory{
		users: NewMongoUserRepository(cfg),
		books: NewMongoBookRepository(cfg),
	}
}

// BookExists treats a malformed ID as a missing record rather than an error,
// so reference validation rejects it the same way as an unknown ID.
func (d *Directory) BookExists(ctx context.Context, id string) (bool, error) {
	exists, err := d.books.Exists(ctx, id)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrInvalidID) {
			return false, nil
		}
		return false, err
	}
	return exists, nil
}

func (d *Directory) UserExists(ctx context.Context, id string) (bool, error) {
	exists, err := d.users.Exists(ctx, id)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrInvalidID) {
			return false, nil
		}
		return false, err
	}
	return exists, nil
}
