package user

import (
	"context"

	"github.com/pkg/errors"
)

// SeedUser is a directory user with its clear password.
type SeedUser struct {
	User
	Password string
}

// DefaultUsers is the mock directory.
var DefaultUsers = []SeedUser{
	{User: User{Email: "admin@admission.com", Name: "Administrateur", Role: RoleAdmin}, Password: "admin123"},
	{User: User{Email: "agent@admission.com", Name: "Agent d'admission", Role: RoleAgent}, Password: "agent123"},
}

// Seed creates users with their hashed password in repo, skipping existing emails.
func Seed(ctx context.Context, repo Repository, users ...SeedUser) error {
	for _, su := range users {
		if _, err := repo.GetUserByEmail(ctx, su.Email); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		usr := su.User
		if err := usr.SetPassword(su.Password); err != nil {
			return errors.Wrapf(err, "hashing password of %s", su.Email)
		}
		if _, err := repo.CreateUser(ctx, usr); err != nil {
			return errors.Wrapf(err, "seeding %s", su.Email)
		}
	}
	return nil
}
