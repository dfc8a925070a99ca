package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/mansourkira/evoluflow/core"
	"github.com/mansourkira/evoluflow/core/user"
)

// addUser creates a user of the local directory, or updates it when the email exists.
func (cli *commandLine) addUser(ctx context.Context, nu user.NewUser) error {
	nu.Clean()
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	if err := validate.Struct(nu); err != nil {
		if msgs, ok := core.FieldMessages(err, translator); ok {
			for fld, msg := range msgs {
				fmt.Fprintf(cli.out, "  %s : %s\n", fld, msg)
			}
		}
		return errors.New(msgInvalidData)
	}

	repo, closeRepo, err := cli.openRepo(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	usr, err := repo.GetUserByEmail(ctx, nu.Email)
	exists := err == nil
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		return err
	}
	usr.Email = nu.Email
	usr.Name = nu.Name
	usr.Role = nu.Role
	usr.Site = nu.Site
	if err = usr.SetPassword(nu.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}

	if exists {
		_, err = repo.UpdateUser(ctx, usr)
	} else {
		_, err = repo.CreateUser(ctx, usr)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Utilisateur %s enregistré\n", nu.Email)
	return nil
}

// setPassword replaces a directory user's password, skipping the reset mail flow.
func (cli *commandLine) setPassword(ctx context.Context, email, pwd string) error {
	repo, closeRepo, err := cli.openRepo(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()

	usr, err := repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	if _, err = repo.UpdateUser(ctx, usr); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Mot de passe de %s modifié\n", usr.Email)
	return nil
}
