package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/mansourkira/evoluflow/core/user"
	"github.com/mansourkira/evoluflow/storage/database"
	sqlxrepos "github.com/mansourkira/evoluflow/storage/database/sqlx"
)

var errNoDirectory = errors.New("annuaire local indisponible : configurez auth.storage=postgres")

// migrate creates the user directory table and seeds the default users.
func (cli *commandLine) migrate(ctx context.Context) error {
	if cli.conf.Auth.Storage != "postgres" {
		return errNoDirectory
	}
	db, err := database.Open(ctx, cli.conf)
	if err != nil {
		return err
	}
	defer db.Close()

	if err = sqlxrepos.CreateSchema(ctx, db); err != nil {
		return err
	}
	if err = user.Seed(ctx, sqlxrepos.NewUserRepository(db), user.DefaultUsers...); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Annuaire prêt")
	return nil
}

// openPostgresDirectory is the openRepo of the real console.
func (cli *commandLine) openPostgresDirectory(ctx context.Context) (user.Repository, func(), error) {
	if cli.conf.Auth.Storage != "postgres" {
		return nil, nil, errNoDirectory
	}
	db, err := database.Open(ctx, cli.conf)
	if err != nil {
		return nil, nil, err
	}
	return sqlxrepos.NewUserRepository(db), func() { _ = db.Close() }, nil
}
