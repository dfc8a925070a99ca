package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mansourkira/evoluflow/core/user"
)

const schema = `
CREATE TABLE IF NOT EXISTS app_user (
	id            BIGSERIAL PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL DEFAULT '',
	role          TEXT NOT NULL DEFAULT 'agent',
	site          TEXT NOT NULL DEFAULT '',
	password_hash BYTEA NOT NULL,
	last_login    TIMESTAMPTZ NOT NULL DEFAULT 'epoch'
)`

const columns = `id::text AS id, email, name, role, site, password_hash, last_login`

// uniqueViolation is the PostgreSQL code of a UNIQUE constraint failure.
const uniqueViolation = "23505"

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

// CreateSchema creates the user table if it does not exist.
func CreateSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return errors.Wrap(err, "creating user table")
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO app_user (email, name, role, site, password_hash)
		VALUES (:email, :name, :role, :site, :password_hash)
		RETURNING ` + columns
	rows, err := sqlx.NamedQueryContext(ctx, repo.db, q, usr)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	defer func() { _ = rows.Close() }()

	var created user.User
	if rows.Next() {
		if err = rows.StructScan(&created); err != nil {
			return user.User{}, errors.Wrap(err, "scanning user")
		}
	}
	return fromDB(created), errors.Wrap(rows.Err(), "inserting user")
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var users []user.User
	if err := repo.db.SelectContext(ctx, &users, `SELECT `+columns+` FROM app_user ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	for i := range users {
		users[i] = fromDB(users[i])
	}
	return users, nil
}

func (repo *userRepository) get(ctx context.Context, where string, arg interface{}) (user.User, error) {
	var usr user.User
	err := repo.db.GetContext(ctx, &usr, `SELECT `+columns+` FROM app_user WHERE `+where, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return fromDB(usr), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	pk, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return user.User{}, user.ErrNotFound
	}
	return repo.get(ctx, "id = $1", pk)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.get(ctx, "email = $1", email)
}

// UpdateUser only saves the set fields.
func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	pk, err := strconv.ParseInt(usr.ID, 10, 64)
	if err != nil {
		return user.User{}, user.ErrNotFound
	}
	q := `UPDATE app_user SET
			name = COALESCE(NULLIF($2, ''), name),
			role = COALESCE(NULLIF($3, ''), role),
			site = $4,
			password_hash = COALESCE($5::bytea, password_hash),
			last_login = CASE WHEN $6::timestamptz = 'epoch' THEN last_login ELSE $6 END
		WHERE id = $1
		RETURNING ` + columns
	lastLogin := usr.LastLogin
	if lastLogin.IsZero() {
		lastLogin = epoch
	}
	var hash interface{} // NULL keeps the stored hash
	if usr.PasswordHash != nil {
		hash = usr.PasswordHash
	}
	var updated user.User
	err = repo.db.QueryRowxContext(ctx, q, pk, usr.Name, usr.Role, usr.Site, hash, lastLogin).StructScan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return fromDB(updated), nil
}
