package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mansourkira/evoluflow/core"
)

// Roles
const (
	RoleAdmin = "admin"
	RoleAgent = "agent"
)

var AllRoles = []string{RoleAdmin, RoleAgent}

// User is the logged-in user as the console sees it, whatever the auth mode.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	Role         string    `json:"role" db:"role"`
	Site         string    `json:"site,omitempty" db:"site"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	LastLogin    time.Time `json:"-" db:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// RemoteUser is the user record of the backend. Normalize only renames its fields.
type RemoteUser struct {
	Reference       string `json:"Reference"`
	NomPrenom       string `json:"Nom_Prenom"`
	EMail           string `json:"E_mail"`
	TypeUtilisateur string `json:"Type_Utilisateur"`
	ReferenceSite   string `json:"Reference_Site"`
}

func (ru RemoteUser) Normalize() User {
	return User{
		ID:    ru.Reference,
		Name:  ru.NomPrenom,
		Email: ru.EMail,
		Role:  ru.TypeUtilisateur,
		Site:  ru.ReferenceSite,
	}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required,notblank"`
	Email           string `json:"email" validate:"required,email"`
	Role            string `json:"role" validate:"required,oneof=admin agent"`
	Site            string `json:"site"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
}

// Credentials is the login body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Credentials) Clean() error {
	c.Email = core.CleanString(c.Email, true /* lower */)
	if c.Email == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

// ChangePassword is the change-password body.
type ChangePassword struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`

	email string // of the user changing it, for the similarity check
}

type ResetUserPassword struct {
	UID      string `json:"uid" validate:"required"`
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`

	email string
}
