package user

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/mansourkira/evoluflow/core"
)

const mockTokenPrefix = "mock-jwt-token-"

var (
	// errors
	ErrNotFound           = errors.New("Utilisateur non trouvé")
	ErrInvalidPassword    = errors.New("Mot de passe incorrect")
	ErrMissingCredentials = errors.New("Email et mot de passe requis")
	ErrInvalidToken       = errors.New("Token invalide")
	ErrEmailExists        = errors.New("un utilisateur avec cet email existe déjà")
)

type (
	// Authenticator is implemented by the mock Service and by RemoteService.
	Authenticator interface {
		Login(ctx context.Context, creds Credentials) (User, string, error)
		Logout(ctx context.Context, token string) error
		Me(ctx context.Context, token string) (User, error)
		ChangePassword(ctx context.Context, token string, cp ChangePassword) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
	}

	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
	}

	// Service authenticates against a local user directory and issues mock tokens.
	Service struct {
		repo       Repository
		mailSvc    core.EmailService
		conf       *core.Config
		log        core.Logger
		validate   *validator.Validate
		translator ut.Translator
		tokens     tokenGenerator

		sendMail func(usr User) // async unless mocked
	}
)

var _ Authenticator = (*Service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config, log core.Logger) *Service {
	validate, translator := core.NewValidator()
	InitValidators(validate, translator)
	svc := &Service{
		repo:       repo,
		mailSvc:    mailSvc,
		conf:       conf,
		log:        log,
		validate:   validate,
		translator: translator,
		tokens:     newTokenGenerator(conf.SecretKey, conf.Auth.PasswordResetTimeout),
	}
	svc.sendMail = func(usr User) { go svc.sendPasswordResetMail(usr) }
	return svc
}

// MockToken builds the opaque token handed out in mock mode.
func MockToken(id string, t time.Time) string {
	return mockTokenPrefix + id + "-" + strconv.FormatInt(t.UnixMilli(), 10)
}

// parseMockToken returns the user id of a mock token.
func parseMockToken(token string) (string, error) {
	rest := strings.TrimPrefix(token, mockTokenPrefix)
	if rest == token {
		return "", ErrInvalidToken
	}
	idx := strings.LastIndex(rest, "-")
	if idx <= 0 {
		return "", ErrInvalidToken
	}
	if _, err := strconv.ParseInt(rest[idx+1:], 10, 64); err != nil {
		return "", ErrInvalidToken
	}
	return rest[:idx], nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	nu.Clean()
	if err := svc.validate.Struct(nu); err != nil {
		return User{}, err
	}
	if _, err := svc.repo.GetUserByEmail(ctx, nu.Email); err == nil {
		return User{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	usr := User{Name: nu.Name, Email: nu.Email, Role: nu.Role, Site: nu.Site}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Login(ctx context.Context, creds Credentials) (User, string, error) {
	if err := creds.Clean(); err != nil {
		return User{}, "", err
	}
	usr, err := svc.repo.GetUserByEmail(ctx, creds.Email)
	if err != nil {
		return User{}, "", err
	}
	if err = usr.CheckPassword(creds.Password); err != nil {
		return User{}, "", ErrInvalidPassword
	}

	now := time.Now().UTC()
	usr.LastLogin = now
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, "", errors.Wrap(err, "updating last login")
	}
	return usr, MockToken(usr.ID, now), nil
}

// Logout is a no-op: mock tokens are not tracked.
func (svc *Service) Logout(context.Context, string) error { return nil }

func (svc *Service) Me(ctx context.Context, token string) (User, error) {
	id, err := parseMockToken(token)
	if err != nil {
		return User{}, err
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidToken
	}
	return usr, err
}

func (svc *Service) ChangePassword(ctx context.Context, token string, cp ChangePassword) error {
	usr, err := svc.Me(ctx, token)
	if err != nil {
		return err
	}
	cp.email = usr.Email
	if err = svc.validate.Struct(cp); err != nil {
		return err
	}
	if err = usr.CheckPassword(cp.CurrentPassword); err != nil {
		return core.NewValidationError(ErrInvalidPassword, core.FieldError{Field: "currentPassword", Error: ErrInvalidPassword.Error()})
	}
	if err = usr.SetPassword(cp.NewPassword); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

// RequestPasswordReset mails a reset link to email. Unknown emails are ignored.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	svc.sendMail(usr)
	return nil
}

func (svc *Service) sendPasswordResetMail(usr User) {
	token, err := svc.tokens.makeToken(usr)
	if err != nil {
		svc.log.Error(fmt.Sprintf("making password reset token: %v", err), err, usr)
		return
	}
	link := fmt.Sprintf("%s/reset-password?uid=%s&token=%s",
		strings.TrimRight(svc.conf.Server.FrontendBaseURL, "/"),
		url.QueryEscape(EncodeUID(usr)), url.QueryEscape(token))

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Réinitialisation de votre mot de passe",
		TemplateName: "password_reset",
		TemplateData: map[string]string{"Email": usr.Email, "Link": link},
	})
}

func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	if err := svc.validate.Struct(rp); err != nil {
		return err
	}
	id, err := decodeUID(rp.UID)
	if err != nil {
		return ErrInvalidToken
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if err = svc.tokens.verifyToken(usr, rp.Token); err != nil {
		return ErrInvalidToken
	}

	rp.email = usr.Email
	if err = svc.validate.Struct(rp); err != nil {
		return err
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

// Translator is the French translator of the service's validation messages.
func (svc *Service) Translator() ut.Translator { return svc.translator }
