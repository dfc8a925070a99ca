package user_test

import (
	"context"
	"io"
	"log"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mansourkira/evoluflow/core"
	"github.com/mansourkira/evoluflow/core/user"
	emailsvc "github.com/mansourkira/evoluflow/services/email"
	logsvc "github.com/mansourkira/evoluflow/services/logger"
	inmemdb "github.com/mansourkira/evoluflow/storage/database/inmem"
)

func newService(t *testing.T) (*user.Service, *emailsvc.ConsoleService) {
	t.Helper()
	conf := &core.Config{AppName: "Evoluflow", SecretKey: "secret", TestMode: true}
	conf.Server.FrontendBaseURL = "http://localhost:3001"
	conf.Auth.PasswordResetTimeout = 24 * time.Hour

	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	repo := inmemdb.NewUserRepository(inmemdb.NewDB())
	require.NoError(t, user.Seed(context.Background(), repo, user.DefaultUsers...))
	return user.NewServiceMock(repo, mailSvc, conf, logger), mailSvc
}

func TestLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		creds   user.Credentials
		wantErr error
	}{
		{name: "missing email", creds: user.Credentials{Password: "admin123"}, wantErr: user.ErrMissingCredentials},
		{name: "missing password", creds: user.Credentials{Email: "admin@admission.com"}, wantErr: user.ErrMissingCredentials},
		{name: "unknown user", creds: user.Credentials{Email: "x@admission.com", Password: "x"}, wantErr: user.ErrNotFound},
		{name: "wrong password", creds: user.Credentials{Email: "admin@admission.com", Password: "nope"}, wantErr: user.ErrInvalidPassword},
		{name: "admin", creds: user.Credentials{Email: " Admin@Admission.com ", Password: "admin123"}},
		{name: "agent", creds: user.Credentials{Email: "agent@admission.com", Password: "agent123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, token, err := svc.Login(ctx, tt.creds)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(token, "mock-jwt-token-"+usr.ID+"-"), token)

			me, err := svc.Me(ctx, token)
			require.NoError(t, err)
			assert.Equal(t, usr.Email, me.Email)
			assert.Equal(t, usr.Role, me.Role)
		})
	}
}

func TestMe(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for _, token := range []string{"", "garbage", "mock-jwt-token-999-1700000000000"} {
		_, err := svc.Me(ctx, token)
		assert.Equal(t, user.ErrInvalidToken, err, token)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, token, err := svc.Login(ctx, user.Credentials{Email: "agent@admission.com", Password: "agent123"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		cp        user.ChangePassword
		wantField string
	}{
		{name: "required", cp: user.ChangePassword{}, wantField: "currentPassword"},
		{name: "too short", cp: user.ChangePassword{CurrentPassword: "agent123", NewPassword: "abc"}, wantField: "newPassword"},
		{name: "with space", cp: user.ChangePassword{CurrentPassword: "agent123", NewPassword: "abc defg"}, wantField: "newPassword"},
		{name: "like the email", cp: user.ChangePassword{CurrentPassword: "agent123", NewPassword: "agent@admission"}, wantField: "newPassword"},
		{name: "wrong current", cp: user.ChangePassword{CurrentPassword: "nope", NewPassword: "S3cure!pass"}, wantField: "currentPassword"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ChangePassword(ctx, token, tt.cp)
			require.Error(t, err)
			msgs, ok := core.FieldMessages(err, svc.Translator())
			require.True(t, ok, "got %v", err)
			assert.Contains(t, msgs, tt.wantField)
		})
	}

	require.NoError(t, svc.ChangePassword(ctx, token, user.ChangePassword{CurrentPassword: "agent123", NewPassword: "S3cure!pass"}))
	_, _, err = svc.Login(ctx, user.Credentials{Email: "agent@admission.com", Password: "agent123"})
	assert.Equal(t, user.ErrInvalidPassword, err)
	_, _, err = svc.Login(ctx, user.Credentials{Email: "agent@admission.com", Password: "S3cure!pass"})
	assert.NoError(t, err)
}

func TestPasswordReset(t *testing.T) {
	svc, mailSvc := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.RequestPasswordReset(ctx, "unknown@admission.com"))
	assert.Empty(t, mailSvc.SentMessages())

	require.NoError(t, svc.RequestPasswordReset(ctx, "admin@admission.com"))
	sent := mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "admin@admission.com", sent[0].To[0].Address)

	data := sent[0].TemplateData.(map[string]string)
	link, err := url.Parse(data["Link"])
	require.NoError(t, err)
	assert.Equal(t, "/reset-password", link.Path)
	uid, token := link.Query().Get("uid"), link.Query().Get("token")

	err = svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: "bad-token", Password: "N3wpass!"})
	assert.Equal(t, user.ErrInvalidToken, err)

	require.NoError(t, svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: "N3wpass!"}))
	_, _, err = svc.Login(ctx, user.Credentials{Email: "admin@admission.com", Password: "N3wpass!"})
	require.NoError(t, err)

	// used tokens are invalidated by the password change
	err = svc.ResetPassword(ctx, user.ResetUserPassword{UID: uid, Token: token, Password: "An0ther!pass"})
	assert.Equal(t, user.ErrInvalidToken, err)
}

func TestCreate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, user.NewUser{Name: "Dup", Email: "admin@admission.com", Role: "agent", Password: "S3cure!pass", PasswordConfirm: "S3cure!pass"})
	msgs, ok := core.FieldMessages(err, svc.Translator())
	require.True(t, ok, "got %v", err)
	assert.Contains(t, msgs, "email")

	usr, err := svc.Create(ctx, user.NewUser{Name: "New", Email: "New@Admission.com", Role: "agent", Password: "S3cure!pass", PasswordConfirm: "S3cure!pass"})
	require.NoError(t, err)
	assert.Equal(t, "new@admission.com", usr.Email)

	users, err := svc.QueryAll(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 3)
}
