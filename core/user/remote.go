package user

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/mansourkira/evoluflow/core/resource"
)

// backend answers of the /auth calls
type (
	remoteLogin struct {
		User  RemoteUser `json:"user"`
		Token string     `json:"token"`
	}
	remoteMe struct {
		User RemoteUser `json:"user"`
	}
	remoteReset struct {
		Email string `json:"email"`
	}
)

// RemoteService forwards authentication to the backend's /auth endpoints.
// Backend failures are returned as *resource.StatusError, to be relayed as is.
type RemoteService struct {
	tr *resource.Transport
}

var _ Authenticator = (*RemoteService)(nil)

func NewRemoteService(tr *resource.Transport) *RemoteService {
	return &RemoteService{tr: tr}
}

func (svc *RemoteService) Login(ctx context.Context, creds Credentials) (User, string, error) {
	if err := creds.Clean(); err != nil {
		return User{}, "", err
	}
	var out remoteLogin
	if err := svc.tr.JSONWithToken(ctx, http.MethodPost, "/auth/login", "", creds, &out); err != nil {
		return User{}, "", err
	}
	if out.Token == "" {
		return User{}, "", errors.Wrap(resource.ErrMalformedBody, "login answer without token")
	}
	return out.User.Normalize(), out.Token, nil
}

func (svc *RemoteService) Logout(ctx context.Context, token string) error {
	return svc.tr.JSONWithToken(ctx, http.MethodPost, "/auth/logout", token, nil, nil)
}

func (svc *RemoteService) Me(ctx context.Context, token string) (User, error) {
	var out remoteMe
	if err := svc.tr.JSONWithToken(ctx, http.MethodGet, "/auth/me", token, nil, &out); err != nil {
		return User{}, err
	}
	return out.User.Normalize(), nil
}

func (svc *RemoteService) ChangePassword(ctx context.Context, token string, cp ChangePassword) error {
	return svc.tr.JSONWithToken(ctx, http.MethodPut, "/auth/change-password", token, cp, nil)
}

func (svc *RemoteService) RequestPasswordReset(ctx context.Context, email string) error {
	return svc.tr.JSONWithToken(ctx, http.MethodPost, "/auth/reset-password", "", remoteReset{Email: email}, nil)
}

func (svc *RemoteService) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	return svc.tr.JSONWithToken(ctx, http.MethodPost, "/auth/reset-password/confirm", "", rp, nil)
}
