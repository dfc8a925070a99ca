package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/mansourkira/evoluflow/core/resource"
	"github.com/mansourkira/evoluflow/core/session"
	"github.com/mansourkira/evoluflow/core/user"
)

// authAnswer is the body of the /api/auth endpoints.
type authAnswer struct {
	Success bool      `json:"success"`
	User    user.User `json:"user"`
	Token   string    `json:"token"`
	Message string    `json:"message"`
}

func (cli *commandLine) login(ctx context.Context, email, pwd string) error {
	var ans authAnswer
	creds := user.Credentials{Email: email, Password: pwd}
	if err := cli.tr.JSONWithToken(ctx, http.MethodPost, "/auth/login", "", creds, &ans); err != nil {
		return errors.New(resource.Message(err, "échec de la connexion"))
	}

	sess, err := session.New(ans.Token, ans.User)
	if err != nil {
		return err
	}
	if err = cli.store.Save(sess); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Connecté en tant que %s (%s)\n", ans.User.Name, ans.User.Role)
	return nil
}

func (cli *commandLine) logout(ctx context.Context) error {
	sess, err := cli.store.Load()
	if err != nil {
		return err
	}
	if token := sess.Token(); token != "" {
		var ans authAnswer
		// the local session ends anyway
		_ = cli.tr.JSONWithToken(ctx, http.MethodPost, "/auth/logout", token, nil, &ans)
	}
	if err = cli.store.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "Déconnecté")
	return nil
}

func (cli *commandLine) me(ctx context.Context) error {
	sess, err := cli.session()
	if err != nil {
		return err
	}

	var ans authAnswer
	if err = cli.tr.JSONWithToken(ctx, http.MethodGet, "/auth/me", sess.Token(), nil, &ans); err != nil {
		var serr *resource.StatusError
		if errors.As(err, &serr) && serr.Code == http.StatusUnauthorized {
			// the server no longer knows this token
			if cerr := cli.store.Clear(); cerr != nil {
				return cerr
			}
		}
		return errors.New(resource.Message(err, "utilisateur inconnu"))
	}

	if err = sess.Set(sess.Token(), ans.User); err != nil {
		return err
	}
	if err = cli.store.Save(sess); err != nil {
		return err
	}
	usr := ans.User
	fmt.Fprintf(cli.out, "%s <%s>\nrôle : %s\n", usr.Name, usr.Email, usr.Role)
	if usr.Site != "" {
		fmt.Fprintf(cli.out, "site : %s\n", usr.Site)
	}
	return nil
}

func (cli *commandLine) changePassword(ctx context.Context, current, pwd string) error {
	sess, err := cli.session()
	if err != nil {
		return err
	}
	var ans authAnswer
	body := user.ChangePassword{CurrentPassword: current, NewPassword: pwd}
	if err = cli.tr.JSONWithToken(ctx, http.MethodPut, "/auth/change-password", sess.Token(), body, &ans); err != nil {
		return errors.New(resource.Message(err, "échec du changement de mot de passe"))
	}
	fmt.Fprintln(cli.out, ans.Message)
	return nil
}

func (cli *commandLine) requestPasswordReset(ctx context.Context, email string) error {
	var ans authAnswer
	body := map[string]string{"email": email}
	if err := cli.tr.JSONWithToken(ctx, http.MethodPost, "/auth/reset-password", "", body, &ans); err != nil {
		return errors.New(resource.Message(err, "échec de la demande"))
	}
	fmt.Fprintln(cli.out, ans.Message)
	return nil
}
