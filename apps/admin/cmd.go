package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/mansourkira/evoluflow/core"
	"github.com/mansourkira/evoluflow/core/dialog"
	"github.com/mansourkira/evoluflow/core/resource"
	"github.com/mansourkira/evoluflow/core/session"
	"github.com/mansourkira/evoluflow/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp           = errors.New("help provided")
	errNotLoggedIn    = errors.New("non connecté : lancez `admin login -email EMAIL`")
	errSessionExpired = errors.New("session expirée : reconnectez-vous")
)

type commandLine struct {
	conf   *core.Config
	store  session.Store
	tr     *resource.Transport // to the proxy API, the session is its token source
	schema dialog.Schema
	out    io.Writer
	now    func() time.Time

	// openRepo opens the local user directory of the mock auth mode.
	openRepo func(ctx context.Context) (user.Repository, func(), error)
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -email EMAIL                  - open a session (the password is prompted)")
	fmt.Fprintln(cli.out, "  logout                              - close the session")
	fmt.Fprintln(cli.out, "  me                                  - show the logged-in user")
	fmt.Fprintln(cli.out, "  passwd                              - change your password")
	fmt.Fprintln(cli.out, "  resetpassword -email EMAIL          - mail a password reset link")
	fmt.Fprintln(cli.out, "  resources                           - list the managed resources")
	fmt.Fprintln(cli.out, "  list RESOURCE                       - list the records of RESOURCE")
	fmt.Fprintln(cli.out, "  get RESOURCE REF                    - show one record")
	fmt.Fprintln(cli.out, "  add RESOURCE key=value...           - create a record, its Reference is proposed")
	fmt.Fprintln(cli.out, "  update RESOURCE REF key=value...    - edit a record")
	fmt.Fprintln(cli.out, "  delete RESOURCE REF                 - delete a record")
	fmt.Fprintln(cli.out, "  migrate                             - create the user directory tables")
	fmt.Fprintln(cli.out, "  adduser -email EMAIL -name NAME -role admin|agent - add a user to the directory")
	fmt.Fprintln(cli.out, "  setpassword -email EMAIL            - set a directory user's password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginEmail := loginCmd.String("email", "", "The user's email. The password will be prompted next.")
	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The email of the account to reset.")
	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserRole := addUserCmd.String("role", user.RoleAgent, "admin or agent.")
	addUserSite := addUserCmd.String("site", "", "The Reference of the user's site.")
	setPasswordCmd := flag.NewFlagSet("setpassword", flag.ContinueOnError)
	setPasswordEmail := setPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")
	for _, fs := range []*flag.FlagSet{loginCmd, resetPasswordCmd, addUserCmd, setPasswordCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *loginEmail == "" {
			loginCmd.Usage()
			return errHelp
		}
		pwd, err := cli.prompt("Mot de passe : ")
		if err != nil {
			return err
		}
		return cli.login(ctx, *loginEmail, pwd)
	case "logout":
		return cli.logout(ctx)
	case "me":
		return cli.me(ctx)
	case "passwd":
		current, err := cli.prompt("Mot de passe actuel : ")
		if err != nil {
			return err
		}
		pwd, err := cli.prompt("Nouveau mot de passe : ")
		if err != nil {
			return err
		}
		return cli.changePassword(ctx, current, pwd)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.requestPasswordReset(ctx, *resetPasswordEmail)
	case "resources":
		return cli.resources()
	case "list", "get", "add", "update", "delete":
		return cli.resourceCommand(ctx, args[1], args[2:])
	case "migrate":
		return cli.migrate(ctx)
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserEmail == "" || *addUserName == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.prompt("Mot de passe : ")
		if err != nil {
			return err
		}
		return cli.addUser(ctx, user.NewUser{
			Name:            *addUserName,
			Email:           *addUserEmail,
			Role:            *addUserRole,
			Site:            *addUserSite,
			Password:        pwd,
			PasswordConfirm: pwd,
		})
	case "setpassword":
		if err := setPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *setPasswordEmail == "" {
			setPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.prompt("Nouveau mot de passe : ")
		if err != nil {
			return err
		}
		return cli.setPassword(ctx, *setPasswordEmail, pwd)
	default:
		cli.printUsage()
		return errHelp
	}
}

// prompt reads a password without echo; an empty answer is a usage error.
func (cli *commandLine) prompt(label string) (string, error) {
	fmt.Fprint(cli.out, label)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	if len(pwd) == 0 {
		return "", errHelp
	}
	return string(pwd), nil
}

// session loads the stored session for a protected command and hands its token to the transport.
func (cli *commandLine) session() (*session.Session, error) {
	sess, err := cli.store.Load()
	if err != nil {
		return nil, err
	}
	if sess.Token() == "" {
		return nil, errNotLoggedIn
	}
	if sess.Expired(cli.now()) {
		if err = cli.store.Clear(); err != nil {
			return nil, err
		}
		return nil, errSessionExpired
	}
	cli.tr.Tokens = sess
	return sess, nil
}
