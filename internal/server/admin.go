package server

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/credcore/internal/common"
	"github.com/dmitrijs2005/credcore/internal/logging"
	"github.com/dmitrijs2005/credcore/internal/server/auth"
	"github.com/dmitrijs2005/credcore/internal/server/config"
	"github.com/dmitrijs2005/credcore/internal/server/services"
)

// ErrAdminUsage reports a malformed admin command line.
var ErrAdminUsage = errors.New("usage: credcore-admin create-superuser -u NAME -e EMAIL [-phone E164] | delete-user -u NAME")

// NewAdminService opens the configured user store (running migrations) and
// returns the operator service with the store's closer.
func NewAdminService(ctx context.Context, c *config.Config, logger logging.Logger) (*services.AdminService, io.Closer, error) {
	if c.UserStore == config.UserStoreMemory {
		logger.Warn(ctx, "admin tool running against the in-memory user store; changes are discarded on exit")
	}

	repos, err := newRepositoryManager(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	return services.NewAdminService(repos, auth.NewArgon2Hasher(auth.DefaultArgon2Params), logger), repos, nil
}

// RunAdmin executes one admin subcommand. readPassword is called twice for
// create-superuser and both entries must match.
func RunAdmin(ctx context.Context, svc *services.AdminService, args []string, out io.Writer, readPassword func() ([]byte, error)) error {
	if len(args) == 0 {
		return ErrAdminUsage
	}

	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.SetOutput(out)
	username := fs.String("u", "", "username")

	switch args[0] {
	case "create-superuser":
		email := fs.String("e", "", "email")
		phone := fs.String("phone", "", "phone number (E.164)")
		if err := fs.Parse(args[1:]); err != nil || *username == "" || *email == "" {
			return ErrAdminUsage
		}

		password, err := confirmPassword(out, readPassword)
		if err != nil {
			return err
		}
		defer common.WipeByteArray(password)

		u, err := svc.CreateSuperUser(ctx, services.RegisterInput{
			Username: *username,
			Email:    *email,
			Phone:    *phone,
			Password: string(password),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "superuser %s created (id %s)\n", u.Username, u.ID)
		return nil

	case "delete-user":
		if err := fs.Parse(args[1:]); err != nil || *username == "" {
			return ErrAdminUsage
		}
		if err := svc.DeleteUser(ctx, *username); err != nil {
			return err
		}
		fmt.Fprintf(out, "user %s deleted\n", *username)
		return nil

	default:
		return ErrAdminUsage
	}
}

func confirmPassword(out io.Writer, readPassword func() ([]byte, error)) ([]byte, error) {
	fmt.Fprint(out, "Password: ")
	first, err := readPassword()
	fmt.Fprintln(out)
	if err != nil {
		return nil, err
	}

	fmt.Fprint(out, "Repeat password: ")
	second, err := readPassword()
	fmt.Fprintln(out)
	if err != nil {
		common.WipeByteArray(first)
		return nil, err
	}
	defer common.WipeByteArray(second)

	if string(first) != string(second) {
		common.WipeByteArray(first)
		return nil, fmt.Errorf("%w: passwords do not match", common.ErrInvalidInput)
	}
	return first, nil
}
