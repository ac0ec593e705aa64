package cli

import (
	"context"
	"fmt"
	"strings"
)

func (a *App) Refresh(ctx context.Context, args []string) error {
	if err := a.parse(a.flagSet("refresh"), args); err != nil {
		return err
	}
	if _, err := a.resume(ctx); err != nil {
		return err
	}

	tokens, err := a.client.Refresh(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Tokens rotated (access token valid for %s)\n", tokens.ExpiresIn)
	return nil
}

func (a *App) WhoAmI(ctx context.Context, args []string) error {
	if err := a.parse(a.flagSet("whoami"), args); err != nil {
		return err
	}
	if _, err := a.resume(ctx); err != nil {
		return err
	}

	id, err := a.client.WhoAmI(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "id:       %s\n", id.UserID)
	fmt.Fprintf(a.out, "username: %s\n", id.Username)
	fmt.Fprintf(a.out, "email:    %s (verified: %t)\n", id.Email, id.EmailVerified)
	if id.Phone != "" {
		fmt.Fprintf(a.out, "phone:    %s\n", id.Phone)
	}
	fmt.Fprintf(a.out, "roles:    %s\n", strings.Join(id.Roles, ", "))
	return nil
}

// Token prints the stored access token alone, for use in scripts.
func (a *App) Token(ctx context.Context, args []string) error {
	if err := a.parse(a.flagSet("token"), args); err != nil {
		return err
	}
	sess, err := a.resume(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, sess.AccessToken)
	return nil
}

func (a *App) AdminPing(ctx context.Context, args []string) error {
	if err := a.parse(a.flagSet("admin-ping"), args); err != nil {
		return err
	}
	if _, err := a.resume(ctx); err != nil {
		return err
	}

	status, err := a.client.SuperUserPing(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, status)
	return nil
}
