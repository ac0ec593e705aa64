package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/credcore/internal/client/client"
	"github.com/dmitrijs2005/credcore/internal/client/session"
	"github.com/dmitrijs2005/credcore/internal/common"
)

// Register creates an account. Without -otp the password is prompted for;
// with it the server is expected to send a verification code instead.
func (a *App) Register(ctx context.Context, args []string) error {
	fs := a.flagSet("register")
	username := fs.String("u", "", "username")
	email := fs.String("e", "", "email")
	phone := fs.String("phone", "", "phone number in E.164 form, for SMS codes")
	otpOnly := fs.Bool("otp", false, "register without a password")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	if err := a.prompt.fill(username, "Username"); err != nil {
		return err
	}
	if err := a.prompt.fill(email, "Email"); err != nil {
		return err
	}

	var password []byte
	if !*otpOnly {
		var err error
		if password, err = a.prompt.Secret("Password"); err != nil {
			return err
		}
		defer common.WipeByteArray(password)
	}

	reg, err := a.client.Register(ctx, *username, *email, *phone, string(password))
	if err != nil {
		return err
	}

	if reg.Tokens == nil {
		fmt.Fprintln(a.out, reg.Message)
		fmt.Fprintf(a.out, "Then run: login-otp -e %s\n", *email)
		return nil
	}

	if err := a.remember(ctx, reg.Username, reg.Tokens); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered and logged in as %s\n", reg.Username)
	return nil
}

func (a *App) Login(ctx context.Context, args []string) error {
	fs := a.flagSet("login")
	username := fs.String("u", "", "username")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	if err := a.prompt.fill(username, "Username"); err != nil {
		return err
	}
	password, err := a.prompt.Secret("Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	tokens, err := a.client.LoginPassword(ctx, *username, string(password))
	if err != nil {
		return err
	}
	return a.loggedIn(ctx, *username, tokens)
}

func (a *App) RequestOTP(ctx context.Context, args []string) error {
	fs := a.flagSet("request-otp")
	email := fs.String("e", "", "email")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if err := a.prompt.fill(email, "Email"); err != nil {
		return err
	}

	msg, err := a.client.RequestOTP(ctx, *email)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, msg)
	return nil
}

func (a *App) LoginOTP(ctx context.Context, args []string) error {
	fs := a.flagSet("login-otp")
	email := fs.String("e", "", "email")
	code := fs.String("code", "", "one-time code")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if err := a.prompt.fill(email, "Email"); err != nil {
		return err
	}
	if err := a.prompt.fill(code, "Code"); err != nil {
		return err
	}

	tokens, err := a.client.LoginOTP(ctx, *email, *code)
	if err != nil {
		return err
	}
	return a.loggedIn(ctx, *email, tokens)
}

// loggedIn stores the new session under the server's idea of the username,
// falling back to what the user typed.
func (a *App) loggedIn(ctx context.Context, fallback string, tokens *client.Tokens) error {
	name := fallback
	if id, err := a.client.WhoAmI(ctx); err == nil {
		name = id.Username
	}

	if err := a.remember(ctx, name, tokens); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s (access token valid for %s)\n", name, tokens.ExpiresIn)
	return nil
}

func (a *App) remember(ctx context.Context, username string, t *client.Tokens) error {
	return a.store.Save(ctx, session.Session{
		Username:     username,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
	})
}

// Logout revokes the refresh token server-side. The local session is
// dropped even when the server already considers it revoked.
func (a *App) Logout(ctx context.Context, args []string) error {
	if err := a.parse(a.flagSet("logout"), args); err != nil {
		return err
	}
	if _, err := a.resume(ctx); err != nil {
		return err
	}

	err := a.client.Logout(ctx)
	if err != nil && !errors.Is(err, client.ErrUnauthorized) {
		return err
	}
	if err := a.store.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
