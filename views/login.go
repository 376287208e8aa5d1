package views

import (
	"context"
	"errors"
	"strings"

	"libripal/helpers"
	"libripal/library"

	"github.com/common-nighthawk/go-figure"
)

// ErrLoginAborted is returned when the user leaves the login page without
// signing in.
var ErrLoginAborted = errors.New("login aborted")

// errQuit means input ended while a form was being filled in.
var errQuit = errors.New("quit")

// LoginPage signs the user in or registers a new account. On success the
// session is stored under SessionName and returned.
func LoginPage(ctx context.Context, env *Env) (*library.Session, error) {
	env.Term.Println(titleStyle.Render(strings.Trim(figure.NewFigure("LibriPal", "", true).String(), "\n")))
	for {
		env.Term.Println()
		env.Term.Println(titleStyle.Render("📚 Welcome to LibriPal"))
		env.Term.Println("Your AI-powered library assistant")
		env.Term.Println("  1. Sign in")
		env.Term.Println("  2. Create account")
		env.Term.Println("  q. Quit")

		choice, err := env.Term.Prompt("> ")
		if err != nil {
			return nil, ErrLoginAborted
		}
		switch strings.ToLower(choice) {
		case "1", "login", "sign in":
			sess, err := SignIn(ctx, env)
			if errors.Is(err, errQuit) {
				return nil, ErrLoginAborted
			}
			if err != nil {
				env.Term.Error(helpers.ErrorMessage(err))
				continue
			}
			return sess, nil
		case "2", "register":
			if err := RegisterForm(ctx, env); err != nil {
				if errors.Is(err, errQuit) {
					return nil, ErrLoginAborted
				}
				env.Term.Error(helpers.ErrorMessage(err))
			}
		case "q", "quit", "exit":
			return nil, ErrLoginAborted
		default:
			env.Term.Println("Invalid option.")
		}
	}
}

// SignIn prompts for credentials and creates the session.
func SignIn(ctx context.Context, env *Env) (*library.Session, error) {
	username, err := env.Term.Prompt("Username: ")
	if err != nil {
		return nil, errQuit
	}
	password, err := env.Term.Password("Password: ")
	if err != nil {
		return nil, errQuit
	}
	var sess *library.Session
	err = WithSpinner(env.Term.Out(), "Signing in...", func() (err error) {
		sess, err = env.Manager.Login(ctx, username, password)
		return err
	})
	if err != nil {
		return nil, err
	}
	if env.Store != nil {
		if err := env.Store.SaveSession(SessionName, sess); err != nil {
			env.logger().Warn("store session", "err", err)
		}
	}
	env.Term.Println(successStyle.Render("✓ Signed in as " + sess.Username))
	return sess, nil
}

// RegisterForm collects a Registration and submits it.
func RegisterForm(ctx context.Context, env *Env) error {
	var r library.Registration
	fields := []struct {
		label  string
		dst    *string
		secret bool
	}{
		{"Email: ", &r.Email, false},
		{"Username (optional): ", &r.Username, false},
		{"First name: ", &r.FirstName, false},
		{"Last name: ", &r.LastName, false},
		{"Password (at least 8 characters): ", &r.Password, true},
	}
	for _, f := range fields {
		var err error
		if f.secret {
			*f.dst, err = env.Term.Password(f.label)
		} else {
			*f.dst, err = env.Term.Prompt(f.label)
		}
		if err != nil {
			return errQuit
		}
	}

	var res *library.ActionResult
	err := WithSpinner(env.Term.Out(), "Creating account...", func() (err error) {
		res, err = env.Manager.Register(ctx, r)
		return err
	})
	if err != nil {
		return err
	}
	msg := res.Message
	if msg == "" {
		msg = "Registration successful! Please sign in."
	}
	env.Term.Println(successStyle.Render("✓ " + msg))
	return nil
}
