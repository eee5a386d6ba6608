package views

import (
	"context"
	"strings"

	"github.com/Shaeskiu/drinkinauers/internal/models"
	"github.com/Shaeskiu/drinkinauers/internal/view"
)

// Login renders the sign-in form and runs the credential check.
type Login struct {
	env *Env
	gen int

	errorMessage string
}

func NewLogin(env *Env) *Login {
	return &Login{env: env}
}

func (l *Login) Render() {
	var b strings.Builder
	b.WriteString(`<div class="screen login">`)
	b.WriteString(`<div class="login-card">`)
	b.WriteString(`<div class="login-logo">🍷🏆</div>`)
	b.WriteString(`<h1>Drinkinauers</h1>`)
	b.WriteString(`<p class="subtitle">Sign in to continue</p>`)
	if l.errorMessage != "" {
		b.WriteString(`<div class="error-banner">` + esc(l.errorMessage) + `</div>`)
	}
	b.WriteString(`<form data-action="login.submit">`)
	b.WriteString(`<label>Email<input type="email" name="email" required placeholder="you@example.com"></label>`)
	b.WriteString(`<label>Password<input type="password" name="password" required placeholder="••••••••"></label>`)
	b.WriteString(`<button type="submit" class="primary">Sign in</button>`)
	b.WriteString(`</form>`)
	b.WriteString(`</div></div>`)

	l.env.show(view.Login, b.String())
}

func (l *Login) Cleanup() {
	l.gen++
	l.errorMessage = ""
}

func (l *Login) handle(op string, values map[string]string) {
	if op != "submit" {
		return
	}
	email := strings.TrimSpace(values["email"])
	password := values["password"]
	if email == "" || password == "" {
		l.errorMessage = "Enter your email and password"
		l.Render()
		return
	}

	gen := l.gen
	var user *models.User
	l.env.async(func(ctx context.Context) error {
		var err error
		user, err = l.env.Backend.SignIn(ctx, email, password)
		return err
	}, func(err error) {
		if l.gen != gen {
			return
		}
		if err != nil {
			l.env.logf("AUTH: Sign-in failed for %q: %v", email, err)
			l.errorMessage = "Incorrect email or password"
			l.Render()
			return
		}
		l.env.logf("AUTH: %q signed in", email)
		l.errorMessage = ""
		l.env.Store.SetCurrentUser(user)
		l.env.Store.SetCurrentView(view.Groups)
	})
}
