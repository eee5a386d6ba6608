// Package views holds one screen module per view. Screens render full
// pages from store snapshots and push them over the session's output;
// the room screen additionally redraws its leaderboard as a fragment.
package views

import (
	"context"
	"strings"
	"time"

	"github.com/Shaeskiu/drinkinauers/internal/backend"
	"github.com/Shaeskiu/drinkinauers/internal/models"
	"github.com/Shaeskiu/drinkinauers/internal/state"
	"github.com/Shaeskiu/drinkinauers/internal/view"
	"github.com/Shaeskiu/drinkinauers/internal/widgets"
	"github.com/Shaeskiu/drinkinauers/internal/wire"
)

const backendTimeout = 10 * time.Second

// Env bundles the session-scoped collaborators every screen needs.
type Env struct {
	Store   *state.Store
	Backend *backend.Service
	Out     wire.Pusher
	Toast   *widgets.Notifier
	Confirm *widgets.Confirmer

	// Post schedules a task on the session's event loop. Continuations
	// of async backend work must go through it; only the loop may
	// touch the store or push output.
	Post func(task func())

	Logf func(format string, args ...any)
}

func (e *Env) logf(format string, args ...any) {
	if e.Logf != nil {
		e.Logf(format, args...)
	}
}

// show pushes a full-page render for a view.
func (e *Env) show(v view.View, html string) {
	e.Out.Push(wire.RenderMessage{Type: "render", View: v.String(), HTML: html})
}

// fragment pushes a partial redraw for one region of the current
// page.
func (e *Env) fragment(target, html string) {
	e.Out.Push(wire.FragmentMessage{Type: "fragment", Target: target, HTML: html})
}

// async runs work off the event loop and posts done back onto it.
// done always runs on the loop; it must re-check its generation guard
// before touching anything.
func (e *Env) async(work func(ctx context.Context) error, done func(err error)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
		defer cancel()
		err := work(ctx)
		e.Post(func() { done(err) })
	}()
}

// groupNickname resolves the user's name within a group: the member
// nickname when set, otherwise a unique default derived from the
// account.
func (e *Env) groupNickname(ctx context.Context, groupID string, u *models.User) (string, error) {
	m, err := e.Backend.Membership(ctx, groupID, u.ID)
	if err == nil && m.Nickname != "" {
		return m.Nickname, nil
	}
	if err != nil && err != backend.ErrNotFound {
		return "", err
	}
	return e.Backend.UniqueNickname(ctx, groupID, nicknameBase(u))
}

// nicknameBase picks the starting point for a generated nickname.
func nicknameBase(u *models.User) string {
	if u == nil {
		return "player"
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if i := strings.Index(u.Email, "@"); i > 0 {
		return u.Email[:i]
	}
	return "player"
}
