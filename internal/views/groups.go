package views

import (
	"context"
	"strings"

	"github.com/Shaeskiu/drinkinauers/internal/models"
	"github.com/Shaeskiu/drinkinauers/internal/view"
)

// Groups lists the user's groups. A repeat render for the same user
// with groups already loaded draws from the snapshot without hitting
// the backend again; Cleanup resets that shortcut.
type Groups struct {
	env *Env
	gen int

	hasRendered bool
	lastUserID  string
}

func NewGroups(env *Env) *Groups {
	return &Groups{env: env}
}

func (g *Groups) Render() {
	st := g.env.Store.Snapshot()
	if st.CurrentUser == nil {
		g.env.Store.SetCurrentView(view.Login)
		return
	}

	userChanged := st.CurrentUser.ID != g.lastUserID
	if g.hasRendered && !userChanged && len(st.UserGroups) > 0 {
		g.draw(st.UserGroups)
		return
	}

	g.lastUserID = st.CurrentUser.ID
	g.hasRendered = true
	g.draw(st.UserGroups)

	gen := g.gen
	userID := st.CurrentUser.ID
	var groups []models.Group
	g.env.async(func(ctx context.Context) error {
		var err error
		groups, err = g.env.Backend.GroupsForUser(ctx, userID)
		return err
	}, func(err error) {
		if g.gen != gen {
			return
		}
		if err != nil {
			g.env.logf("GROUPS: Load failed for %s: %v", userID, err)
			g.env.Toast.Error("Could not load your groups. Please try again.")
			return
		}
		// When the id set changed the store notifies and the
		// dispatcher repaints this screen; when it is unchanged the
		// page already on screen is correct. Either way, no loop.
		g.env.Store.SetUserGroups(groups)
	})
}

func (g *Groups) draw(groups []models.Group) {
	var b strings.Builder
	b.WriteString(`<div class="screen groups">`)
	b.WriteString(`<header class="screen-header">`)
	b.WriteString(`<h1>🍷🏆 My Groups</h1>`)
	b.WriteString(`<button class="icon-btn" data-action="groups.logout" title="Sign out">⎋</button>`)
	b.WriteString(`</header>`)
	b.WriteString(`<div class="screen-body">`)

	if len(groups) == 0 {
		writeEmptyState(&b, "👥", "No groups yet. Create one or join one to get started.")
	} else {
		b.WriteString(`<div class="card-list">`)
		for _, grp := range groups {
			b.WriteString(`<button class="card" data-action="groups.open" data-group-id="` + esc(grp.ID) + `">`)
			b.WriteString(`<h3>` + esc(grp.Name) + `</h3>`)
			b.WriteString(`<p class="muted">Code: ` + esc(grp.Code) + `</p>`)
			b.WriteString(`</button>`)
		}
		b.WriteString(`</div>`)
	}

	b.WriteString(`<button class="primary" data-action="groups.create">Create new group</button>`)
	b.WriteString(`<button class="secondary" data-action="groups.join">Join a group</button>`)
	b.WriteString(`<button class="secondary" data-action="groups.join-room">Join a room by code</button>`)
	b.WriteString(`</div></div>`)

	g.env.show(view.Groups, b.String())
}

func (g *Groups) Cleanup() {
	g.gen++
	g.hasRendered = false
	g.lastUserID = ""
}

func (g *Groups) handle(op string, values map[string]string) {
	switch op {
	case "logout":
		g.env.Confirm.Ask("Sign out", "Are you sure you want to sign out?", func(accepted bool) {
			if !accepted {
				return
			}
			g.env.logf("AUTH: Signing out")
			g.env.Store.Reset()
			g.env.Store.SetCurrentView(view.Login)
		})

	case "create":
		g.env.Store.SetCurrentView(view.CreateGroup)

	case "join":
		g.env.Store.SetCurrentView(view.JoinGroup)

	case "join-room":
		g.env.Store.SetCurrentView(view.JoinRoom)

	case "open":
		st := g.env.Store.Snapshot()
		for i := range st.UserGroups {
			if st.UserGroups[i].ID == values["group_id"] {
				group := st.UserGroups[i]
				g.env.Store.SetCurrentGroup(&group)
				g.env.Store.SetCurrentView(view.GroupDetail)
				return
			}
		}
	}
}
