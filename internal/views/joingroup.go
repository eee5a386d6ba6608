package views

import (
	"context"
	"errors"
	"strings"

	"github.com/Shaeskiu/drinkinauers/internal/backend"
	"github.com/Shaeskiu/drinkinauers/internal/models"
	"github.com/Shaeskiu/drinkinauers/internal/view"
)

// JoinGroup takes a share code and adds the user to that group. A code
// the user already belongs to just opens the group.
type JoinGroup struct {
	env *Env
	gen int

	errorMessage string
}

func NewJoinGroup(env *Env) *JoinGroup {
	return &JoinGroup{env: env}
}

func (j *JoinGroup) Render() {
	st := j.env.Store.Snapshot()
	if st.CurrentUser == nil {
		j.env.Store.SetCurrentView(view.Login)
		return
	}

	var b strings.Builder
	b.WriteString(`<div class="screen join-group">`)
	writeHeader(&b, "Join group", "join-group.back")
	b.WriteString(`<div class="screen-body">`)
	if j.errorMessage != "" {
		b.WriteString(`<div class="error-banner">` + esc(j.errorMessage) + `</div>`)
	}
	b.WriteString(`<form data-action="join-group.submit">`)
	b.WriteString(`<label>Group code<input type="text" name="code" maxlength="6" placeholder="ABC123" autocomplete="off"></label>`)
	b.WriteString(`<button type="submit" class="primary">Join</button>`)
	b.WriteString(`</form>`)
	b.WriteString(`</div></div>`)

	j.env.show(view.JoinGroup, b.String())
}

func (j *JoinGroup) Cleanup() {
	j.gen++
	j.errorMessage = ""
}

func (j *JoinGroup) handle(op string, values map[string]string) {
	switch op {
	case "back":
		j.env.Store.SetCurrentView(view.Groups)

	case "submit":
		code := strings.ToUpper(strings.TrimSpace(values["code"]))
		if len(code) != 6 {
			j.errorMessage = "Group codes are 6 characters"
			j.Render()
			return
		}
		st := j.env.Store.Snapshot()
		if st.CurrentUser == nil {
			return
		}

		gen := j.gen
		user := *st.CurrentUser
		var (
			group         *models.Group
			alreadyMember bool
			groups        []models.Group
		)
		j.env.async(func(ctx context.Context) error {
			var err error
			group, err = j.env.Backend.GroupByCode(ctx, code)
			if err != nil {
				return err
			}
			_, err = j.env.Backend.Membership(ctx, group.ID, user.ID)
			switch {
			case err == nil:
				alreadyMember = true
			case errors.Is(err, backend.ErrNotFound):
				nickname, nerr := j.env.Backend.UniqueNickname(ctx, group.ID, nicknameBase(&user))
				if nerr != nil {
					return nerr
				}
				if _, nerr = j.env.Backend.AddMember(ctx, group.ID, user.ID, nickname); nerr != nil {
					return nerr
				}
			default:
				return err
			}
			groups, err = j.env.Backend.GroupsForUser(ctx, user.ID)
			return err
		}, func(err error) {
			if j.gen != gen {
				return
			}
			if errors.Is(err, backend.ErrNotFound) {
				j.errorMessage = "No group with that code"
				j.Render()
				return
			}
			if err != nil {
				j.env.logf("GROUPS: Join failed for code %s: %v", code, err)
				j.env.Toast.Error("Could not join the group. Please try again.")
				return
			}
			if alreadyMember {
				j.env.logf("GROUPS: %s already in %q, opening it", user.ID, group.Name)
			} else {
				j.env.logf("GROUPS: %s joined %q (%s)", user.ID, group.Name, group.Code)
			}

			j.env.Store.BeginBatch()
			j.env.Store.SetCurrentGroup(group)
			j.env.Store.SetUserGroups(groups)
			j.env.Store.EndBatch()
			j.env.Store.SetCurrentView(view.GroupDetail)
		})
	}
}
