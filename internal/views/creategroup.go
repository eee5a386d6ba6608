package views

import (
	"context"
	"strings"

	"github.com/Shaeskiu/drinkinauers/internal/models"
	"github.com/Shaeskiu/drinkinauers/internal/view"
)

// CreateGroup reserves a share code up front, shows it (with a QR
// image) while the user picks a name, and creates the group plus the
// creator's membership on submit.
type CreateGroup struct {
	env *Env
	gen int

	code string
}

func NewCreateGroup(env *Env) *CreateGroup {
	return &CreateGroup{env: env}
}

func (c *CreateGroup) Render() {
	st := c.env.Store.Snapshot()
	if st.CurrentUser == nil {
		c.env.Store.SetCurrentView(view.Login)
		return
	}

	c.draw()

	if c.code != "" {
		return
	}
	gen := c.gen
	var code string
	c.env.async(func(ctx context.Context) error {
		var err error
		code, err = c.env.Backend.NewGroupCode(ctx)
		return err
	}, func(err error) {
		if c.gen != gen {
			return
		}
		if err != nil {
			c.env.logf("GROUPS: Code generation failed: %v", err)
			c.env.Toast.Error("Could not generate a group code. Please go back and retry.")
			return
		}
		c.code = code
		c.draw()
	})
}

func (c *CreateGroup) draw() {
	var b strings.Builder
	b.WriteString(`<div class="screen create-group">`)
	writeHeader(&b, "Create group", "create-group.back")
	b.WriteString(`<div class="screen-body">`)
	b.WriteString(`<form data-action="create-group.submit">`)
	b.WriteString(`<label>Group name<input type="text" name="name" placeholder="e.g. Friday Crew"></label>`)

	b.WriteString(`<div class="code-box">`)
	b.WriteString(`<span class="label">Group code</span>`)
	if c.code == "" {
		b.WriteString(`<span class="code">Generating...</span>`)
	} else {
		b.WriteString(`<span class="code">` + esc(c.code) + `</span>`)
		b.WriteString(`<img class="qr" src="/qr?code=` + esc(c.code) + `" alt="QR code" width="160" height="160">`)
	}
	b.WriteString(`<p class="muted">Share this code so others can join</p>`)
	b.WriteString(`</div>`)

	b.WriteString(`<button type="submit" class="primary">Create group</button>`)
	b.WriteString(`</form>`)
	b.WriteString(`</div></div>`)

	c.env.show(view.CreateGroup, b.String())
}

func (c *CreateGroup) Cleanup() {
	c.gen++
	c.code = ""
}

func (c *CreateGroup) handle(op string, values map[string]string) {
	switch op {
	case "back":
		c.env.Store.SetCurrentView(view.Groups)

	case "submit":
		name := strings.TrimSpace(values["name"])
		if name == "" {
			c.env.Toast.Error("Please enter a group name")
			return
		}
		st := c.env.Store.Snapshot()
		if st.CurrentUser == nil || c.code == "" {
			return
		}

		gen := c.gen
		user := *st.CurrentUser
		code := c.code
		var group *models.Group
		c.env.async(func(ctx context.Context) error {
			var err error
			group, err = c.env.Backend.CreateGroup(ctx, name, code, user.ID)
			if err != nil {
				return err
			}
			nickname, err := c.env.Backend.UniqueNickname(ctx, group.ID, nicknameBase(&user))
			if err != nil {
				return err
			}
			_, err = c.env.Backend.AddMember(ctx, group.ID, user.ID, nickname)
			return err
		}, func(err error) {
			if c.gen != gen {
				return
			}
			if err != nil {
				c.env.logf("GROUPS: Create failed: %v", err)
				c.env.Toast.Error("Could not create the group. Please try again.")
				return
			}
			c.env.logf("GROUPS: Created %q (%s)", group.Name, group.Code)

			// Append to the cached list rather than reloading; the
			// batch keeps it to one notification before navigating.
			cur := c.env.Store.Snapshot()
			c.env.Store.BeginBatch()
			c.env.Store.SetCurrentGroup(group)
			c.env.Store.SetUserGroups(append(cur.UserGroups, *group))
			c.env.Store.EndBatch()
			c.env.Store.SetCurrentView(view.GroupDetail)
		})
	}
}
