package views

import (
	"context"
	"strconv"
	"strings"

	"github.com/Shaeskiu/drinkinauers/internal/backend"
	"github.com/Shaeskiu/drinkinauers/internal/models"
	"github.com/Shaeskiu/drinkinauers/internal/view"
)

// maxDrinkRows bounds how many drink form rows the submit handler
// will read. The form starts smaller; the shell adds rows on demand.
const maxDrinkRows = 20

type drinkRow struct {
	Name   string
	Points int
	Icon   string
}

func defaultDrinkRows() []drinkRow {
	return []drinkRow{
		{Name: "Beer", Points: 1, Icon: "🍺"},
		{Name: "Wine", Points: 1, Icon: "🍷"},
		{Name: "Shot", Points: 2, Icon: "🥃"},
	}
}

// CreateRoom configures a new room inside the current group: a name
// plus the drink catalog with per-drink points.
type CreateRoom struct {
	env *Env
	gen int
}

func NewCreateRoom(env *Env) *CreateRoom {
	return &CreateRoom{env: env}
}

func (c *CreateRoom) Render() {
	st := c.env.Store.Snapshot()
	if st.CurrentUser == nil {
		c.env.Store.SetCurrentView(view.Login)
		return
	}
	if st.CurrentGroup == nil {
		c.env.Store.SetCurrentView(view.Groups)
		return
	}

	var b strings.Builder
	b.WriteString(`<div class="screen create-room">`)
	writeHeader(&b, "Create room", "create-room.back")
	b.WriteString(`<div class="screen-body">`)
	b.WriteString(`<form data-action="create-room.submit">`)
	b.WriteString(`<label>Room name<input type="text" name="name" placeholder="e.g. Kitchen"></label>`)

	b.WriteString(`<h2>Drinks</h2>`)
	b.WriteString(`<div class="drink-rows" data-max-rows="` + strconv.Itoa(maxDrinkRows) + `">`)
	for i, d := range defaultDrinkRows() {
		n := strconv.Itoa(i)
		b.WriteString(`<div class="drink-row">`)
		b.WriteString(`<input type="text" name="drink_icon_` + n + `" value="` + d.Icon + `" maxlength="4" class="icon-input">`)
		b.WriteString(`<input type="text" name="drink_name_` + n + `" value="` + esc(d.Name) + `" placeholder="Name">`)
		b.WriteString(`<input type="number" name="drink_points_` + n + `" value="` + strconv.Itoa(d.Points) + `" min="1" max="10" class="points-input">`)
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div>`)
	b.WriteString(`<button type="button" class="secondary" data-add-row>Add drink</button>`)

	b.WriteString(`<button type="submit" class="primary">Create room</button>`)
	b.WriteString(`</form>`)
	b.WriteString(`</div></div>`)

	c.env.show(view.CreateRoom, b.String())
}

func (c *CreateRoom) Cleanup() {
	c.gen++
}

// parseDrinkRows reads indexed drink_name_N / drink_points_N /
// drink_icon_N values; rows with a blank name are skipped, bad or
// missing points default to one.
func parseDrinkRows(values map[string]string) []drinkRow {
	var rows []drinkRow
	for i := 0; i < maxDrinkRows; i++ {
		n := strconv.Itoa(i)
		name := strings.TrimSpace(values["drink_name_"+n])
		if name == "" {
			continue
		}
		points, err := strconv.Atoi(strings.TrimSpace(values["drink_points_"+n]))
		if err != nil || points < 1 {
			points = 1
		}
		icon := strings.TrimSpace(values["drink_icon_"+n])
		if icon == "" {
			icon = "🍹"
		}
		rows = append(rows, drinkRow{Name: name, Points: points, Icon: icon})
	}
	return rows
}

func (c *CreateRoom) handle(op string, values map[string]string) {
	switch op {
	case "back":
		c.env.Store.SetCurrentView(view.GroupDetail)

	case "submit":
		st := c.env.Store.Snapshot()
		if st.CurrentUser == nil || st.CurrentGroup == nil {
			return
		}
		name := strings.TrimSpace(values["name"])
		if name == "" {
			c.env.Toast.Error("Please enter a room name")
			return
		}
		rows := parseDrinkRows(values)
		if len(rows) == 0 {
			c.env.Toast.Error("Add at least one drink")
			return
		}

		gen := c.gen
		user := *st.CurrentUser
		groupID := st.CurrentGroup.ID
		adminToken := ""
		var (
			room        *models.Room
			drinkTypes  []models.DrinkType
			participant *models.Participant
		)
		c.env.async(func(ctx context.Context) error {
			code, err := c.env.Backend.NewRoomCode(ctx)
			if err != nil {
				return err
			}
			adminToken = backend.NewAdminToken()
			room, err = c.env.Backend.CreateRoom(ctx, name, code, adminToken, groupID)
			if err != nil {
				return err
			}
			for _, row := range rows {
				dt, derr := c.env.Backend.CreateDrinkType(ctx, room.ID, row.Name, row.Points, row.Icon)
				if derr != nil {
					return derr
				}
				drinkTypes = append(drinkTypes, *dt)
			}
			nickname, err := c.env.groupNickname(ctx, groupID, &user)
			if err != nil {
				return err
			}
			participant, err = c.env.Backend.AddParticipant(ctx, room.ID, user.ID, nickname)
			return err
		}, func(err error) {
			if c.gen != gen {
				return
			}
			if err != nil {
				c.env.logf("ROOMS: Create failed in group %s: %v", groupID, err)
				c.env.Toast.Error("Could not create the room. Please try again.")
				return
			}
			c.env.logf("ROOMS: Created %q (%s) with %d drinks", room.Name, room.Code, len(drinkTypes))

			// Admin token first so the room state batch computes
			// IsAdmin from the fresh token.
			c.env.Store.BeginBatch()
			c.env.Store.SetAdminToken(adminToken)
			c.env.Store.SetRoomState(room, drinkTypes)
			c.env.Store.SetCurrentParticipant(participant)
			c.env.Store.EndBatch()
			c.env.Store.SetCurrentView(view.Room)
		})
	}
}
