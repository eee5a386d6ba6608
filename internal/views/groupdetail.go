package views

import (
	"context"
	"errors"
	"strings"

	"github.com/Shaeskiu/drinkinauers/internal/backend"
	"github.com/Shaeskiu/drinkinauers/internal/models"
	"github.com/Shaeskiu/drinkinauers/internal/state"
	"github.com/Shaeskiu/drinkinauers/internal/view"
)

// GroupDetail shows one group: its active and finished rooms on one
// tab, the cross-room ranking on another, plus nickname editing and
// the admin-only ranking reset.
type GroupDetail struct {
	env *Env
	gen int

	lastGroupID   string
	loaded        bool
	tab           string
	activeRooms   []models.Room
	finishedRooms []models.Room
	ranking       []models.GlobalScore
	nickname      string
}

func NewGroupDetail(env *Env) *GroupDetail {
	return &GroupDetail{env: env, tab: "rooms"}
}

func (g *GroupDetail) Render() {
	st := g.env.Store.Snapshot()
	if st.CurrentUser == nil {
		g.env.Store.SetCurrentView(view.Login)
		return
	}
	if st.CurrentGroup == nil {
		g.env.Store.SetCurrentView(view.Groups)
		return
	}

	if st.CurrentGroup.ID != g.lastGroupID {
		g.lastGroupID = st.CurrentGroup.ID
		g.loaded = false
		g.tab = "rooms"
		g.activeRooms = nil
		g.finishedRooms = nil
		g.ranking = nil
		g.nickname = ""
	}

	g.draw(st)

	if g.loaded {
		return
	}
	g.loaded = true
	g.reload(st.CurrentGroup.ID, st.CurrentUser.ID)
}

// reload fetches rooms, ranking and the user's nickname in one async
// pass and repaints when it lands.
func (g *GroupDetail) reload(groupID, userID string) {
	gen := g.gen
	var (
		active   []models.Room
		finished []models.Room
		ranking  []models.GlobalScore
		nickname string
	)
	g.env.async(func(ctx context.Context) error {
		var err error
		if active, err = g.env.Backend.RoomsForGroup(ctx, groupID, true); err != nil {
			return err
		}
		if finished, err = g.env.Backend.RoomsForGroup(ctx, groupID, false); err != nil {
			return err
		}
		if ranking, err = g.env.Backend.GroupRanking(ctx, groupID); err != nil {
			return err
		}
		member, err := g.env.Backend.Membership(ctx, groupID, userID)
		if err != nil && !errors.Is(err, backend.ErrNotFound) {
			return err
		}
		if member != nil {
			nickname = member.Nickname
		}
		return nil
	}, func(err error) {
		if g.gen != gen {
			return
		}
		if err != nil {
			g.env.logf("GROUPS: Detail load failed for %s: %v", groupID, err)
			g.env.Toast.Error("Could not load the group. Please try again.")
			return
		}
		g.activeRooms = active
		g.finishedRooms = finished
		g.ranking = ranking
		g.nickname = nickname
		g.draw(g.env.Store.Snapshot())
	})
}

func (g *GroupDetail) draw(st state.AppState) {
	group := st.CurrentGroup
	if group == nil {
		return
	}

	var b strings.Builder
	b.WriteString(`<div class="screen group-detail">`)
	writeHeader(&b, group.Name, "group-detail.back")
	b.WriteString(`<div class="screen-body">`)

	b.WriteString(`<div class="code-box compact">`)
	b.WriteString(`<span class="label">Code</span><span class="code">` + esc(group.Code) + `</span>`)
	b.WriteString(`<img class="qr" src="/qr?code=` + esc(group.Code) + `" alt="QR code" width="120" height="120">`)
	b.WriteString(`</div>`)

	b.WriteString(`<nav class="tabs">`)
	g.writeTab(&b, "rooms", "Rooms")
	g.writeTab(&b, "ranking", "Ranking")
	b.WriteString(`</nav>`)

	switch g.tab {
	case "ranking":
		g.writeRankingTab(&b, st)
	default:
		g.writeRoomsTab(&b)
	}

	b.WriteString(`</div></div>`)
	g.env.show(view.GroupDetail, b.String())
}

func (g *GroupDetail) writeTab(b *strings.Builder, id, label string) {
	cls := "tab"
	if g.tab == id {
		cls += " active"
	}
	b.WriteString(`<button class="` + cls + `" data-action="group-detail.tab" data-tab="` + id + `">` + label + `</button>`)
}

func (g *GroupDetail) writeRoomsTab(b *strings.Builder) {
	b.WriteString(`<button class="primary" data-action="group-detail.create-room">Create room</button>`)

	b.WriteString(`<h2>Active rooms</h2>`)
	if len(g.activeRooms) == 0 {
		writeEmptyState(b, "🚪", "No active rooms")
	} else {
		b.WriteString(`<div class="card-list">`)
		for _, r := range g.activeRooms {
			b.WriteString(`<button class="card" data-action="group-detail.open-room" data-room-id="` + esc(r.ID) + `">`)
			b.WriteString(`<h3>` + esc(r.Name) + `</h3>`)
			b.WriteString(`<p class="muted">Code: ` + esc(r.Code) + `</p>`)
			b.WriteString(`</button>`)
		}
		b.WriteString(`</div>`)
	}

	if len(g.finishedRooms) > 0 {
		b.WriteString(`<h2>Finished rooms</h2>`)
		b.WriteString(`<div class="card-list">`)
		for _, r := range g.finishedRooms {
			b.WriteString(`<button class="card finished" data-action="group-detail.open-finished" data-room-id="` + esc(r.ID) + `">`)
			b.WriteString(`<h3>` + esc(r.Name) + `</h3>`)
			b.WriteString(`<p class="muted">Finished</p>`)
			b.WriteString(`</button>`)
		}
		b.WriteString(`</div>`)
	}
}

func (g *GroupDetail) writeRankingTab(b *strings.Builder, st state.AppState) {
	userID := ""
	if st.CurrentUser != nil {
		userID = st.CurrentUser.ID
	}
	b.WriteString(`<div class="leaderboard">` + rankingHTML(g.ranking, userID) + `</div>`)

	b.WriteString(`<form data-action="group-detail.save-nickname" class="nickname-form">`)
	b.WriteString(`<label>Your nickname in this group<input type="text" name="nickname" value="` + esc(g.nickname) + `" maxlength="24"></label>`)
	b.WriteString(`<button type="submit" class="secondary">Save nickname</button>`)
	b.WriteString(`</form>`)

	if st.IsGroupAdmin {
		b.WriteString(`<button class="danger" data-action="group-detail.reset-ranking">Reset global ranking</button>`)
	}
}

func (g *GroupDetail) Cleanup() {
	g.gen++
	g.loaded = false
}

func (g *GroupDetail) handle(op string, values map[string]string) {
	st := g.env.Store.Snapshot()
	switch op {
	case "back":
		g.env.Store.SetCurrentView(view.Groups)

	case "tab":
		tab := values["tab"]
		if tab != "rooms" && tab != "ranking" {
			return
		}
		if g.tab != tab {
			g.tab = tab
			g.draw(st)
		}

	case "create-room":
		g.env.Store.SetCurrentView(view.CreateRoom)

	case "open-room":
		g.openRoom(st, values["room_id"])

	case "open-finished":
		g.openFinished(st, values["room_id"])

	case "save-nickname":
		g.saveNickname(st, values["nickname"])

	case "reset-ranking":
		g.resetRanking(st)
	}
}

// openRoom joins an active room: it needs the drink catalog and a
// participant row for this user before the room screen makes sense.
func (g *GroupDetail) openRoom(st state.AppState, roomID string) {
	if st.CurrentUser == nil || st.CurrentGroup == nil || roomID == "" {
		return
	}

	gen := g.gen
	user := *st.CurrentUser
	groupID := st.CurrentGroup.ID
	var (
		room        *models.Room
		drinkTypes  []models.DrinkType
		participant *models.Participant
	)
	g.env.async(func(ctx context.Context) error {
		var err error
		room, err = g.env.Backend.RoomByID(ctx, roomID)
		if err != nil {
			return err
		}
		drinkTypes, err = g.env.Backend.DrinkTypesForRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if len(drinkTypes) == 0 {
			return nil
		}
		participant, err = g.env.Backend.ParticipantForUser(ctx, roomID, user.ID)
		if errors.Is(err, backend.ErrNotFound) {
			nickname, nerr := g.env.groupNickname(ctx, groupID, &user)
			if nerr != nil {
				return nerr
			}
			participant, err = g.env.Backend.AddParticipant(ctx, roomID, user.ID, nickname)
		}
		return err
	}, func(err error) {
		if g.gen != gen {
			return
		}
		if err != nil {
			g.env.logf("ROOMS: Open failed for %s: %v", roomID, err)
			g.env.Toast.Error("Could not open the room. Please try again.")
			return
		}
		if len(drinkTypes) == 0 {
			g.env.Toast.Error("This room has no drinks configured")
			return
		}
		g.env.logf("ROOMS: %s entered %q", user.ID, room.Name)

		g.env.Store.BeginBatch()
		g.env.Store.SetRoomState(room, drinkTypes)
		g.env.Store.SetCurrentParticipant(participant)
		g.env.Store.EndBatch()
		g.env.Store.SetCurrentView(view.Room)
	})
}

// openFinished loads a finished room read-only and jumps straight to
// the results screen.
func (g *GroupDetail) openFinished(st state.AppState, roomID string) {
	if roomID == "" {
		return
	}

	gen := g.gen
	var (
		room         *models.Room
		participants []models.Participant
	)
	g.env.async(func(ctx context.Context) error {
		var err error
		room, err = g.env.Backend.RoomByID(ctx, roomID)
		if err != nil {
			return err
		}
		participants, err = g.env.Backend.ParticipantsForRoom(ctx, roomID)
		return err
	}, func(err error) {
		if g.gen != gen {
			return
		}
		if err != nil {
			g.env.logf("ROOMS: Results load failed for %s: %v", roomID, err)
			g.env.Toast.Error("Could not load the room results.")
			return
		}
		g.env.Store.BeginBatch()
		g.env.Store.SetCurrentRoom(room)
		g.env.Store.SetParticipants(participants)
		g.env.Store.SetCurrentParticipant(nil)
		g.env.Store.EndBatch()
		g.env.Store.SetCurrentView(view.Finished)
	})
}

func (g *GroupDetail) saveNickname(st state.AppState, raw string) {
	if st.CurrentUser == nil || st.CurrentGroup == nil {
		return
	}
	nickname := strings.TrimSpace(raw)
	if nickname == "" {
		g.env.Toast.Error("Nickname cannot be empty")
		return
	}

	gen := g.gen
	userID := st.CurrentUser.ID
	groupID := st.CurrentGroup.ID
	var taken bool
	g.env.async(func(ctx context.Context) error {
		var err error
		taken, err = g.env.Backend.NicknameTaken(ctx, groupID, nickname, userID)
		if err != nil || taken {
			return err
		}
		return g.env.Backend.UpdateGroupNickname(ctx, groupID, userID, nickname)
	}, func(err error) {
		if g.gen != gen {
			return
		}
		if err != nil {
			g.env.logf("GROUPS: Nickname save failed: %v", err)
			g.env.Toast.Error("Could not save your nickname.")
			return
		}
		if taken {
			g.env.Toast.Error("That nickname is already taken in this group")
			return
		}
		g.nickname = nickname
		g.env.Toast.Success("Nickname saved")
		g.draw(g.env.Store.Snapshot())
	})
}

func (g *GroupDetail) resetRanking(st state.AppState) {
	if !st.IsGroupAdmin || st.CurrentUser == nil || st.CurrentGroup == nil {
		return
	}
	userID := st.CurrentUser.ID
	groupID := st.CurrentGroup.ID

	g.env.Confirm.Ask(
		"Reset ranking",
		"This sets every member's global score in this group back to zero. Continue?",
		func(accepted bool) {
			if !accepted {
				return
			}
			gen := g.gen
			var ranking []models.GlobalScore
			g.env.async(func(ctx context.Context) error {
				if err := g.env.Backend.ResetGlobalRanking(ctx, groupID, userID); err != nil {
					return err
				}
				var err error
				ranking, err = g.env.Backend.GroupRanking(ctx, groupID)
				return err
			}, func(err error) {
				if g.gen != gen {
					return
				}
				if errors.Is(err, backend.ErrNotGroupAdmin) {
					g.env.Toast.Error("Only the group creator can reset the ranking")
					return
				}
				if err != nil {
					g.env.logf("GROUPS: Ranking reset failed for %s: %v", groupID, err)
					g.env.Toast.Error("Could not reset the ranking.")
					return
				}
				g.env.logf("GROUPS: Ranking reset for %s", groupID)
				g.ranking = ranking
				g.env.Toast.Success("Global ranking reset")
				g.draw(g.env.Store.Snapshot())
			})
		})
}
