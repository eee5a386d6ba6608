package views

import (
	"context"
	"errors"
	"strings"

	"github.com/Shaeskiu/drinkinauers/internal/backend"
	"github.com/Shaeskiu/drinkinauers/internal/models"
	"github.com/Shaeskiu/drinkinauers/internal/state"
	"github.com/Shaeskiu/drinkinauers/internal/view"
	"github.com/Shaeskiu/drinkinauers/internal/wire"
)

// Room is the live scoring screen. It renders fully once per entry;
// every score change after that lands as a silent participant update
// plus a leaderboard fragment, never a full repaint.
type Room struct {
	env *Env
	gen int

	loadedParticipants bool
}

func NewRoom(env *Env) *Room {
	return &Room{env: env}
}

func (r *Room) Render() {
	st := r.env.Store.Snapshot()
	if st.CurrentRoom == nil || len(st.DrinkTypes) == 0 {
		r.leave(st)
		return
	}

	var b strings.Builder
	b.WriteString(`<div class="screen room">`)
	writeHeader(&b, st.CurrentRoom.Name, "room.back")
	b.WriteString(`<div class="screen-body">`)
	b.WriteString(`<p class="muted room-code">Code: ` + esc(st.CurrentRoom.Code) + `</p>`)

	if st.CurrentRoom.IsActive {
		b.WriteString(`<div class="drink-grid">`)
		for _, dt := range st.DrinkTypes {
			b.WriteString(`<button class="drink-btn" data-action="room.drink" data-drink-type-id="` + esc(dt.ID) + `">`)
			b.WriteString(`<span class="drink-icon">` + esc(dt.Icon) + `</span>`)
			b.WriteString(`<span class="drink-name">` + esc(dt.Name) + `</span>`)
			b.WriteString(`<span class="drink-points">` + pointsLabel(dt.Points) + `</span>`)
			b.WriteString(`</button>`)
		}
		b.WriteString(`</div>`)
	} else {
		b.WriteString(`<div class="room-over-banner">This room has finished</div>`)
	}

	b.WriteString(`<div class="leaderboard-head"><h2>Leaderboard</h2>`)
	b.WriteString(`<button class="icon-btn" data-action="room.refresh" title="Refresh">⟳</button></div>`)
	b.WriteString(`<div id="leaderboard" class="leaderboard">`)
	b.WriteString(leaderboardHTML(st.Participants, st.CurrentParticipant))
	b.WriteString(`</div>`)

	if st.IsAdmin && st.CurrentRoom.IsActive {
		b.WriteString(`<button class="danger" data-action="room.end">End room</button>`)
	}

	b.WriteString(`</div></div>`)
	r.env.show(view.Room, b.String())
}

// EnterHook loads the standings once per entry, after the first full
// render. The continuation updates silently and redraws only the
// leaderboard fragment.
func (r *Room) EnterHook() {
	if r.loadedParticipants {
		return
	}
	r.loadedParticipants = true

	st := r.env.Store.Snapshot()
	if st.CurrentRoom == nil {
		return
	}

	gen := r.gen
	roomID := st.CurrentRoom.ID
	var participants []models.Participant
	r.env.async(func(ctx context.Context) error {
		var err error
		participants, err = r.env.Backend.ParticipantsForRoom(ctx, roomID)
		return err
	}, func(err error) {
		if r.gen != gen {
			return
		}
		if err != nil {
			r.env.logf("ROOMS: Participant load failed for %s: %v", roomID, err)
			return
		}
		r.applyStandings(participants)
	})
}

func (r *Room) Cleanup() {
	r.gen++
	r.loadedParticipants = false
}

// applyStandings is the silent path: swap the participant slice
// without a store notification, refresh the user's own row, and push
// just the leaderboard fragment.
func (r *Room) applyStandings(participants []models.Participant) {
	st := r.env.Store.Snapshot()
	current := st.CurrentParticipant
	if current != nil {
		for i := range participants {
			if participants[i].ID == current.ID {
				p := participants[i]
				current = &p
				break
			}
		}
	}

	r.env.Store.UpdateParticipantsSilently(participants)
	if current != st.CurrentParticipant {
		r.env.Store.SetCurrentParticipant(current)
	}
	r.env.fragment(wire.TargetLeaderboard, leaderboardHTML(participants, current))
}

func (r *Room) leave(st state.AppState) {
	if st.CurrentGroup != nil {
		r.env.Store.SetCurrentView(view.GroupDetail)
		return
	}
	r.env.Store.SetCurrentView(view.Groups)
}

func (r *Room) handle(op string, values map[string]string) {
	st := r.env.Store.Snapshot()
	switch op {
	case "back":
		r.leave(st)
	case "drink":
		r.drink(st, values["drink_type_id"])
	case "refresh":
		r.refresh(st)
	case "end":
		r.end(st)
	}
}

func (r *Room) drink(st state.AppState, drinkTypeID string) {
	if st.CurrentRoom == nil || drinkTypeID == "" {
		return
	}
	if st.CurrentParticipant == nil {
		r.env.Toast.Error("You are not a participant in this room")
		return
	}
	if !st.CurrentRoom.IsActive {
		r.env.Toast.Error("This room has finished")
		return
	}

	gen := r.gen
	roomID := st.CurrentRoom.ID
	participantID := st.CurrentParticipant.ID
	var participants []models.Participant
	r.env.async(func(ctx context.Context) error {
		if err := r.env.Backend.AddDrinkEvent(ctx, participantID, drinkTypeID); err != nil {
			return err
		}
		var err error
		participants, err = r.env.Backend.ParticipantsForRoom(ctx, roomID)
		return err
	}, func(err error) {
		if r.gen != gen {
			return
		}
		if errors.Is(err, backend.ErrRoomFinished) {
			r.env.Toast.Error("This room has finished")
			r.refresh(r.env.Store.Snapshot())
			return
		}
		if err != nil {
			r.env.logf("ROOMS: Drink failed for %s: %v", participantID, err)
			r.env.Toast.Error("Could not record the drink. Please try again.")
			return
		}
		r.applyStandings(participants)
	})
}

// refresh reloads standings and the room row. A room that went
// inactive under us moves everyone to the results screen.
func (r *Room) refresh(st state.AppState) {
	if st.CurrentRoom == nil {
		return
	}

	gen := r.gen
	roomID := st.CurrentRoom.ID
	var (
		room         *models.Room
		participants []models.Participant
	)
	r.env.async(func(ctx context.Context) error {
		var err error
		room, err = r.env.Backend.RoomByID(ctx, roomID)
		if err != nil {
			return err
		}
		participants, err = r.env.Backend.ParticipantsForRoom(ctx, roomID)
		return err
	}, func(err error) {
		if r.gen != gen {
			return
		}
		if err != nil {
			r.env.logf("ROOMS: Refresh failed for %s: %v", roomID, err)
			r.env.Toast.Error("Could not refresh the room.")
			return
		}
		if !room.IsActive {
			r.env.logf("ROOMS: %q finished, showing results", room.Name)
			r.env.Store.BeginBatch()
			r.env.Store.SetCurrentRoom(room)
			r.env.Store.UpdateParticipantsSilently(participants)
			r.env.Store.EndBatch()
			r.env.Store.SetCurrentView(view.Finished)
			return
		}
		r.env.Store.SetCurrentRoom(room)
		r.applyStandings(participants)
	})
}

func (r *Room) end(st state.AppState) {
	if st.CurrentRoom == nil || !st.CurrentRoom.IsActive {
		return
	}
	if !st.IsAdmin || st.AdminToken == "" {
		r.env.Toast.Error("Only the room admin can end the room")
		return
	}
	roomID := st.CurrentRoom.ID
	adminToken := st.AdminToken

	r.env.Confirm.Ask(
		"End room",
		"This stops the scoring for everyone. Continue?",
		func(accepted bool) {
			if !accepted {
				return
			}
			gen := r.gen
			var (
				room         *models.Room
				participants []models.Participant
			)
			r.env.async(func(ctx context.Context) error {
				if err := r.env.Backend.EndRoom(ctx, roomID, adminToken); err != nil {
					return err
				}
				var err error
				room, err = r.env.Backend.RoomByID(ctx, roomID)
				if err != nil {
					return err
				}
				participants, err = r.env.Backend.ParticipantsForRoom(ctx, roomID)
				return err
			}, func(err error) {
				if r.gen != gen {
					return
				}
				if errors.Is(err, backend.ErrNotRoomAdmin) {
					r.env.Toast.Error("Only the room admin can end the room")
					return
				}
				if err != nil {
					r.env.logf("ROOMS: End failed for %s: %v", roomID, err)
					r.env.Toast.Error("Could not end the room.")
					return
				}
				r.env.logf("ROOMS: %q ended by admin", room.Name)
				r.env.Store.BeginBatch()
				r.env.Store.SetCurrentRoom(room)
				r.env.Store.UpdateParticipantsSilently(participants)
				r.env.Store.EndBatch()
				r.env.Store.SetCurrentView(view.Finished)
			})
		})
}
