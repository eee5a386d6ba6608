package views

import (
	"context"
	"errors"
	"strings"

	"github.com/Shaeskiu/drinkinauers/internal/backend"
	"github.com/Shaeskiu/drinkinauers/internal/models"
	"github.com/Shaeskiu/drinkinauers/internal/view"
)

// JoinRoom enters a room by its share code. After the code checks out
// the screen offers the existing participants for reclaiming a seat,
// or joining fresh under the user's group nickname.
type JoinRoom struct {
	env *Env
	gen int

	errorMessage string
	room         *models.Room
	drinkTypes   []models.DrinkType
	participants []models.Participant
}

func NewJoinRoom(env *Env) *JoinRoom {
	return &JoinRoom{env: env}
}

func (j *JoinRoom) Render() {
	st := j.env.Store.Snapshot()
	if st.CurrentUser == nil {
		j.env.Store.SetCurrentView(view.Login)
		return
	}

	var b strings.Builder
	b.WriteString(`<div class="screen join-room">`)
	writeHeader(&b, "Join room", "join-room.back")
	b.WriteString(`<div class="screen-body">`)
	if j.errorMessage != "" {
		b.WriteString(`<div class="error-banner">` + esc(j.errorMessage) + `</div>`)
	}

	if j.room == nil {
		b.WriteString(`<form data-action="join-room.check">`)
		b.WriteString(`<label>Room code<input type="text" name="code" maxlength="6" placeholder="ROOM01" autocomplete="off"></label>`)
		b.WriteString(`<button type="submit" class="primary">Find room</button>`)
		b.WriteString(`</form>`)
	} else {
		b.WriteString(`<h2>` + esc(j.room.Name) + `</h2>`)
		if len(j.participants) > 0 {
			b.WriteString(`<p class="muted">Already playing? Pick your seat:</p>`)
			b.WriteString(`<div class="card-list">`)
			for _, p := range j.participants {
				b.WriteString(`<button class="card" data-action="join-room.resume" data-participant-id="` + esc(p.ID) + `">`)
				b.WriteString(`<h3>` + esc(p.Nickname) + `</h3>`)
				b.WriteString(`<p class="muted">` + pointsLabel(p.TotalPoints) + `</p>`)
				b.WriteString(`</button>`)
			}
			b.WriteString(`</div>`)
		}
		b.WriteString(`<button class="primary" data-action="join-room.join">Join as a new player</button>`)
	}

	b.WriteString(`</div></div>`)
	j.env.show(view.JoinRoom, b.String())
}

func (j *JoinRoom) Cleanup() {
	j.gen++
	j.errorMessage = ""
	j.room = nil
	j.drinkTypes = nil
	j.participants = nil
}

func (j *JoinRoom) handle(op string, values map[string]string) {
	switch op {
	case "back":
		j.env.Store.SetCurrentView(view.Groups)
	case "check":
		j.check(values["code"])
	case "resume":
		j.enter(values["participant_id"])
	case "join":
		j.enter("")
	}
}

func (j *JoinRoom) check(raw string) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != 6 {
		j.errorMessage = "Room codes are 6 characters"
		j.Render()
		return
	}
	st := j.env.Store.Snapshot()
	if st.CurrentUser == nil {
		return
	}

	gen := j.gen
	userID := st.CurrentUser.ID
	var (
		room         *models.Room
		drinkTypes   []models.DrinkType
		participants []models.Participant
		notMember    bool
	)
	j.env.async(func(ctx context.Context) error {
		var err error
		room, err = j.env.Backend.RoomByCode(ctx, code)
		if err != nil {
			return err
		}
		_, err = j.env.Backend.Membership(ctx, room.GroupID, userID)
		if errors.Is(err, backend.ErrNotFound) {
			notMember = true
			return nil
		}
		if err != nil {
			return err
		}
		drinkTypes, err = j.env.Backend.DrinkTypesForRoom(ctx, room.ID)
		if err != nil {
			return err
		}
		participants, err = j.env.Backend.ParticipantsForRoom(ctx, room.ID)
		return err
	}, func(err error) {
		if j.gen != gen {
			return
		}
		switch {
		case errors.Is(err, backend.ErrNotFound):
			j.errorMessage = "No room with that code"
		case err != nil:
			j.env.logf("ROOMS: Code check failed for %s: %v", code, err)
			j.errorMessage = "Could not look up the room. Please try again."
		case notMember:
			j.errorMessage = "Join this room's group first"
		case !room.IsActive:
			j.errorMessage = "That room has already finished"
		case len(drinkTypes) == 0:
			j.errorMessage = "That room has no drinks configured"
		default:
			j.errorMessage = ""
			j.room = room
			j.drinkTypes = drinkTypes
			j.participants = participants
		}
		j.Render()
	})
}

// enter finishes the join. With a participant id it reclaims that
// seat; without one it reuses the user's own seat or creates a fresh
// one under the group nickname.
func (j *JoinRoom) enter(participantID string) {
	st := j.env.Store.Snapshot()
	if st.CurrentUser == nil || j.room == nil {
		return
	}

	if participantID != "" {
		for i := range j.participants {
			if j.participants[i].ID == participantID {
				p := j.participants[i]
				j.commit(&p)
				return
			}
		}
		return
	}

	gen := j.gen
	user := *st.CurrentUser
	room := j.room
	var participant *models.Participant
	j.env.async(func(ctx context.Context) error {
		var err error
		participant, err = j.env.Backend.ParticipantForUser(ctx, room.ID, user.ID)
		if errors.Is(err, backend.ErrNotFound) {
			nickname, nerr := j.env.groupNickname(ctx, room.GroupID, &user)
			if nerr != nil {
				return nerr
			}
			participant, err = j.env.Backend.AddParticipant(ctx, room.ID, user.ID, nickname)
		}
		return err
	}, func(err error) {
		if j.gen != gen {
			return
		}
		if err != nil {
			j.env.logf("ROOMS: Join failed for %s: %v", room.Code, err)
			j.env.Toast.Error("Could not join the room. Please try again.")
			return
		}
		j.commit(participant)
	})
}

func (j *JoinRoom) commit(participant *models.Participant) {
	j.env.logf("ROOMS: Entered %q as %q", j.room.Name, participant.Nickname)
	j.env.Store.BeginBatch()
	j.env.Store.SetRoomState(j.room, j.drinkTypes)
	j.env.Store.SetCurrentParticipant(participant)
	j.env.Store.EndBatch()
	j.env.Store.SetCurrentView(view.Room)
}
