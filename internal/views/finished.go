package views

import (
	"context"
	"strings"

	"github.com/Shaeskiu/drinkinauers/internal/models"
	"github.com/Shaeskiu/drinkinauers/internal/view"
)

// Finished shows the final standings of an ended room.
type Finished struct {
	env *Env
	gen int
}

func NewFinished(env *Env) *Finished {
	return &Finished{env: env}
}

func (f *Finished) Render() {
	st := f.env.Store.Snapshot()
	if st.CurrentRoom == nil {
		f.env.Store.SetCurrentView(view.Groups)
		return
	}

	var b strings.Builder
	b.WriteString(`<div class="screen finished">`)
	writeHeader(&b, st.CurrentRoom.Name, "")
	b.WriteString(`<div class="screen-body">`)
	b.WriteString(`<div class="finished-banner">🏁 Room finished</div>`)

	if len(st.Participants) > 0 {
		winner := st.Participants[0]
		b.WriteString(`<div class="winner-card">`)
		b.WriteString(`<div class="winner-icon">🏆</div>`)
		b.WriteString(`<h2>` + esc(winner.Nickname) + `</h2>`)
		b.WriteString(`<p>` + pointsLabel(winner.TotalPoints) + `</p>`)
		b.WriteString(`</div>`)
	}

	b.WriteString(`<div class="leaderboard">`)
	b.WriteString(leaderboardHTML(st.Participants, st.CurrentParticipant))
	b.WriteString(`</div>`)

	b.WriteString(`<button class="primary" data-action="finished.exit">Back to group</button>`)
	b.WriteString(`</div></div>`)
	f.env.show(view.Finished, b.String())

	// Results opened from a stale path may arrive without standings.
	if len(st.Participants) == 0 {
		gen := f.gen
		roomID := st.CurrentRoom.ID
		var participants []models.Participant
		f.env.async(func(ctx context.Context) error {
			var err error
			participants, err = f.env.Backend.ParticipantsForRoom(ctx, roomID)
			return err
		}, func(err error) {
			if f.gen != gen {
				return
			}
			if err != nil {
				f.env.logf("ROOMS: Results load failed for %s: %v", roomID, err)
				return
			}
			if len(participants) > 0 {
				f.env.Store.SetParticipants(participants)
			}
		})
	}
}

func (f *Finished) Cleanup() {
	f.gen++
}

func (f *Finished) handle(op string, values map[string]string) {
	if op != "exit" {
		return
	}
	st := f.env.Store.Snapshot()
	target := view.Groups
	if st.CurrentGroup != nil {
		target = view.GroupDetail
	}

	// Drop the room state on the way out so stale standings never
	// leak into the next room. The view change rides the same batch,
	// so the room fields never notify while this screen is current.
	f.env.Store.BeginBatch()
	f.env.Store.SetRoomState(nil, nil)
	f.env.Store.SetCurrentParticipant(nil)
	f.env.Store.SetParticipants(nil)
	f.env.Store.SetCurrentView(target)
	f.env.Store.EndBatch()
}
