package views

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Shaeskiu/drinkinauers/internal/backend"
	"github.com/Shaeskiu/drinkinauers/internal/dispatch"
	"github.com/Shaeskiu/drinkinauers/internal/localstore"
	"github.com/Shaeskiu/drinkinauers/internal/models"
	"github.com/Shaeskiu/drinkinauers/internal/state"
	"github.com/Shaeskiu/drinkinauers/internal/view"
	"github.com/Shaeskiu/drinkinauers/internal/wire"
	"github.com/Shaeskiu/drinkinauers/internal/widgets"
)

// capture records every pushed message in order.
type capture struct {
	messages []any
}

func (c *capture) Push(msg any) {
	c.messages = append(c.messages, msg)
}

func (c *capture) renders() []wire.RenderMessage {
	var out []wire.RenderMessage
	for _, m := range c.messages {
		if r, ok := m.(wire.RenderMessage); ok {
			out = append(out, r)
		}
	}
	return out
}

func (c *capture) fragments() []wire.FragmentMessage {
	var out []wire.FragmentMessage
	for _, m := range c.messages {
		if f, ok := m.(wire.FragmentMessage); ok {
			out = append(out, f)
		}
	}
	return out
}

func (c *capture) toasts() []wire.ToastMessage {
	var out []wire.ToastMessage
	for _, m := range c.messages {
		if t, ok := m.(wire.ToastMessage); ok {
			out = append(out, t)
		}
	}
	return out
}

func (c *capture) lastRender(t *testing.T) wire.RenderMessage {
	t.Helper()
	rs := c.renders()
	if len(rs) == 0 {
		t.Fatal("no render messages pushed")
	}
	return rs[len(rs)-1]
}

// harness wires a full session minus the websocket: real store, real
// dispatcher, real sqlite backend, and a task queue the test pumps by
// hand.
type harness struct {
	t       *testing.T
	store   *state.Store
	svc     *backend.Service
	out     *capture
	screens *Screens
	tasks   chan func()
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	svc, err := backend.Open(":memory:")
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	out := &capture{}
	store := state.New(localstore.NewMemory())
	tasks := make(chan func(), 64)
	env := &Env{
		Store:   store,
		Backend: svc,
		Out:     out,
		Toast:   widgets.NewNotifier(out),
		Confirm: widgets.NewConfirmer(out),
		Post:    func(task func()) { tasks <- task },
	}
	screens := NewScreens(env)
	disp := dispatch.New()
	screens.RegisterAll(disp)
	store.Subscribe(disp.Dispatch)

	return &harness{t: t, store: store, svc: svc, out: out, screens: screens, tasks: tasks}
}

// pump runs one queued continuation, failing the test if none lands.
func (h *harness) pump() {
	h.t.Helper()
	select {
	case task := <-h.tasks:
		task()
	case <-time.After(5 * time.Second):
		h.t.Fatal("no task arrived on the loop")
	}
}

// drain runs queued continuations until the queue stays empty.
func (h *harness) drain() {
	for {
		select {
		case task := <-h.tasks:
			task()
		case <-time.After(500 * time.Millisecond):
			return
		}
	}
}

func (h *harness) action(name string, values map[string]string) {
	if values == nil {
		values = map[string]string{}
	}
	h.screens.HandleAction(name, values)
}

// seed creates a signed-in user with a group, an active room, drink
// types and a participant row, and loads the matching client state.
type seeded struct {
	user        *models.User
	group       *models.Group
	room        *models.Room
	drinkTypes  []models.DrinkType
	participant *models.Participant
	adminToken  string
}

func (h *harness) seed() *seeded {
	h.t.Helper()
	ctx := context.Background()

	user, err := h.svc.CreateUser(ctx, "ana@example.com", "secret", "ana")
	if err != nil {
		h.t.Fatalf("create user: %v", err)
	}
	group, err := h.svc.CreateGroup(ctx, "Friday Crew", "ABC123", user.ID)
	if err != nil {
		h.t.Fatalf("create group: %v", err)
	}
	if _, err := h.svc.AddMember(ctx, group.ID, user.ID, "ana"); err != nil {
		h.t.Fatalf("add member: %v", err)
	}
	token := backend.NewAdminToken()
	room, err := h.svc.CreateRoom(ctx, "Kitchen", "ROOM01", token, group.ID)
	if err != nil {
		h.t.Fatalf("create room: %v", err)
	}
	beer, err := h.svc.CreateDrinkType(ctx, room.ID, "Beer", 1, "🍺")
	if err != nil {
		h.t.Fatalf("create drink type: %v", err)
	}
	shot, err := h.svc.CreateDrinkType(ctx, room.ID, "Shot", 3, "🥃")
	if err != nil {
		h.t.Fatalf("create drink type: %v", err)
	}
	participant, err := h.svc.AddParticipant(ctx, room.ID, user.ID, "ana")
	if err != nil {
		h.t.Fatalf("add participant: %v", err)
	}
	return &seeded{
		user:        user,
		group:       group,
		room:        room,
		drinkTypes:  []models.DrinkType{*beer, *shot},
		participant: participant,
		adminToken:  token,
	}
}

func (h *harness) enterRoom(s *seeded) {
	h.t.Helper()
	h.store.SetCurrentUser(s.user)
	h.store.SetCurrentGroup(s.group)
	h.store.BeginBatch()
	h.store.SetAdminToken(s.adminToken)
	h.store.SetRoomState(s.room, s.drinkTypes)
	h.store.SetCurrentParticipant(s.participant)
	h.store.EndBatch()
	h.store.SetCurrentView(view.Room)
	h.drain()
}

func TestLoginFailureRedrawsWithError(t *testing.T) {
	h := newHarness(t)
	h.store.SetCurrentView(view.Login)

	h.action("login.submit", map[string]string{
		"email":    "nobody@example.com",
		"password": "wrong",
	})
	h.pump()

	last := h.out.lastRender(t)
	if last.View != "login" {
		t.Fatalf("expected login render, got %q", last.View)
	}
	if !strings.Contains(last.HTML, "Incorrect email or password") {
		t.Error("expected the error banner in the login page")
	}
	if h.store.Snapshot().CurrentUser != nil {
		t.Error("failed sign-in must not set a user")
	}
}

func TestLoginSuccessNavigatesToGroups(t *testing.T) {
	h := newHarness(t)
	h.seed()
	h.store.SetCurrentView(view.Login)

	h.action("login.submit", map[string]string{
		"email":    "ana@example.com",
		"password": "secret",
	})
	h.pump()

	st := h.store.Snapshot()
	if st.CurrentUser == nil || st.CurrentUser.Email != "ana@example.com" {
		t.Fatalf("expected signed-in user, got %+v", st.CurrentUser)
	}
	if st.CurrentView != view.Groups {
		t.Fatalf("expected groups view, got %v", st.CurrentView)
	}
	if h.out.lastRender(t).View != "groups" {
		t.Errorf("expected a groups page push, got %q", h.out.lastRender(t).View)
	}
}

func TestRoomRenderWithoutRoomRedirects(t *testing.T) {
	h := newHarness(t)
	s := h.seed()
	h.store.SetCurrentUser(s.user)
	h.store.SetCurrentGroup(s.group)

	h.store.SetCurrentView(view.Room)
	h.drain()

	if got := h.store.Snapshot().CurrentView; got != view.GroupDetail {
		t.Fatalf("room without state should land on group detail, got %v", got)
	}
}

func TestRoomEntryLoadsLeaderboardFragment(t *testing.T) {
	h := newHarness(t)
	s := h.seed()
	h.enterRoom(s)

	frags := h.out.fragments()
	if len(frags) == 0 {
		t.Fatal("expected a leaderboard fragment after room entry")
	}
	last := frags[len(frags)-1]
	if last.Target != wire.TargetLeaderboard {
		t.Fatalf("fragment target = %q, want %q", last.Target, wire.TargetLeaderboard)
	}
	if !strings.Contains(last.HTML, "ana") {
		t.Error("leaderboard fragment should list the participant")
	}
}

func TestDrinkUpdatesFragmentWithoutFullRender(t *testing.T) {
	h := newHarness(t)
	s := h.seed()
	h.enterRoom(s)

	rendersBefore := len(h.out.renders())
	h.action("room.drink", map[string]string{"drink_type_id": s.drinkTypes[1].ID})
	h.pump()

	if got := len(h.out.renders()); got != rendersBefore {
		t.Errorf("a drink must not cause a full render: %d -> %d", rendersBefore, got)
	}
	frags := h.out.fragments()
	if len(frags) == 0 {
		t.Fatal("expected a leaderboard fragment after a drink")
	}
	if !strings.Contains(frags[len(frags)-1].HTML, "3 pts") {
		t.Error("fragment should show the new score")
	}
	st := h.store.Snapshot()
	if st.CurrentParticipant == nil || st.CurrentParticipant.TotalPoints != 3 {
		t.Errorf("current participant not refreshed: %+v", st.CurrentParticipant)
	}
}

func TestEndRoomMovesToFinished(t *testing.T) {
	h := newHarness(t)
	s := h.seed()
	h.enterRoom(s)

	h.action("room.end", nil)
	var confirmID string
	for _, m := range h.out.messages {
		if c, ok := m.(wire.ConfirmMessage); ok {
			confirmID = c.ID
		}
	}
	if confirmID == "" {
		t.Fatal("expected a confirm prompt before ending the room")
	}
	h.screens.Room.env.Confirm.Resolve(confirmID, true)
	h.pump()
	h.drain()

	st := h.store.Snapshot()
	if st.CurrentView != view.Finished {
		t.Fatalf("expected finished view, got %v", st.CurrentView)
	}
	if st.CurrentRoom == nil || st.CurrentRoom.IsActive {
		t.Error("room should be inactive after ending")
	}
	last := h.out.lastRender(t)
	if last.View != "finished" || !strings.Contains(last.HTML, "Room finished") {
		t.Errorf("expected the results page, got view %q", last.View)
	}
}

func TestFinishedExitRepaintsOnce(t *testing.T) {
	h := newHarness(t)
	s := h.seed()
	h.enterRoom(s)

	h.store.BeginBatch()
	endedRoom := *s.room
	endedRoom.IsActive = false
	h.store.SetCurrentRoom(&endedRoom)
	h.store.UpdateParticipantsSilently([]models.Participant{*s.participant})
	h.store.EndBatch()
	h.store.SetCurrentView(view.Finished)
	h.drain()

	rendersBefore := len(h.out.renders())
	h.action("finished.exit", nil)

	renders := h.out.renders()[rendersBefore:]
	if len(renders) != 1 {
		t.Fatalf("exit should push exactly one page, got %d", len(renders))
	}
	if renders[0].View != "group-detail" {
		t.Fatalf("exit should land on group detail, got %q", renders[0].View)
	}
	st := h.store.Snapshot()
	if st.CurrentRoom != nil || st.CurrentParticipant != nil || len(st.Participants) != 0 {
		t.Error("room state should be cleared on exit")
	}
	h.drain()
}

func TestGroupsRepeatRenderSkipsReload(t *testing.T) {
	h := newHarness(t)
	s := h.seed()
	h.store.SetCurrentUser(s.user)

	h.store.SetCurrentView(view.Groups)
	h.pump() // first load lands and stores the group list
	h.drain()

	st := h.store.Snapshot()
	if len(st.UserGroups) != 1 {
		t.Fatalf("expected one group loaded, got %d", len(st.UserGroups))
	}

	// Navigate away without leaving groups: open and come back via
	// the detail screen's back action.
	h.action("groups.open", map[string]string{"group_id": s.group.ID})
	h.drain()
	if h.store.Snapshot().CurrentView != view.GroupDetail {
		t.Fatal("open should land on group detail")
	}

	h.action("group-detail.back", nil)
	// Cleanup reset the shortcut, so coming back reloads once.
	h.pump()
	h.drain()
	if h.store.Snapshot().CurrentView != view.Groups {
		t.Fatal("back should land on groups")
	}
	if got := h.out.lastRender(t).View; got != "groups" {
		t.Errorf("expected groups page, got %q", got)
	}
}

func TestJoinRoomChecksMembershipAndActivity(t *testing.T) {
	h := newHarness(t)
	s := h.seed()

	outsider, err := h.svc.CreateUser(context.Background(), "leo@example.com", "secret", "leo")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	h.store.SetCurrentUser(outsider)
	h.store.SetCurrentView(view.JoinRoom)
	h.drain()

	h.action("join-room.check", map[string]string{"code": s.room.Code})
	h.pump()
	last := h.out.lastRender(t)
	if !strings.Contains(last.HTML, "group first") {
		t.Error("a non-member should be told to join the group first")
	}

	// As a member the check succeeds and offers the existing seat.
	h.store.SetCurrentUser(s.user)
	h.store.SetCurrentView(view.JoinRoom)
	h.drain()
	h.action("join-room.check", map[string]string{"code": s.room.Code})
	h.pump()
	last = h.out.lastRender(t)
	if !strings.Contains(last.HTML, "join-room.resume") {
		t.Error("a member should see resumable seats")
	}

	h.action("join-room.resume", map[string]string{"participant_id": s.participant.ID})
	h.drain()
	st := h.store.Snapshot()
	if st.CurrentView != view.Room {
		t.Fatalf("resume should land in the room, got %v", st.CurrentView)
	}
	if st.CurrentParticipant == nil || st.CurrentParticipant.ID != s.participant.ID {
		t.Error("resume should reclaim the chosen seat")
	}
}

func TestCreateGroupFlow(t *testing.T) {
	h := newHarness(t)
	user, err := h.svc.CreateUser(context.Background(), "ana@example.com", "secret", "ana")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	h.store.SetCurrentUser(user)

	h.store.SetCurrentView(view.CreateGroup)
	h.drain() // code generation lands

	h.action("create-group.submit", map[string]string{"name": "Crew"})
	h.pump()
	h.drain()

	st := h.store.Snapshot()
	if st.CurrentView != view.GroupDetail {
		t.Fatalf("expected group detail after create, got %v", st.CurrentView)
	}
	if st.CurrentGroup == nil || st.CurrentGroup.Name != "Crew" {
		t.Fatalf("group not set: %+v", st.CurrentGroup)
	}
	if len(st.UserGroups) != 1 {
		t.Errorf("expected the new group in the cached list, got %d", len(st.UserGroups))
	}
	if m, err := h.svc.Membership(context.Background(), st.CurrentGroup.ID, user.ID); err != nil || m.Nickname == "" {
		t.Errorf("creator should be a member with a nickname, got %+v err %v", m, err)
	}
}

func TestUnknownActionIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.action("bogus.op", nil)
	h.action("room", nil)
	h.action("", nil)
	if len(h.out.toasts()) != 0 {
		t.Error("unknown actions must be dropped silently")
	}
}
