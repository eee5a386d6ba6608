package state

import (
	"encoding/json"
	"testing"

	"github.com/Shaeskiu/drinkinauers/internal/localstore"
	"github.com/Shaeskiu/drinkinauers/internal/models"
	"github.com/Shaeskiu/drinkinauers/internal/view"
)

func newTestStore() (*Store, *localstore.Memory) {
	keys := localstore.NewMemory()
	return New(keys), keys
}

func countNotifications(s *Store) *int {
	n := 0
	s.Subscribe(func(AppState) { n++ })
	return &n
}

func TestSettersNotifyOnce(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Store)
	}{
		{"current view", func(s *Store) { s.SetCurrentView(view.Login) }},
		{"current user", func(s *Store) { s.SetCurrentUser(&models.User{ID: "u1"}) }},
		{"current group", func(s *Store) { s.SetCurrentGroup(&models.Group{ID: "g1"}) }},
		{"current room", func(s *Store) { s.SetCurrentRoom(&models.Room{ID: "r1"}) }},
		{"participant", func(s *Store) { s.SetCurrentParticipant(&models.Participant{ID: "p1"}) }},
		{"admin token", func(s *Store) { s.SetAdminToken("tok") }},
		{"drink types", func(s *Store) { s.SetDrinkTypes([]models.DrinkType{{ID: "d1"}}) }},
		{"participants", func(s *Store) { s.SetParticipants([]models.Participant{{ID: "p1"}}) }},
		{"room state", func(s *Store) { s.SetRoomState(&models.Room{ID: "r1"}, nil) }},
		{"reset", func(s *Store) { s.Reset() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore()
			n := countNotifications(s)
			tt.mutate(s)
			if *n != 1 {
				t.Fatalf("got %d notifications, want 1", *n)
			}
		})
	}
}

func TestBatchCoalescesNotifications(t *testing.T) {
	s, _ := newTestStore()
	n := countNotifications(s)

	s.BeginBatch()
	s.SetCurrentRoom(&models.Room{ID: "r1"})
	s.SetDrinkTypes([]models.DrinkType{{ID: "d1"}})
	s.SetParticipants([]models.Participant{{ID: "p1"}})
	if *n != 0 {
		t.Fatalf("notified inside batch: %d", *n)
	}
	s.EndBatch()

	if *n != 1 {
		t.Fatalf("got %d notifications after batch, want 1", *n)
	}
}

func TestNestedBatchesFlatten(t *testing.T) {
	s, _ := newTestStore()
	n := countNotifications(s)

	s.BeginBatch()
	s.SetCurrentRoom(&models.Room{ID: "r1"})
	s.BeginBatch()
	s.SetDrinkTypes([]models.DrinkType{{ID: "d1"}})
	s.EndBatch()
	if *n != 0 {
		t.Fatalf("inner EndBatch notified at depth > 0")
	}
	s.EndBatch()

	if *n != 1 {
		t.Fatalf("got %d notifications, want 1", *n)
	}
}

func TestEmptyBatchDoesNotNotify(t *testing.T) {
	s, _ := newTestStore()
	n := countNotifications(s)

	s.BeginBatch()
	s.EndBatch()

	if *n != 0 {
		t.Fatalf("empty batch fired %d notifications", *n)
	}
}

func TestSetRoomStateAtomic(t *testing.T) {
	s, _ := newTestStore()
	s.SetAdminToken("tok")

	var seen []AppState
	s.Subscribe(func(st AppState) { seen = append(seen, st) })

	room := &models.Room{ID: "r1", AdminToken: "tok"}
	types := []models.DrinkType{{ID: "d1", Points: 2}}
	s.SetRoomState(room, types)

	if len(seen) != 1 {
		t.Fatalf("got %d notifications, want 1", len(seen))
	}
	st := seen[0]
	if st.CurrentRoom == nil || st.CurrentRoom.ID != "r1" {
		t.Errorf("room not visible in notification")
	}
	if len(st.DrinkTypes) != 1 {
		t.Errorf("drink types not visible in notification")
	}
	if !st.IsAdmin {
		t.Errorf("admin flag not recomputed before notification")
	}
}

func TestIsAdminConsistency(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Store)
		want   bool
	}{
		{
			"matching token and room",
			func(s *Store) {
				s.SetAdminToken("tok")
				s.SetCurrentRoom(&models.Room{ID: "r1", AdminToken: "tok"})
			},
			true,
		},
		{
			"token only",
			func(s *Store) { s.SetAdminToken("tok") },
			false,
		},
		{
			"room only",
			func(s *Store) { s.SetCurrentRoom(&models.Room{ID: "r1", AdminToken: "tok"}) },
			false,
		},
		{
			"mismatched token",
			func(s *Store) {
				s.SetAdminToken("other")
				s.SetCurrentRoom(&models.Room{ID: "r1", AdminToken: "tok"})
			},
			false,
		},
		{
			"token cleared after grant",
			func(s *Store) {
				s.SetAdminToken("tok")
				s.SetCurrentRoom(&models.Room{ID: "r1", AdminToken: "tok"})
				s.SetAdminToken("")
			},
			false,
		},
		{
			"room cleared after grant",
			func(s *Store) {
				s.SetAdminToken("tok")
				s.SetCurrentRoom(&models.Room{ID: "r1", AdminToken: "tok"})
				s.SetCurrentRoom(nil)
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore()
			tt.mutate(s)
			if got := s.Snapshot().IsAdmin; got != tt.want {
				t.Fatalf("IsAdmin = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsGroupAdminConsistency(t *testing.T) {
	s, _ := newTestStore()
	s.SetCurrentUser(&models.User{ID: "u1"})
	s.SetCurrentGroup(&models.Group{ID: "g1", CreatedBy: "u1"})
	if !s.Snapshot().IsGroupAdmin {
		t.Fatalf("creator not recognized as group admin")
	}

	s.SetCurrentUser(&models.User{ID: "u2"})
	if s.Snapshot().IsGroupAdmin {
		t.Fatalf("group admin flag survived user change")
	}
}

func TestSetUserGroupsDedup(t *testing.T) {
	base := []models.Group{{ID: "g1", Name: "one"}, {ID: "g2", Name: "two"}}

	tests := []struct {
		name       string
		next       []models.Group
		wantNotify bool
	}{
		{"identical", []models.Group{{ID: "g1"}, {ID: "g2"}}, false},
		{"reordered", []models.Group{{ID: "g2"}, {ID: "g1"}}, false},
		{"added", []models.Group{{ID: "g1"}, {ID: "g2"}, {ID: "g3"}}, true},
		{"removed", []models.Group{{ID: "g1"}}, true},
		{"swapped id", []models.Group{{ID: "g1"}, {ID: "g9"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore()
			s.SetUserGroups(base)
			n := countNotifications(s)

			s.SetUserGroups(tt.next)
			if got := *n > 0; got != tt.wantNotify {
				t.Fatalf("notified = %v, want %v", got, tt.wantNotify)
			}
			if len(s.Snapshot().UserGroups) != len(tt.next) {
				t.Fatalf("slice not stored")
			}
		})
	}
}

func TestUpdateParticipantsSilently(t *testing.T) {
	s, _ := newTestStore()
	n := countNotifications(s)

	s.UpdateParticipantsSilently([]models.Participant{{ID: "p1", TotalPoints: 4}})

	if *n != 0 {
		t.Fatalf("silent update fired %d notifications", *n)
	}
	got := s.Snapshot().Participants
	if len(got) != 1 || got[0].TotalPoints != 4 {
		t.Fatalf("silent update not visible in snapshot: %+v", got)
	}
}

func TestPersistedKeys(t *testing.T) {
	s, keys := newTestStore()

	s.SetCurrentUser(&models.User{ID: "u1", Email: "a@b.c"})
	s.SetAdminToken("tok")

	raw, ok := keys.Get(localstore.KeyCurrentUser)
	if !ok {
		t.Fatalf("user not persisted")
	}
	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil || u.ID != "u1" {
		t.Fatalf("persisted user unreadable: %v", err)
	}
	if tok, _ := keys.Get(localstore.KeyAdminToken); tok != "tok" {
		t.Fatalf("token not persisted")
	}

	s.SetCurrentUser(nil)
	if _, ok := keys.Get(localstore.KeyCurrentUser); ok {
		t.Fatalf("clearing user left persisted key")
	}
	s.SetAdminToken("")
	if _, ok := keys.Get(localstore.KeyAdminToken); ok {
		t.Fatalf("clearing token left persisted key")
	}
}

func TestLoadPersisted(t *testing.T) {
	keys := localstore.NewMemory()
	keys.Set(localstore.KeyCurrentUser, `{"id":"u1","email":"a@b.c"}`)
	keys.Set(localstore.KeyAdminToken, "tok")

	s := New(keys)
	n := countNotifications(s)
	s.LoadPersisted()

	if *n != 0 {
		t.Fatalf("LoadPersisted notified")
	}
	st := s.Snapshot()
	if st.CurrentUser == nil || st.CurrentUser.ID != "u1" {
		t.Fatalf("user not restored")
	}
	if st.AdminToken != "tok" {
		t.Fatalf("token not restored")
	}
	if st.IsAdmin {
		t.Fatalf("admin flag set without a room")
	}
}

func TestLoadPersistedMalformedUser(t *testing.T) {
	keys := localstore.NewMemory()
	keys.Set(localstore.KeyCurrentUser, "{not json")

	s := New(keys)
	s.LoadPersisted()

	if s.Snapshot().CurrentUser != nil {
		t.Fatalf("malformed saved user should read as signed out")
	}
}

func TestReset(t *testing.T) {
	s, keys := newTestStore()
	s.SetCurrentUser(&models.User{ID: "u1"})
	s.SetAdminToken("tok")
	s.SetCurrentView(view.Room)
	s.SetRoomState(&models.Room{ID: "r1", AdminToken: "tok"}, []models.DrinkType{{ID: "d1"}})

	n := countNotifications(s)
	s.Reset()

	if *n != 1 {
		t.Fatalf("reset fired %d notifications, want 1", *n)
	}
	st := s.Snapshot()
	if st.CurrentUser != nil || st.CurrentRoom != nil || st.AdminToken != "" ||
		st.CurrentView != view.Home || st.IsAdmin || len(st.DrinkTypes) != 0 {
		t.Fatalf("state not restored to defaults: %+v", st)
	}
	if _, ok := keys.Get(localstore.KeyCurrentUser); ok {
		t.Fatalf("persisted user survived reset")
	}
	if _, ok := keys.Get(localstore.KeyAdminToken); ok {
		t.Fatalf("persisted token survived reset")
	}
}

func TestUnsubscribe(t *testing.T) {
	s, _ := newTestStore()
	n := 0
	unsub := s.Subscribe(func(AppState) { n++ })

	s.SetCurrentView(view.Login)
	unsub()
	s.SetCurrentView(view.Groups)

	if n != 1 {
		t.Fatalf("listener ran %d times after unsubscribe, want 1", n)
	}
}
