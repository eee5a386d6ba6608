// Package state holds the per-session application state and its
// change-notification machinery. Every screen renders from a snapshot
// of this store, and every mutation flows through a typed setter so
// listeners observe a consistent record.
package state

import (
	"encoding/json"

	"github.com/Shaeskiu/drinkinauers/internal/localstore"
	"github.com/Shaeskiu/drinkinauers/internal/models"
	"github.com/Shaeskiu/drinkinauers/internal/view"
)

// AppState is the full session state record. Snapshot returns shallow
// copies; listeners must not mutate the slices they receive.
type AppState struct {
	CurrentView        view.View
	CurrentUser        *models.User
	CurrentGroup       *models.Group
	UserGroups         []models.Group
	CurrentRoom        *models.Room
	CurrentParticipant *models.Participant
	AdminToken         string
	DrinkTypes         []models.DrinkType
	Participants       []models.Participant
	IsAdmin            bool
	IsGroupAdmin       bool
}

// Listener receives a snapshot after each effective state change.
type Listener func(AppState)

// Store owns one session's state. It is not safe for concurrent use;
// all access must happen on the session's event loop.
type Store struct {
	state     AppState
	keys      localstore.KV
	listeners []*subscription

	batchDepth int
	pending    bool
}

type subscription struct {
	fn      Listener
	removed bool
}

// New returns a store with default state backed by the given key
// store for the two persisted values.
func New(keys localstore.KV) *Store {
	return &Store{
		state: defaultState(),
		keys:  keys,
	}
}

func defaultState() AppState {
	return AppState{
		CurrentView:  view.Home,
		UserGroups:   []models.Group{},
		DrinkTypes:   []models.DrinkType{},
		Participants: []models.Participant{},
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() AppState {
	return s.state
}

// Subscribe registers a listener and returns a function that removes
// it. Listeners run in subscription order.
func (s *Store) Subscribe(fn Listener) func() {
	sub := &subscription{fn: fn}
	s.listeners = append(s.listeners, sub)
	return func() {
		sub.removed = true
		for i, l := range s.listeners {
			if l == sub {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				break
			}
		}
	}
}

// notify fires listeners with a fresh snapshot, or records a pending
// notification when inside a batch.
func (s *Store) notify() {
	if s.batchDepth > 0 {
		s.pending = true
		return
	}
	snapshot := s.state
	for _, sub := range append([]*subscription(nil), s.listeners...) {
		if sub.removed {
			continue
		}
		sub.fn(snapshot)
	}
}

// BeginBatch suppresses notifications until the matching EndBatch.
// Batches nest; only the outermost EndBatch releases the (single)
// pending notification.
func (s *Store) BeginBatch() {
	s.batchDepth++
}

// EndBatch closes one batch level. At depth zero a single notification
// fires if any setter ran inside the batch.
func (s *Store) EndBatch() {
	if s.batchDepth == 0 {
		return
	}
	s.batchDepth--
	if s.batchDepth == 0 && s.pending {
		s.pending = false
		s.notify()
	}
}

func (s *Store) SetCurrentView(v view.View) {
	s.state.CurrentView = v
	s.notify()
}

func (s *Store) SetCurrentUser(u *models.User) {
	s.state.CurrentUser = u
	if u != nil {
		if data, err := json.Marshal(u); err == nil {
			s.keys.Set(localstore.KeyCurrentUser, string(data))
		}
	} else {
		s.keys.Remove(localstore.KeyCurrentUser)
	}
	s.recomputeGroupAdmin()
	s.notify()
}

func (s *Store) SetCurrentGroup(g *models.Group) {
	s.state.CurrentGroup = g
	s.recomputeGroupAdmin()
	s.notify()
}

// SetUserGroups skips notification when the new list holds the same
// set of group ids as the current one, regardless of order. The slice
// is stored either way so renames and other field changes are visible
// on the next snapshot.
func (s *Store) SetUserGroups(groups []models.Group) {
	changed := !sameGroupIDs(s.state.UserGroups, groups)
	s.state.UserGroups = groups
	if changed {
		s.notify()
	}
}

func sameGroupIDs(a, b []models.Group) bool {
	if len(a) != len(b) {
		return false
	}
	ids := make(map[string]bool, len(a))
	for _, g := range a {
		ids[g.ID] = true
	}
	for _, g := range b {
		if !ids[g.ID] {
			return false
		}
	}
	return true
}

func (s *Store) SetCurrentRoom(r *models.Room) {
	s.state.CurrentRoom = r
	s.recomputeAdmin()
	s.notify()
}

func (s *Store) SetCurrentParticipant(p *models.Participant) {
	s.state.CurrentParticipant = p
	s.notify()
}

func (s *Store) SetAdminToken(token string) {
	s.state.AdminToken = token
	if token != "" {
		s.keys.Set(localstore.KeyAdminToken, token)
	} else {
		s.keys.Remove(localstore.KeyAdminToken)
	}
	s.recomputeAdmin()
	s.notify()
}

func (s *Store) SetDrinkTypes(types []models.DrinkType) {
	s.state.DrinkTypes = types
	s.notify()
}

func (s *Store) SetParticipants(participants []models.Participant) {
	s.state.Participants = participants
	s.notify()
}

// UpdateParticipantsSilently replaces the participant list without
// notifying listeners. The room view uses this during leaderboard
// refreshes to avoid re-render loops; the fragment redraw happens
// outside the store.
func (s *Store) UpdateParticipantsSilently(participants []models.Participant) {
	s.state.Participants = participants
}

// SetRoomState sets the room and its drink types and recomputes the
// admin flag, all under one notification.
func (s *Store) SetRoomState(room *models.Room, drinkTypes []models.DrinkType) {
	s.BeginBatch()
	s.state.CurrentRoom = room
	s.state.DrinkTypes = drinkTypes
	s.recomputeAdmin()
	s.notify()
	s.EndBatch()
}

// recompute helpers run inside the mutating call, before listeners.

func (s *Store) recomputeAdmin() {
	room, token := s.state.CurrentRoom, s.state.AdminToken
	s.state.IsAdmin = room != nil && token != "" && room.AdminToken == token
}

func (s *Store) recomputeGroupAdmin() {
	group, user := s.state.CurrentGroup, s.state.CurrentUser
	s.state.IsGroupAdmin = group != nil && user != nil && group.CreatedBy == user.ID
}

// LoadPersisted restores the saved user and admin token without
// notifying. The admin flag stays false until a room arrives via
// SetRoomState. A malformed saved user reads as signed out.
func (s *Store) LoadPersisted() {
	if raw, ok := s.keys.Get(localstore.KeyCurrentUser); ok {
		var u models.User
		if err := json.Unmarshal([]byte(raw), &u); err == nil {
			s.state.CurrentUser = &u
		}
	}
	if token, ok := s.keys.Get(localstore.KeyAdminToken); ok {
		s.state.AdminToken = token
	}
	s.recomputeGroupAdmin()
}

// Reset restores the default state, clears both persisted keys, and
// fires a single notification. Used on logout.
func (s *Store) Reset() {
	s.state = defaultState()
	s.keys.Remove(localstore.KeyCurrentUser)
	s.keys.Remove(localstore.KeyAdminToken)
	s.notify()
}
