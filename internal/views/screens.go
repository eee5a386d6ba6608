package views

import (
	"strings"

	"github.com/Shaeskiu/drinkinauers/internal/dispatch"
	"github.com/Shaeskiu/drinkinauers/internal/view"
)

// handler is what every screen implements besides view.Renderer.
type handler interface {
	handle(op string, values map[string]string)
}

// Screens bundles one instance of every screen for a session.
type Screens struct {
	Home        *Home
	Login       *Login
	Groups      *Groups
	CreateGroup *CreateGroup
	JoinGroup   *JoinGroup
	GroupDetail *GroupDetail
	CreateRoom  *CreateRoom
	JoinRoom    *JoinRoom
	Room        *Room
	Finished    *Finished

	byView map[view.View]handler
}

func NewScreens(env *Env) *Screens {
	s := &Screens{
		Home:        NewHome(env),
		Login:       NewLogin(env),
		Groups:      NewGroups(env),
		CreateGroup: NewCreateGroup(env),
		JoinGroup:   NewJoinGroup(env),
		GroupDetail: NewGroupDetail(env),
		CreateRoom:  NewCreateRoom(env),
		JoinRoom:    NewJoinRoom(env),
		Room:        NewRoom(env),
		Finished:    NewFinished(env),
	}
	s.byView = map[view.View]handler{
		view.Home:        s.Home,
		view.Login:       s.Login,
		view.Groups:      s.Groups,
		view.CreateGroup: s.CreateGroup,
		view.JoinGroup:   s.JoinGroup,
		view.GroupDetail: s.GroupDetail,
		view.CreateRoom:  s.CreateRoom,
		view.JoinRoom:    s.JoinRoom,
		view.Room:        s.Room,
		view.Finished:    s.Finished,
	}
	return s
}

// RegisterAll wires every screen into the dispatcher.
func (s *Screens) RegisterAll(d *dispatch.Dispatcher) {
	d.Register(view.Home, s.Home)
	d.Register(view.Login, s.Login)
	d.Register(view.Groups, s.Groups)
	d.Register(view.CreateGroup, s.CreateGroup)
	d.Register(view.JoinGroup, s.JoinGroup)
	d.Register(view.GroupDetail, s.GroupDetail)
	d.Register(view.CreateRoom, s.CreateRoom)
	d.Register(view.JoinRoom, s.JoinRoom)
	d.Register(view.Room, s.Room)
	d.Register(view.Finished, s.Finished)
}

// HandleAction routes a "screen.op" action string to its screen.
// Unknown screens and ops are dropped; stale buttons from a page the
// client has since navigated away from are expected, not errors.
func (s *Screens) HandleAction(action string, values map[string]string) {
	name, op, ok := strings.Cut(action, ".")
	if !ok || op == "" {
		return
	}
	for v, h := range s.byView {
		if v.String() == name {
			h.handle(op, values)
			return
		}
	}
}
