// Package view defines the screen identifiers and the lifecycle
// contract screen modules implement.
package view

// View identifies one screen. The set is closed; the dispatcher treats
// anything else as Home.
type View int

const (
	Home View = iota
	Login
	Groups
	CreateGroup
	JoinGroup
	GroupDetail
	CreateRoom
	JoinRoom
	Room
	Finished
)

func (v View) String() string {
	switch v {
	case Home:
		return "home"
	case Login:
		return "login"
	case Groups:
		return "groups"
	case CreateGroup:
		return "create-group"
	case JoinGroup:
		return "join-group"
	case GroupDetail:
		return "group-detail"
	case CreateRoom:
		return "create-room"
	case JoinRoom:
		return "join-room"
	case Room:
		return "room"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Renderer draws a full screen. Render must be idempotent: a screen
// whose preconditions are unmet redirects by setting the current view
// and draws nothing.
type Renderer interface {
	Render()
}

// Cleaner is implemented by screens that hold resources or flags that
// must be dropped when navigation leaves them.
type Cleaner interface {
	Cleanup()
}

// Entrant is implemented by screens needing a one-shot hook after the
// dispatcher freshly enters them, outside the render itself.
type Entrant interface {
	EnterHook()
}
