// Package wire defines the JSON messages exchanged with the browser
// shell over the session websocket.
package wire

// Fragment targets the client knows how to swap in place.
const (
	TargetLeaderboard = "leaderboard"
)

// RenderMessage replaces the whole screen.
type RenderMessage struct {
	Type string `json:"type"` // "render"
	View string `json:"view"`
	HTML string `json:"html"`
}

// FragmentMessage swaps one region of the current screen without a
// full repaint.
type FragmentMessage struct {
	Type   string `json:"type"` // "fragment"
	Target string `json:"target"`
	HTML   string `json:"html"`
}

// ToastMessage shows a transient notification.
type ToastMessage struct {
	Type    string `json:"type"` // "toast"
	Level   string `json:"level"`
	Message string `json:"message"`
}

// ConfirmMessage asks the user a yes/no question. The client answers
// with a confirm_result carrying the same id.
type ConfirmMessage struct {
	Type         string `json:"type"` // "confirm"
	ID           string `json:"id"`
	Title        string `json:"title"`
	Message      string `json:"message"`
	ConfirmLabel string `json:"confirm_label,omitempty"`
	CancelLabel  string `json:"cancel_label,omitempty"`
}

// ClientMessage is everything the browser sends back.
type ClientMessage struct {
	Type      string            `json:"type"`                 // "action" | "confirm_result"
	Action    string            `json:"action,omitempty"`     // e.g. "login.submit", "room.drink"
	Values    map[string]string `json:"values,omitempty"`     // form fields and data attributes
	ConfirmID string            `json:"confirm_id,omitempty"` // confirm_result
	Accepted  bool              `json:"accepted,omitempty"`   // confirm_result
}

// Pusher queues an outbound message for the client. Implementations
// must never block the caller.
type Pusher interface {
	Push(msg any)
}
