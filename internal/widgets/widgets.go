// Package widgets implements the toast and confirm overlays shared by
// all screens.
package widgets

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/Shaeskiu/drinkinauers/internal/wire"
)

// Toast levels.
const (
	LevelSuccess = "success"
	LevelError   = "error"
	LevelInfo    = "info"
	LevelWarning = "warning"
)

// Notifier pushes toast notifications.
type Notifier struct {
	out wire.Pusher
}

func NewNotifier(out wire.Pusher) *Notifier {
	return &Notifier{out: out}
}

func (n *Notifier) Toast(level, message string) {
	n.out.Push(wire.ToastMessage{Type: "toast", Level: level, Message: message})
}

func (n *Notifier) Success(message string) { n.Toast(LevelSuccess, message) }
func (n *Notifier) Error(message string)   { n.Toast(LevelError, message) }
func (n *Notifier) Info(message string)    { n.Toast(LevelInfo, message) }
func (n *Notifier) Warning(message string) { n.Toast(LevelWarning, message) }

// Confirmer runs yes/no prompts. Ask pushes the prompt and parks the
// callback until Resolve delivers the client's answer; callbacks run
// on whatever goroutine calls Resolve, which in practice is the
// session loop. Not safe for concurrent use.
type Confirmer struct {
	out     wire.Pusher
	pending map[string]func(accepted bool)
}

func NewConfirmer(out wire.Pusher) *Confirmer {
	return &Confirmer{
		out:     out,
		pending: make(map[string]func(bool)),
	}
}

// Ask sends a confirm prompt. fn runs exactly once, with false when
// the session closes before an answer arrives.
func (c *Confirmer) Ask(title, message string, fn func(accepted bool)) {
	id := newConfirmID()
	c.pending[id] = fn
	c.out.Push(wire.ConfirmMessage{
		Type:    "confirm",
		ID:      id,
		Title:   title,
		Message: message,
	})
}

// Resolve answers a pending prompt. Unknown or already-answered ids
// are ignored; a stale reply must not trigger anything.
func (c *Confirmer) Resolve(id string, accepted bool) {
	fn, ok := c.pending[id]
	if !ok {
		return
	}
	delete(c.pending, id)
	fn(accepted)
}

// CancelAll declines every outstanding prompt. Called on session
// close.
func (c *Confirmer) CancelAll() {
	for id, fn := range c.pending {
		delete(c.pending, id)
		fn(false)
	}
}

func newConfirmID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	return hex.EncodeToString(buf)
}
