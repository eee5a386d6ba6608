// Package dispatch routes state-change notifications to screen
// renders. It is the single store subscriber; every full repaint goes
// through here, and the suppression rules below keep self-managed
// screens from re-rendering on their own state writes.
package dispatch

import (
	"github.com/Shaeskiu/drinkinauers/internal/state"
	"github.com/Shaeskiu/drinkinauers/internal/view"
)

// Dispatcher decides, per notification, whether to repaint. Not safe
// for concurrent use; it runs on the session's event loop.
type Dispatcher struct {
	screens map[view.View]view.Renderer

	last        view.View
	hasRendered bool
	rendering   bool
}

func New() *Dispatcher {
	return &Dispatcher{screens: make(map[view.View]view.Renderer)}
}

// Register binds a screen to its identifier. Later registrations for
// the same identifier replace earlier ones.
func (d *Dispatcher) Register(v view.View, r view.Renderer) {
	d.screens[v] = r
}

// Dispatch is the store listener. Suppression rules, in order:
// an unchanged view is skipped while a render is in flight, and the
// room screen is skipped on any unchanged-view notification since it
// manages its own partial redraws. A changed view always renders,
// even re-entrantly, so navigation during a render works.
func (d *Dispatcher) Dispatch(st state.AppState) {
	viewChanged := !d.hasRendered || d.last != st.CurrentView

	if !viewChanged {
		if d.rendering {
			return
		}
		if st.CurrentView == view.Room {
			return
		}
	}

	d.rendering = true

	prev, hadPrev := d.last, d.hasRendered
	if hadPrev && prev != st.CurrentView {
		if c, ok := d.screens[prev].(view.Cleaner); ok {
			c.Cleanup()
		}
	}

	d.last = st.CurrentView
	d.hasRendered = true

	target, ok := d.screens[st.CurrentView]
	if !ok {
		target = d.screens[view.Home]
	}
	if target != nil {
		target.Render()
	}

	// One-shot post-entry hook, only on a fresh transition into the
	// screen, never on repeat notifications. A render that redirected
	// away leaves d.last pointing elsewhere and skips the hook.
	if (!hadPrev || prev != st.CurrentView) && ok && d.last == st.CurrentView {
		if e, isEntrant := target.(view.Entrant); isEntrant {
			e.EnterHook()
		}
	}

	// The in-flight flag commits synchronously with the render rather
	// than on a deferred tick.
	d.rendering = false
}
