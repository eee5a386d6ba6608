package views

import "github.com/Shaeskiu/drinkinauers/internal/view"

// Home never draws anything; it forwards to login or groups based on
// the signed-in state.
type Home struct {
	env *Env
}

func NewHome(env *Env) *Home {
	return &Home{env: env}
}

func (h *Home) Render() {
	st := h.env.Store.Snapshot()
	if st.CurrentUser == nil {
		h.env.Store.SetCurrentView(view.Login)
		return
	}
	h.env.Store.SetCurrentView(view.Groups)
}

func (h *Home) handle(op string, values map[string]string) {}
