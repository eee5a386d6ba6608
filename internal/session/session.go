// Package session ties one websocket connection to its own state
// store, dispatcher and screens. All screen code runs on the session's
// event loop goroutine; the read and write pumps are the only other
// goroutines touching the connection.
package session

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/Shaeskiu/drinkinauers/internal/backend"
	"github.com/Shaeskiu/drinkinauers/internal/dispatch"
	"github.com/Shaeskiu/drinkinauers/internal/localstore"
	"github.com/Shaeskiu/drinkinauers/internal/state"
	"github.com/Shaeskiu/drinkinauers/internal/view"
	"github.com/Shaeskiu/drinkinauers/internal/views"
	"github.com/Shaeskiu/drinkinauers/internal/widgets"
	"github.com/Shaeskiu/drinkinauers/internal/wire"
)

// Session owns everything scoped to one connected client.
type Session struct {
	conn        *websocket.Conn
	send        chan any
	tasks       chan func()
	done        chan struct{}
	idleTimeout time.Duration
	store       *state.Store
	screens     *views.Screens
	confirm     *widgets.Confirmer
	logf        func(format string, args ...any)
}

// New builds a session around an upgraded connection. keys is the
// client's persisted key-value state, looked up by its cookie id. An
// idleTimeout of zero disables idle disconnects.
func New(conn *websocket.Conn, keys localstore.KV, svc *backend.Service, idleTimeout time.Duration, logf func(format string, args ...any)) *Session {
	s := &Session{
		conn:        conn,
		send:        make(chan any, 32),
		tasks:       make(chan func(), 64),
		done:        make(chan struct{}),
		idleTimeout: idleTimeout,
		logf:        logf,
	}

	s.store = state.New(keys)
	s.confirm = widgets.NewConfirmer(s)
	env := &views.Env{
		Store:   s.store,
		Backend: svc,
		Out:     s,
		Toast:   widgets.NewNotifier(s),
		Confirm: s.confirm,
		Post:    s.post,
		Logf:    logf,
	}
	s.screens = views.NewScreens(env)

	d := dispatch.New()
	s.screens.RegisterAll(d)

	// Restore before subscribing so the replayed state does not fire
	// renders; the first render comes from the initial navigation.
	s.store.LoadPersisted()
	s.store.Subscribe(d.Dispatch)

	return s
}

// Push queues an outbound message. A client that cannot drain its
// buffer loses messages rather than stalling the loop.
func (s *Session) Push(msg any) {
	select {
	case s.send <- msg:
	default:
		s.logf("WS: Send buffer full, dropping message")
	}
}

func (s *Session) post(task func()) {
	select {
	case s.tasks <- task:
	case <-s.done:
	}
}

// Run services the session until the client disconnects.
func (s *Session) Run() {
	go s.loop()
	go s.writePump()

	s.post(func() {
		if s.store.Snapshot().CurrentUser != nil {
			s.store.SetCurrentView(view.Groups)
			return
		}
		s.store.SetCurrentView(view.Login)
	})

	s.readPump()
}

func (s *Session) loop() {
	defer close(s.send)
	for {
		select {
		case <-s.done:
			s.confirm.CancelAll()
			return
		case task := <-s.tasks:
			task()
		}
	}
}

func (s *Session) readPump() {
	defer func() {
		close(s.done)
		_ = s.conn.Close()
	}()

	for {
		if s.idleTimeout > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		}
		var msg wire.ClientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "action":
			action, values := msg.Action, msg.Values
			if values == nil {
				values = map[string]string{}
			}
			s.post(func() { s.screens.HandleAction(action, values) })
		case "confirm_result":
			id, accepted := msg.ConfirmID, msg.Accepted
			s.post(func() { s.confirm.Resolve(id, accepted) })
		default:
			// ignore unknown types
		}
	}
}

func (s *Session) writePump() {
	defer s.conn.Close()

	for msg := range s.send {
		if err := s.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
