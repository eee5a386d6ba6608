package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Shaeskiu/drinkinauers/internal/backend"
	"github.com/Shaeskiu/drinkinauers/internal/localstore"
	"github.com/Shaeskiu/drinkinauers/internal/wire"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// outbound is the superset of every server message shape, enough for
// assertions without caring about the concrete type.
type outbound struct {
	Type    string `json:"type"`
	View    string `json:"view"`
	Target  string `json:"target"`
	HTML    string `json:"html"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

func newTestServer(t *testing.T, svc *backend.Service) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s := New(conn, localstore.NewMemory(), svc, 0, func(string, ...any) {})
		s.Run()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) outbound {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg outbound
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

// readUntilRender drains messages until a full-page render for the
// given view arrives.
func readUntilRender(t *testing.T, conn *websocket.Conn, view string) outbound {
	t.Helper()
	for i := 0; i < 20; i++ {
		msg := readMessage(t, conn)
		if msg.Type == "render" && msg.View == view {
			return msg
		}
	}
	t.Fatalf("no render for view %q arrived", view)
	return outbound{}
}

func TestFreshSessionLandsOnLogin(t *testing.T) {
	svc, err := backend.Open(":memory:")
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	srv := newTestServer(t, svc)
	conn := dial(t, srv)

	msg := readUntilRender(t, conn, "login")
	if !strings.Contains(msg.HTML, "login.submit") {
		t.Error("login page should carry the submit action")
	}
}

func TestSignInOverTheWire(t *testing.T) {
	svc, err := backend.Open(":memory:")
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	if _, err := svc.CreateUser(context.Background(), "ana@example.com", "secret", "ana"); err != nil {
		t.Fatalf("create user: %v", err)
	}

	srv := newTestServer(t, svc)
	conn := dial(t, srv)
	readUntilRender(t, conn, "login")

	err = conn.WriteJSON(wire.ClientMessage{
		Type:   "action",
		Action: "login.submit",
		Values: map[string]string{"email": "ana@example.com", "password": "secret"},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	msg := readUntilRender(t, conn, "groups")
	if !strings.Contains(msg.HTML, "My Groups") {
		t.Error("expected the groups page after sign-in")
	}
}

func TestBadCredentialsStayOnLogin(t *testing.T) {
	svc, err := backend.Open(":memory:")
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	srv := newTestServer(t, svc)
	conn := dial(t, srv)
	readUntilRender(t, conn, "login")

	err = conn.WriteJSON(wire.ClientMessage{
		Type:   "action",
		Action: "login.submit",
		Values: map[string]string{"email": "ana@example.com", "password": "nope"},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	msg := readUntilRender(t, conn, "login")
	if !strings.Contains(msg.HTML, "Incorrect email or password") {
		t.Error("expected the error banner on the login page")
	}
}

func TestUnknownMessageTypesIgnored(t *testing.T) {
	svc, err := backend.Open(":memory:")
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	srv := newTestServer(t, svc)
	conn := dial(t, srv)
	readUntilRender(t, conn, "login")

	if err := conn.WriteJSON(map[string]string{"type": "bogus"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	// The connection stays usable afterwards.
	err = conn.WriteJSON(wire.ClientMessage{
		Type:   "action",
		Action: "login.submit",
		Values: map[string]string{"email": "", "password": ""},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	msg := readUntilRender(t, conn, "login")
	if !strings.Contains(msg.HTML, "Enter your email and password") {
		t.Error("expected the validation message")
	}
}
