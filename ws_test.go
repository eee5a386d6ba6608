package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetOrSetClientID(t *testing.T) {
	goodID := strings.Repeat("ab", 16)

	tests := []struct {
		name   string
		cookie string
		reuse  bool
	}{
		{"issued id is reused", goodID, true},
		{"short id is reissued", "abcd", false},
		{"traversal id is reissued", "../../etc/passwd", false},
		{"uppercase id is reissued", strings.ToUpper(goodID), false},
		{"overlong id is reissued", goodID + "ab", false},
		{"missing cookie gets an id", "", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if test.cookie != "" {
				r.AddCookie(&http.Cookie{Name: clientCookieName, Value: test.cookie})
			}
			w := httptest.NewRecorder()

			id := getOrSetClientID(w, r)

			if !validClientID(id) {
				t.Fatalf("returned id %q is not a well-formed client id", id)
			}
			if test.reuse {
				if id != test.cookie {
					t.Errorf("expected the cookie id back, got %q", id)
				}
				if len(w.Result().Cookies()) != 0 {
					t.Error("a valid id should not be reissued")
				}
				return
			}
			if id == test.cookie {
				t.Errorf("unsafe cookie %q was accepted", test.cookie)
			}
			if len(w.Result().Cookies()) == 0 {
				t.Error("expected a fresh id cookie")
			}
		})
	}
}
