package backend

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"strings"
)

const (
	codeLetters  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	tokenLetters = "abcdefghijklmnopqrstuvwxyz0123456789"

	codeLength  = 6
	tokenLength = 24
)

func randomString(letters string, length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	out := make([]byte, length)
	for i := range out {
		out[i] = letters[int(buf[i])%len(letters)]
	}
	return string(out)
}

// NewAdminToken returns a fresh room admin credential. Tokens are
// never reused across rooms, so no collision check is needed.
func NewAdminToken() string {
	return randomString(tokenLetters, tokenLength)
}

// NewGroupCode generates a 6-character share code that no existing
// group uses.
func (s *Service) NewGroupCode(ctx context.Context) (string, error) {
	return s.uniqueCode(ctx, "SELECT 1 FROM groups WHERE code = ?")
}

// NewRoomCode generates a 6-character join code that no existing room
// uses.
func (s *Service) NewRoomCode(ctx context.Context) (string, error) {
	return s.uniqueCode(ctx, "SELECT 1 FROM rooms WHERE code = ?")
}

func (s *Service) uniqueCode(ctx context.Context, query string) (string, error) {
	for {
		code := randomString(codeLetters, codeLength)
		var found int
		err := s.db.QueryRowContext(ctx, query, code).Scan(&found)
		if err == sql.ErrNoRows {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("check code: %w", err)
		}
		// Taken; roll again.
	}
}

// UniqueNickname returns base when it is free in the group, otherwise
// base with a numeric suffix.
func (s *Service) UniqueNickname(ctx context.Context, groupID, base string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "player"
	}
	nickname := base
	for i := 2; ; i++ {
		taken, err := s.NicknameTaken(ctx, groupID, nickname, "")
		if err != nil {
			return "", err
		}
		if !taken {
			return nickname, nil
		}
		nickname = fmt.Sprintf("%s%d", base, i)
	}
}
