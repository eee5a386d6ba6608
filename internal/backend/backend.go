// Package backend is the relational data service behind the screens:
// accounts, groups, rooms, drink catalogs, participants, and the
// drink-event ledger. Point totals are maintained by database
// triggers; nothing in this package or its callers adds points up.
package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/Shaeskiu/drinkinauers/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotFound           = errors.New("not found")
	ErrNotGroupAdmin      = errors.New("only the group creator may do that")
	ErrNotRoomAdmin       = errors.New("admin token does not match")
	ErrRoomFinished       = errors.New("room is not active")
)

// Service wraps the sqlite database shared by all sessions.
type Service struct {
	db *sql.DB
}

// Open connects to the database at dsn (":memory:" works for tests)
// and applies pending migrations.
func Open(dsn string) (*Service, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// The modernc driver serializes access per connection; a single
	// connection avoids table-lock errors under concurrent sessions.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Service{db: db}, nil
}

func (s *Service) Close() error {
	return s.db.Close()
}

// ---- users ----

// CreateUser registers an account with a bcrypt password hash.
func (s *Service) CreateUser(ctx context.Context, email, password, displayName string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		ID:          uuid.NewString(),
		Email:       strings.ToLower(strings.TrimSpace(email)),
		DisplayName: displayName,
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, display_name, created_at) VALUES (?, ?, ?, ?, ?)",
		u.ID, u.Email, string(hash), u.DisplayName, time.Now().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// SignIn checks the password and returns the account. Unknown email
// and wrong password both come back as ErrInvalidCredentials.
func (s *Service) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	var u models.User
	var hash string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, display_name FROM users WHERE email = ?",
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&u.ID, &u.Email, &hash, &u.DisplayName)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// ---- groups ----

func (s *Service) CreateGroup(ctx context.Context, name, code, createdBy string) (*models.Group, error) {
	g := &models.Group{
		ID:        uuid.NewString(),
		Name:      name,
		Code:      code,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO groups (id, name, code, created_by, created_at) VALUES (?, ?, ?, ?, ?)",
		g.ID, g.Name, g.Code, g.CreatedBy, g.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}
	return g, nil
}

func (s *Service) GroupByCode(ctx context.Context, code string) (*models.Group, error) {
	return s.scanGroup(s.db.QueryRowContext(ctx,
		"SELECT id, name, code, created_by, created_at FROM groups WHERE code = ?",
		strings.ToUpper(strings.TrimSpace(code)),
	))
}

func (s *Service) GroupByID(ctx context.Context, id string) (*models.Group, error) {
	return s.scanGroup(s.db.QueryRowContext(ctx,
		"SELECT id, name, code, created_by, created_at FROM groups WHERE id = ?", id,
	))
}

func (s *Service) scanGroup(row *sql.Row) (*models.Group, error) {
	var g models.Group
	var created int64
	err := row.Scan(&g.ID, &g.Name, &g.Code, &g.CreatedBy, &created)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select group: %w", err)
	}
	g.CreatedAt = time.Unix(created, 0)
	return &g, nil
}

// GroupsForUser lists the groups the user belongs to, oldest first.
func (s *Service) GroupsForUser(ctx context.Context, userID string) ([]models.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT g.id, g.name, g.code, g.created_by, g.created_at
FROM groups g
JOIN group_members m ON m.group_id = g.id
WHERE m.user_id = ?
ORDER BY g.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("select groups: %w", err)
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		var g models.Group
		var created int64
		if err := rows.Scan(&g.ID, &g.Name, &g.Code, &g.CreatedBy, &created); err != nil {
			return nil, err
		}
		g.CreatedAt = time.Unix(created, 0)
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *Service) AddMember(ctx context.Context, groupID, userID, nickname string) (*models.GroupMember, error) {
	m := &models.GroupMember{
		ID:       uuid.NewString(),
		GroupID:  groupID,
		UserID:   userID,
		Nickname: nickname,
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO group_members (id, group_id, user_id, nickname) VALUES (?, ?, ?, ?)",
		m.ID, m.GroupID, m.UserID, m.Nickname,
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	return m, nil
}

// Membership returns the member row for user in group, or ErrNotFound.
func (s *Service) Membership(ctx context.Context, groupID, userID string) (*models.GroupMember, error) {
	var m models.GroupMember
	var nickname sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, group_id, user_id, nickname FROM group_members WHERE group_id = ? AND user_id = ?",
		groupID, userID,
	).Scan(&m.ID, &m.GroupID, &m.UserID, &nickname)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select member: %w", err)
	}
	m.Nickname = nickname.String
	return &m, nil
}

// UpdateGroupNickname sets the member's nickname; an empty string
// clears it back to NULL.
func (s *Service) UpdateGroupNickname(ctx context.Context, groupID, userID, nickname string) error {
	var value any
	if trimmed := strings.TrimSpace(nickname); trimmed != "" {
		value = trimmed
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE group_members SET nickname = ? WHERE group_id = ? AND user_id = ?",
		value, groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("update nickname: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// NicknameTaken reports whether another member of the group already
// uses this nickname.
func (s *Service) NicknameTaken(ctx context.Context, groupID, nickname, excludeUserID string) (bool, error) {
	var found int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM group_members WHERE group_id = ? AND nickname = ? AND user_id != ?",
		groupID, nickname, excludeUserID,
	).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check nickname: %w", err)
	}
	return true, nil
}

// GroupRanking returns the group's cross-room scores, highest first,
// with member nicknames (falling back to account display names).
func (s *Service) GroupRanking(ctx context.Context, groupID string) ([]models.GlobalScore, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT g.group_id, g.user_id, g.total_points,
       COALESCE(m.nickname, u.display_name, u.email)
FROM user_global_scores g
JOIN users u ON u.id = g.user_id
LEFT JOIN group_members m ON m.group_id = g.group_id AND m.user_id = g.user_id
WHERE g.group_id = ?
ORDER BY g.total_points DESC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("select ranking: %w", err)
	}
	defer rows.Close()

	scores := []models.GlobalScore{}
	for rows.Next() {
		var sc models.GlobalScore
		if err := rows.Scan(&sc.GroupID, &sc.UserID, &sc.TotalPoints, &sc.DisplayName); err != nil {
			return nil, err
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

// ResetGlobalRanking zeroes the group's global scores and stamps the
// reset time. Only the group creator may do this.
func (s *Service) ResetGlobalRanking(ctx context.Context, groupID, userID string) error {
	var createdBy string
	err := s.db.QueryRowContext(ctx,
		"SELECT created_by FROM groups WHERE id = ?", groupID,
	).Scan(&createdBy)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("select group: %w", err)
	}
	if createdBy != userID {
		return ErrNotGroupAdmin
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE user_global_scores SET total_points = 0 WHERE group_id = ?", groupID,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("zero scores: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE groups SET global_ranking_reset_at = ? WHERE id = ?",
		time.Now().Unix(), groupID,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("stamp reset: %w", err)
	}
	return tx.Commit()
}

// ---- rooms ----

func (s *Service) CreateRoom(ctx context.Context, name, code, adminToken, groupID string) (*models.Room, error) {
	r := &models.Room{
		ID:         uuid.NewString(),
		Code:       code,
		Name:       name,
		IsActive:   true,
		AdminToken: adminToken,
		GroupID:    groupID,
		CreatedAt:  time.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO rooms (id, code, name, is_active, admin_token, group_id, created_at) VALUES (?, ?, ?, 1, ?, ?, ?)",
		r.ID, r.Code, r.Name, r.AdminToken, r.GroupID, r.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}
	return r, nil
}

const roomColumns = "id, code, name, is_active, admin_token, group_id, created_at"

func (s *Service) RoomByID(ctx context.Context, id string) (*models.Room, error) {
	return s.scanRoom(s.db.QueryRowContext(ctx,
		"SELECT "+roomColumns+" FROM rooms WHERE id = ?", id,
	))
}

func (s *Service) RoomByCode(ctx context.Context, code string) (*models.Room, error) {
	return s.scanRoom(s.db.QueryRowContext(ctx,
		"SELECT "+roomColumns+" FROM rooms WHERE code = ?",
		strings.ToUpper(strings.TrimSpace(code)),
	))
}

func (s *Service) scanRoom(row *sql.Row) (*models.Room, error) {
	var r models.Room
	var created int64
	err := row.Scan(&r.ID, &r.Code, &r.Name, &r.IsActive, &r.AdminToken, &r.GroupID, &created)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select room: %w", err)
	}
	r.CreatedAt = time.Unix(created, 0)
	return &r, nil
}

// RoomsForGroup lists the group's rooms in one activity state, newest
// first.
func (s *Service) RoomsForGroup(ctx context.Context, groupID string, active bool) ([]models.Room, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+roomColumns+" FROM rooms WHERE group_id = ? AND is_active = ? ORDER BY created_at DESC",
		groupID, active,
	)
	if err != nil {
		return nil, fmt.Errorf("select rooms: %w", err)
	}
	defer rows.Close()

	list := []models.Room{}
	for rows.Next() {
		var r models.Room
		var created int64
		if err := rows.Scan(&r.ID, &r.Code, &r.Name, &r.IsActive, &r.AdminToken, &r.GroupID, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(created, 0)
		list = append(list, r)
	}
	return list, rows.Err()
}

// EndRoom deactivates the room, but only when the caller presents the
// matching admin token. The predicate lives in the UPDATE itself so a
// stale token can never end a room.
func (s *Service) EndRoom(ctx context.Context, roomID, adminToken string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE rooms SET is_active = 0 WHERE id = ? AND admin_token = ? AND is_active = 1",
		roomID, adminToken,
	)
	if err != nil {
		return fmt.Errorf("end room: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotRoomAdmin
	}
	return nil
}

// ---- drink types ----

func (s *Service) CreateDrinkType(ctx context.Context, roomID, name string, points int, icon string) (*models.DrinkType, error) {
	dt := &models.DrinkType{
		ID:     uuid.NewString(),
		RoomID: roomID,
		Name:   name,
		Points: points,
		Icon:   icon,
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO drink_types (id, room_id, name, points, icon) VALUES (?, ?, ?, ?, ?)",
		dt.ID, dt.RoomID, dt.Name, dt.Points, dt.Icon,
	)
	if err != nil {
		return nil, fmt.Errorf("insert drink type: %w", err)
	}
	return dt, nil
}

func (s *Service) DrinkTypesForRoom(ctx context.Context, roomID string) ([]models.DrinkType, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, room_id, name, points, icon FROM drink_types WHERE room_id = ? ORDER BY name",
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("select drink types: %w", err)
	}
	defer rows.Close()

	list := []models.DrinkType{}
	for rows.Next() {
		var dt models.DrinkType
		if err := rows.Scan(&dt.ID, &dt.RoomID, &dt.Name, &dt.Points, &dt.Icon); err != nil {
			return nil, err
		}
		list = append(list, dt)
	}
	return list, rows.Err()
}

// ---- participants ----

func (s *Service) AddParticipant(ctx context.Context, roomID, userID, nickname string) (*models.Participant, error) {
	p := &models.Participant{
		ID:       uuid.NewString(),
		RoomID:   roomID,
		UserID:   userID,
		Nickname: nickname,
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO participants (id, room_id, user_id, nickname) VALUES (?, ?, ?, ?)",
		p.ID, p.RoomID, p.UserID, p.Nickname,
	)
	if err != nil {
		return nil, fmt.Errorf("insert participant: %w", err)
	}
	return p, nil
}

// ParticipantForUser returns the user's entry in a room, or
// ErrNotFound when they have not joined it.
func (s *Service) ParticipantForUser(ctx context.Context, roomID, userID string) (*models.Participant, error) {
	var p models.Participant
	err := s.db.QueryRowContext(ctx,
		"SELECT id, room_id, user_id, nickname, total_points FROM participants WHERE room_id = ? AND user_id = ?",
		roomID, userID,
	).Scan(&p.ID, &p.RoomID, &p.UserID, &p.Nickname, &p.TotalPoints)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select participant: %w", err)
	}
	return &p, nil
}

// ParticipantsForRoom lists a room's participants, highest score
// first.
func (s *Service) ParticipantsForRoom(ctx context.Context, roomID string) ([]models.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, room_id, user_id, nickname, total_points FROM participants WHERE room_id = ? ORDER BY total_points DESC, nickname",
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("select participants: %w", err)
	}
	defer rows.Close()

	list := []models.Participant{}
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.RoomID, &p.UserID, &p.Nickname, &p.TotalPoints); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// AddDrinkEvent records one scored action. The triggers update both
// point totals; a finished room rejects the insert.
func (s *Service) AddDrinkEvent(ctx context.Context, participantID, drinkTypeID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO drink_events (id, participant_id, drink_type_id, created_at) VALUES (?, ?, ?, ?)",
		uuid.NewString(), participantID, drinkTypeID, time.Now().Unix(),
	)
	if err != nil {
		if isTriggerAbort(err, abortRoomInactive) {
			return ErrRoomFinished
		}
		return fmt.Errorf("insert drink event: %w", err)
	}
	return nil
}

// Sentinel messages raised by schema triggers. They are deliberately
// unique tokens so matching on the error text is unambiguous.
const abortRoomInactive = "DRINKINAUERS_ROOM_INACTIVE"

// isTriggerAbort reports whether err carries a RAISE(ABORT, sentinel)
// from one of the schema triggers. The driver wraps trigger aborts in
// a generic constraint error, so the sentinel in the message is the
// only stable discriminator.
func isTriggerAbort(err error, sentinel string) bool {
	return err != nil && strings.Contains(err.Error(), sentinel)
}
