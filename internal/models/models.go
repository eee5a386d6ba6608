// Package models holds the shared data types exchanged between the
// backend service, the state store, and the view modules.
package models

import "time"

// User is an authenticated account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Group is a persistent collection of users sharing rooms and a
// cross-room global ranking.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupMember joins a user to a group under a per-group nickname.
type GroupMember struct {
	ID       string `json:"id"`
	GroupID  string `json:"group_id"`
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
}

// Room is one scored competition session.
type Room struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	IsActive   bool      `json:"is_active"`
	AdminToken string    `json:"admin_token"`
	GroupID    string    `json:"group_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// DrinkType is a room-scoped catalog entry defining the point value
// and icon for one kind of scorable action.
type DrinkType struct {
	ID     string `json:"id"`
	RoomID string `json:"room_id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
	Icon   string `json:"icon"`
}

// Participant is a user's scoring entry within one room. TotalPoints
// is maintained server-side by the drink-event triggers; the client
// never computes it.
type Participant struct {
	ID          string `json:"id"`
	RoomID      string `json:"room_id"`
	UserID      string `json:"user_id"`
	Nickname    string `json:"nickname"`
	TotalPoints int    `json:"total_points"`
}

// GlobalScore is one row of a group's cross-room ranking. DisplayName
// is resolved from the member's group nickname when available.
type GlobalScore struct {
	GroupID     string `json:"group_id"`
	UserID      string `json:"user_id"`
	TotalPoints int    `json:"total_points"`
	DisplayName string `json:"display_name"`
}
