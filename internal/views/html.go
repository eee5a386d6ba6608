package views

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/Shaeskiu/drinkinauers/internal/models"
)

func esc(s string) string {
	return html.EscapeString(s)
}

// Screens emit action markup the browser shell understands: elements
// carrying data-action post that action with the element's data-*
// attributes and any sibling form fields as values.

func writeHeader(b *strings.Builder, title, backAction string) {
	b.WriteString(`<header class="screen-header">`)
	if backAction != "" {
		b.WriteString(`<button class="back-btn" data-action="` + backAction + `">&larr;</button>`)
	}
	b.WriteString(`<h1>` + esc(title) + `</h1>`)
	b.WriteString(`</header>`)
}

func writeEmptyState(b *strings.Builder, icon, text string) {
	b.WriteString(`<div class="empty-state"><div class="empty-icon">` + icon + `</div><p>` + esc(text) + `</p></div>`)
}

func rankIcon(rank int) string {
	switch rank {
	case 1:
		return "🏆"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return strconv.Itoa(rank)
	}
}

func pointsLabel(points int) string {
	if points == 1 {
		return "1 pt"
	}
	return fmt.Sprintf("%d pts", points)
}

// leaderboardHTML renders the room standings list. It is used both in
// the full room render and as the fragment pushed on silent
// participant updates.
func leaderboardHTML(participants []models.Participant, current *models.Participant) string {
	if len(participants) == 0 {
		return `<p class="empty-note">No participants yet</p>`
	}

	var b strings.Builder
	for i, p := range participants {
		cls := "leaderboard-row"
		if current != nil && p.ID == current.ID {
			cls += " me"
		}
		b.WriteString(`<div class="` + cls + `">`)
		b.WriteString(`<span class="rank">` + rankIcon(i+1) + `</span>`)
		b.WriteString(`<span class="nickname">` + esc(p.Nickname) + `</span>`)
		if current != nil && p.ID == current.ID {
			b.WriteString(`<span class="you">(you)</span>`)
		}
		b.WriteString(`<span class="points">` + pointsLabel(p.TotalPoints) + `</span>`)
		b.WriteString(`</div>`)
	}
	return b.String()
}

// rankingHTML renders a group's cross-room standings.
func rankingHTML(scores []models.GlobalScore, currentUserID string) string {
	if len(scores) == 0 {
		return `<div class="empty-state"><div class="empty-icon">📊</div><p>No ranking yet</p></div>`
	}

	var b strings.Builder
	for i, sc := range scores {
		cls := "leaderboard-row"
		if sc.UserID == currentUserID {
			cls += " me"
		}
		name := sc.DisplayName
		if name == "" {
			name = "User #" + shortID(sc.UserID)
		}
		b.WriteString(`<div class="` + cls + `">`)
		b.WriteString(`<span class="rank">` + rankIcon(i+1) + `</span>`)
		b.WriteString(`<span class="nickname">` + esc(name) + `</span>`)
		if sc.UserID == currentUserID {
			b.WriteString(`<span class="you">(you)</span>`)
		}
		b.WriteString(`<span class="points">` + pointsLabel(sc.TotalPoints) + `</span>`)
		b.WriteString(`</div>`)
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
