// Модели предметной области платформы: игроки, дневники тренировок,
// сообщения, календарь, матчи. Зеркалят JSON-конверты REST API.
package models

import "time"

type Player struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Level     string    `json:"level,omitempty"`
	CoachID   string    `json:"coachId,omitempty"`
	Birthdate time.Time `json:"birthdate,omitempty"`
}

type JournalEntry struct {
	ID        string    `json:"id"`
	PlayerID  string    `json:"playerId"`
	AuthorID  string    `json:"authorId"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

type Thread struct {
	ID           string    `json:"id"`
	Subject      string    `json:"subject"`
	Participants []string  `json:"participants"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Message struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"threadId"`
	SenderID string    `json:"senderId"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sentAt"`
}

type CalendarEvent struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Kind     string    `json:"kind"` // training | match | other
	StartsAt time.Time `json:"startsAt"`
	EndsAt   time.Time `json:"endsAt"`
	Location string    `json:"location,omitempty"`
}

type Match struct {
	ID         string    `json:"id"`
	PlayerID   string    `json:"playerId"`
	OpponentID string    `json:"opponentId,omitempty"`
	Opponent   string    `json:"opponent,omitempty"`
	Score      string    `json:"score,omitempty"`
	Won        bool      `json:"won"`
	PlayedAt   time.Time `json:"playedAt"`
}

// DashboardSummary — ролевая сводка главного экрана.
type DashboardSummary struct {
	Role            Role `json:"role"`
	UpcomingEvents  int  `json:"upcomingEvents"`
	UnreadMessages  int  `json:"unreadMessages"`
	JournalEntries  int  `json:"journalEntries"`
	MatchesThisWeek int  `json:"matchesThisWeek"`
}
