package mockapi

import (
	"time"

	"github.com/courtline/go-courtline/internal/models"
)

// Демо-аккаунты стенда. Пароль фиксированный, чтобы логин из CLI и
// интеграционных тестов работал без подготовки.
const (
	SeedCoachEmail  = "coach@courtline.test"
	SeedPlayerEmail = "player@courtline.test"
	SeedParentEmail = "parent@courtline.test"
	SeedPassword    = "court-demo"
)

// seed наполняет стенд детерминированными демо-данными.
func (s *Server) seed() {
	coach := &models.User{
		ID:        "u-coach-1",
		Email:     SeedCoachEmail,
		Role:      models.RoleCoach,
		FirstName: "Marina",
		LastName:  "Orlova",
	}
	player := &models.User{
		ID:        "u-player-1",
		Email:     SeedPlayerEmail,
		Role:      models.RolePlayer,
		FirstName: "Egor",
		LastName:  "Laptev",
	}
	parent := &models.User{
		ID:        "u-parent-1",
		Email:     SeedParentEmail,
		Role:      models.RoleParent,
		FirstName: "Olga",
		LastName:  "Lapteva",
	}

	for _, u := range []*models.User{coach, player, parent} {
		s.accounts[u.Email] = &account{password: SeedPassword, user: u}
		s.usersByID[u.ID] = u
	}

	now := time.Now().UTC().Truncate(time.Minute)

	s.players = []models.Player{
		{
			ID:        "p-1",
			FirstName: "Egor",
			LastName:  "Laptev",
			Level:     "junior",
			CoachID:   coach.ID,
			Birthdate: time.Date(2011, 4, 12, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:        "p-2",
			FirstName: "Sofia",
			LastName:  "Gran",
			Level:     "intermediate",
			CoachID:   coach.ID,
			Birthdate: time.Date(2009, 11, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:        "p-3",
			FirstName: "Artem",
			LastName:  "Vetrov",
			Level:     "advanced",
			Birthdate: time.Date(2008, 2, 27, 0, 0, 0, 0, time.UTC),
		},
	}

	s.journals = []models.JournalEntry{
		{
			ID:        "j-1",
			PlayerID:  "p-1",
			AuthorID:  coach.ID,
			Title:     "Backhand drills",
			Body:      "Two-handed backhand, 40 minutes, cross-court targets.",
			CreatedAt: now.Add(-48 * time.Hour),
		},
		{
			ID:        "j-2",
			PlayerID:  "p-1",
			AuthorID:  player.ID,
			Title:     "Serve practice",
			Body:      "First serve percentage up to 58%.",
			CreatedAt: now.Add(-24 * time.Hour),
		},
	}

	s.threads = []models.Thread{
		{
			ID:           "t-1",
			Subject:      "Tournament schedule",
			Participants: []string{coach.ID, player.ID, parent.ID},
			UpdatedAt:    now.Add(-2 * time.Hour),
		},
	}

	s.messages = []models.Message{
		{
			ID:       "m-1",
			ThreadID: "t-1",
			SenderID: coach.ID,
			Body:     "Regional qualifiers start Saturday 9:00.",
			SentAt:   now.Add(-3 * time.Hour),
		},
		{
			ID:       "m-2",
			ThreadID: "t-1",
			SenderID: parent.ID,
			Body:     "We will be there.",
			SentAt:   now.Add(-2 * time.Hour),
		},
	}

	s.events = []models.CalendarEvent{
		{
			ID:       "e-1",
			Title:    "Group training",
			Kind:     "training",
			StartsAt: now.Add(24 * time.Hour),
			EndsAt:   now.Add(26 * time.Hour),
			Location: "Court 2",
		},
		{
			ID:       "e-2",
			Title:    "Regional qualifier",
			Kind:     "match",
			StartsAt: now.Add(72 * time.Hour),
			EndsAt:   now.Add(75 * time.Hour),
			Location: "Central Arena",
		},
	}

	s.matches = []models.Match{
		{
			ID:       "mt-1",
			PlayerID: "p-1",
			Opponent: "D. Kimov",
			Score:    "6-4 3-6 10-7",
			Won:      true,
			PlayedAt: now.Add(-5 * 24 * time.Hour),
		},
	}
}
