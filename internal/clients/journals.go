package clients

import (
	"context"
	"fmt"
	"net/url"

	"github.com/courtline/go-courtline/internal/models"
)

// Journals — дневники тренировок.
type Journals struct {
	api *api
}

// List — записи дневника игрока, новые сверху.
func (c *Journals) List(ctx context.Context, playerID string) ([]models.JournalEntry, error) {
	const op = "clients.journals.List"

	q := url.Values{"player_id": []string{playerID}}

	var out []models.JournalEntry
	if err := c.api.get(ctx, "/journals", q, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Add создаёт запись дневника.
func (c *Journals) Add(ctx context.Context, playerID, title, body string) (*models.JournalEntry, error) {
	const op = "clients.journals.Add"

	in := map[string]string{
		"playerId": playerID,
		"title":    title,
		"body":     body,
	}

	var out models.JournalEntry
	if err := c.api.post(ctx, "/journals", in, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}
