package clients

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/courtline/go-courtline/internal/models"
)

// Matches — сыгранные матчи.
type Matches struct {
	api *api
}

// List — матчи игрока.
func (c *Matches) List(ctx context.Context, playerID string) ([]models.Match, error) {
	const op = "clients.matches.List"

	q := url.Values{"player_id": []string{playerID}}

	var out []models.Match
	if err := c.api.get(ctx, "/matches", q, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Record фиксирует результат матча.
func (c *Matches) Record(ctx context.Context, playerID, opponent, score string, won bool, playedAt time.Time) (*models.Match, error) {
	const op = "clients.matches.Record"

	in := map[string]any{
		"playerId": playerID,
		"opponent": opponent,
		"score":    score,
		"won":      won,
		"playedAt": playedAt.UTC().Format(time.RFC3339),
	}

	var out models.Match
	if err := c.api.post(ctx, "/matches", in, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}
