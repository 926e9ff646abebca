package clients

import (
	"context"
	"fmt"
	"net/url"

	"github.com/courtline/go-courtline/internal/models"
)

// Players — раздел игроков.
type Players struct {
	api *api
}

// List возвращает игроков, видимых текущей роли.
func (c *Players) List(ctx context.Context) ([]models.Player, error) {
	const op = "clients.players.List"

	var out []models.Player
	if err := c.api.get(ctx, "/players", nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Get возвращает игрока по id.
func (c *Players) Get(ctx context.Context, id string) (*models.Player, error) {
	const op = "clients.players.Get"

	var out models.Player
	if err := c.api.get(ctx, "/players/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// Roster — подопечные конкретного тренера.
func (c *Players) Roster(ctx context.Context, coachID string) ([]models.Player, error) {
	const op = "clients.players.Roster"

	q := url.Values{"coach_id": []string{coachID}}

	var out []models.Player
	if err := c.api.get(ctx, "/players", q, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
