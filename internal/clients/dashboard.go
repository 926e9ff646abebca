package clients

import (
	"context"
	"fmt"

	"github.com/courtline/go-courtline/internal/models"
)

// Dashboard — ролевая сводка главного экрана.
type Dashboard struct {
	api *api
}

// Summary возвращает сводку для текущей роли (игрок/тренер/родитель).
func (c *Dashboard) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	const op = "clients.dashboard.Summary"

	var out models.DashboardSummary
	if err := c.api.get(ctx, "/dashboard", nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}
