package clients

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/courtline/go-courtline/internal/models"
)

// Calendar — расписание. Ходит через клиент с удлинённым таймаутом:
// календарные выборки на бэкенде заметно дольше остальных.
type Calendar struct {
	api *api
}

// Events — события в интервале [from, to).
func (c *Calendar) Events(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	const op = "clients.calendar.Events"

	q := url.Values{
		"from": []string{from.UTC().Format(time.RFC3339)},
		"to":   []string{to.UTC().Format(time.RFC3339)},
	}

	var out []models.CalendarEvent
	if err := c.api.get(ctx, "/calendar/events", q, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
