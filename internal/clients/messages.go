package clients

import (
	"context"
	"fmt"
	"net/url"

	"github.com/courtline/go-courtline/internal/models"
)

// Messages — переписка.
type Messages struct {
	api *api
}

// Threads — диалоги текущего пользователя.
func (c *Messages) Threads(ctx context.Context) ([]models.Thread, error) {
	const op = "clients.messages.Threads"

	var out []models.Thread
	if err := c.api.get(ctx, "/messages/threads", nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// List — сообщения диалога.
func (c *Messages) List(ctx context.Context, threadID string) ([]models.Message, error) {
	const op = "clients.messages.List"

	path := "/messages/threads/" + url.PathEscape(threadID) + "/messages"

	var out []models.Message
	if err := c.api.get(ctx, path, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// Send отправляет сообщение в диалог.
func (c *Messages) Send(ctx context.Context, threadID, body string) (*models.Message, error) {
	const op = "clients.messages.Send"

	in := map[string]string{"threadId": threadID, "body": body}

	var out models.Message
	if err := c.api.post(ctx, "/messages", in, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}
