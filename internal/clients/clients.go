// clients — тонкие REST-клиенты доменных разделов платформы.
//
// Все вызовы ходят через общий http.Client, собранный transport.NewClient:
// инъекцию bearer, refresh по 401 и повторы сетевых сбоев обеспечивает
// транспорт, клиенты заняты только формой запросов/ответов.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/courtline/go-courtline/internal/config"
)

// APIError — единый формат ошибки платформы.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d/%s: %s", e.Status, e.Code, e.Message)
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

type dataEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// Clients агрегирует все доменные клиенты платформы.
type Clients struct {
	Auth      *Auth
	Players   *Players
	Journals  *Journals
	Messages  *Messages
	Calendar  *Calendar
	Matches   *Matches
	Dashboard *Dashboard
}

// New собирает клиенты поверх готового http.Client.
func New(cfg *config.Config, httpc *http.Client, lg *slog.Logger) (*Clients, error) {
	const op = "clients.New"

	base, err := cfg.API.URL()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if lg == nil {
		lg = slog.Default()
	}

	a := &api{base: base, http: httpc, log: lg}

	// Календарные выборки исторически дольше обычных вызовов:
	// отдельный клиент с тем же транспортом, но большим таймаутом.
	calHTTP := *httpc
	if cfg.Timeouts.Calendar > 0 {
		calHTTP.Timeout = cfg.Timeouts.Calendar
	}
	cal := &api{base: base, http: &calHTTP, log: lg}

	return &Clients{
		Auth:      &Auth{api: a},
		Players:   &Players{api: a},
		Journals:  &Journals{api: a},
		Messages:  &Messages{api: a},
		Calendar:  &Calendar{api: cal},
		Matches:   &Matches{api: a},
		Dashboard: &Dashboard{api: a},
	}, nil
}

// api — общая механика вызова: сборка URL, строгий JSON, конверты.
type api struct {
	base *url.URL
	http *http.Client
	log  *slog.Logger
}

func (a *api) get(ctx context.Context, path string, query url.Values, out any) error {
	return a.do(ctx, http.MethodGet, path, query, nil, out)
}

func (a *api) post(ctx context.Context, path string, in, out any) error {
	return a.do(ctx, http.MethodPost, path, nil, in, out)
}

func (a *api) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	const op = "clients.api.do"

	u := a.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		// bytes.Reader даёт http.NewRequest построить GetBody:
		// без него транспорт не сможет повторить запрос после refresh.
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %s %s: %w", op, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return a.decodeError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil
	}

	var env dataEnvelope
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&env); err != nil {
		return fmt.Errorf("%s: decode envelope: %w", op, err)
	}

	if len(env.Data) == 0 {
		return fmt.Errorf("%s: empty data envelope", op)
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s: decode data: %w", op, err)
	}

	return nil
}

// decodeError приводит не-2xx ответ к *APIError; нечитаемое тело не
// маскирует HTTP-статус.
func (a *api) decodeError(resp *http.Response) error {
	var env errorEnvelope

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(data, &env); err == nil && env.Error.Code != "" {
		apiErr := env.Error
		apiErr.Status = resp.StatusCode
		return &apiErr
	}

	return &APIError{
		Code:    "unknown",
		Message: http.StatusText(resp.StatusCode),
		Status:  resp.StatusCode,
	}
}
