// transport — auth-refresh шлюз HTTP-клиента.
//
// Gate перехватывает ответы, распознаёт 401 из-за истёкшего access-токена
// и прозрачно обновляет пару токенов, повторяя исходный запрос ровно один
// раз. Конкурентные 401-еры координируются через singleflight: в полёте
// не бывает больше одного refresh-вызова, все ожидающие разделяют его
// исход. Сам refresh ходит мимо шлюза (отдельным клиентом), чтобы 401 на
// refresh не рекурсировал.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	logctx "github.com/courtline/go-courtline/pkg/log"

	"github.com/courtline/go-courtline/internal/models"
	"github.com/courtline/go-courtline/internal/tokens"
)

var (
	// ErrRefreshFailed — сетевой сбой или не-2xx на refresh-вызове.
	// Фатален для всех ожидающих этого полёта; сессия разрушается.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrMalformedRefresh — refresh ответил 2xx, но конверт не прошёл
	// строгую проверку формы. Трактуется как ErrRefreshFailed.
	ErrMalformedRefresh = errors.New("malformed refresh response")

	// ErrRefreshTimeout — ожидающий запрос не дождался чужого полёта
	// за отведённый предел (независим от таймаута самого повтора).
	ErrRefreshTimeout = errors.New("refresh wait timeout")
)

// retriedKey помечает запрос, уже повторённый после refresh:
// второй 401 на нём проходит насквозь — ровно один повтор на запрос.
type retriedKey struct{}

func markRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

func isRetried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}

// GateOptions — параметры шлюза.
type GateOptions struct {
	// RefreshURL — абсолютный адрес refresh-эндпойнта.
	RefreshURL string

	// AccessBuffer/RefreshBuffer — запасы инспекции истечения.
	AccessBuffer  time.Duration
	RefreshBuffer time.Duration

	// RefreshTimeout — таймаут самого refresh-вызова.
	RefreshTimeout time.Duration

	// RefreshWait — предел ожидания чужого полёта; <=0 — ждать без предела.
	RefreshWait time.Duration

	// RefreshClient — клиент для refresh-вызова; обязан ходить МИМО шлюза.
	// По умолчанию собирается голый http.Client с RefreshTimeout.
	RefreshClient *http.Client

	Logger *slog.Logger
}

// Gate — ответный интерсептор (см. док пакета).
type Gate struct {
	base     http.RoundTripper
	sessions Sessions
	inspect  *tokens.Inspector
	opts     GateOptions
	group    singleflight.Group
	log      *slog.Logger
}

// NewGate собирает шлюз поверх base-транспорта.
func NewGate(base http.RoundTripper, sessions Sessions, inspect *tokens.Inspector, opts GateOptions) *Gate {
	if opts.AccessBuffer <= 0 {
		opts.AccessBuffer = 5 * time.Minute
	}
	if opts.RefreshBuffer <= 0 {
		opts.RefreshBuffer = 60 * time.Minute
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 15 * time.Second
	}
	if opts.RefreshClient == nil {
		opts.RefreshClient = &http.Client{Timeout: opts.RefreshTimeout}
	}

	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}

	return &Gate{
		base:     base,
		sessions: sessions,
		inspect:  inspect,
		opts:     opts,
		log:      l,
	}
}

// RoundTrip применяет правила шлюза к ответу base-транспорта.
// Порядок проверок фиксирован; любое «пропустить как есть» возвращает
// исходный 401 вызывающему нетронутым.
func (g *Gate) RoundTrip(req *http.Request) (*http.Response, error) {
	const op = "transport.refresh.RoundTrip"

	base := g.base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// Упавший логин не должен запускать refresh-петлю.
	if IsBootstrap(req.URL.Path) {
		return resp, nil
	}

	// Ровно один повтор на логический запрос.
	if isRetried(req.Context()) {
		return resp, nil
	}

	sess, ok := g.sessions.Current()
	if !ok {
		// Нечего обновлять: анонимный запрос.
		return resp, nil
	}

	lg := logctx.From(req.Context())

	// Без refresh-токена сессия невосстановима.
	if sess.Tokens.RefreshToken == "" {
		lg.Warn("session_unrecoverable",
			slog.String("op", op),
			slog.String("reason", "missing_refresh_token"),
		)
		_ = g.sessions.Teardown()
		return resp, nil
	}

	// Истёкший (или недекодируемый) refresh-токен — тоже невосстановимо.
	if expired, ierr := g.inspect.Expired(sess.Tokens.RefreshToken, g.opts.RefreshBuffer); expired || ierr != nil {
		lg.Warn("session_unrecoverable",
			slog.String("op", op),
			slog.String("reason", "refresh_token_expired"),
		)
		_ = g.sessions.Teardown()
		return resp, nil
	}

	// Access-токен ещё жив — 401 не про аутентификацию (например, права).
	// Не маскируем авторизационную ошибку обновлением токенов.
	if expired, ierr := g.inspect.Expired(sess.Tokens.AccessToken, g.opts.AccessBuffer); ierr == nil && !expired {
		return resp, nil
	}

	// Невоспроизводимое тело повторить нельзя — отдаём 401 как есть.
	if req.Body != nil && req.GetBody == nil {
		lg.Warn("retry_skipped_unreplayable_body", slog.String("op", op))
		return resp, nil
	}

	token, rerr := g.awaitRefresh(req.Context())
	if rerr != nil {
		if errors.Is(rerr, ErrRefreshTimeout) || errors.Is(rerr, context.Canceled) || errors.Is(rerr, context.DeadlineExceeded) {
			drainBody(resp)
			return nil, fmt.Errorf("%s: %w", op, rerr)
		}

		// Полёт провалился: teardown уже выполнен внутри полёта.
		// Вызывающий получает собственную исходную 401.
		return resp, nil
	}

	drainBody(resp)

	replay, cerr := replayRequest(req, token)
	if cerr != nil {
		return nil, fmt.Errorf("%s: %w", op, cerr)
	}

	return base.RoundTrip(replay)
}

// awaitRefresh присоединяется к текущему полёту (или открывает новый)
// и ждёт его исхода, ограничиваясь RefreshWait и контекстом запроса.
// Сам полёт от ухода ожидающего не отменяется: его исход нужен остальным.
func (g *Gate) awaitRefresh(ctx context.Context) (string, error) {
	ch := g.group.DoChan("refresh", func() (any, error) {
		return g.flight()
	})

	var timeout <-chan time.Time
	if g.opts.RefreshWait > 0 {
		t := time.NewTimer(g.opts.RefreshWait)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}

		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timeout:
		return "", ErrRefreshTimeout
	}
}

// refreshEnvelope — строгая форма успешного ответа refresh-эндпойнта.
type refreshEnvelope struct {
	Data struct {
		Tokens struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		} `json:"tokens"`
		User    *models.User    `json:"user,omitempty"`
		Session json.RawMessage `json:"session,omitempty"`
	} `json:"data"`
}

// flight — единственный на эпоху refresh-вызов.
// Любой провал фатален для всех ожидающих: teardown + ошибка.
func (g *Gate) flight() (string, error) {
	const op = "transport.refresh.flight"

	sess, ok := g.sessions.Current()
	if !ok {
		return "", fmt.Errorf("%s: %w: session gone", op, ErrRefreshFailed)
	}

	// Перепроверка внутри полёта: предыдущая эпоха могла уже обновить
	// пару, пока мы стояли за singleflight.
	if tok := sess.Tokens.AccessToken; tok != "" {
		if expired, err := g.inspect.Expired(tok, g.opts.AccessBuffer); err == nil && !expired {
			return tok, nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.opts.RefreshTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"refreshToken": sess.Tokens.RefreshToken})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.opts.RefreshURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.opts.RefreshClient.Do(req)
	if err != nil {
		return "", g.fail(op, fmt.Errorf("%w: %w", ErrRefreshFailed, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		drainBody(resp)
		return "", g.fail(op, fmt.Errorf("%w: unexpected status %d", ErrRefreshFailed, resp.StatusCode))
	}

	var env refreshEnvelope
	dec := json.NewDecoder(io.LimitReader(resp.Body, 1<<20))
	if err := dec.Decode(&env); err != nil {
		return "", g.fail(op, fmt.Errorf("%w: %w", ErrMalformedRefresh, err))
	}

	pair := models.TokenPair{
		AccessToken:  env.Data.Tokens.AccessToken,
		RefreshToken: env.Data.Tokens.RefreshToken,
	}

	// Неполный конверт — не «частичный успех», а провал.
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return "", g.fail(op, fmt.Errorf("%w: missing token fields", ErrMalformedRefresh))
	}

	if err := g.sessions.Update(pair, env.Data.User); err != nil {
		return "", g.fail(op, fmt.Errorf("%w: %w", ErrRefreshFailed, err))
	}

	g.log.Info("token_refreshed", slog.String("op", op))

	return pair.AccessToken, nil
}

// fail — общий путь провала полёта: teardown + лог + ошибка наружу.
func (g *Gate) fail(op string, err error) error {
	g.log.Warn("token_refresh_failed",
		slog.String("op", op),
		slog.String("err", err.Error()),
	)

	_ = g.sessions.Teardown()

	return fmt.Errorf("%s: %w", op, err)
}

// replayRequest клонирует исходный запрос со свежим токеном и меткой
// «уже повторён».
func replayRequest(req *http.Request, token string) (*http.Request, error) {
	clone := req.Clone(markRetried(req.Context()))

	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}

		clone.Body = body
	}

	clone.Header.Set("Authorization", "Bearer "+token)

	return clone, nil
}

// drainBody дочитывает и закрывает тело ответа, который никому не отдадим,
// чтобы соединение вернулось в пул.
func drainBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}

	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
