package clients

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/courtline/go-courtline/internal/config"
	"github.com/courtline/go-courtline/internal/mockapi"
	"github.com/courtline/go-courtline/internal/session"
	"github.com/courtline/go-courtline/internal/tokens"
	"github.com/courtline/go-courtline/internal/transport"
)

// Интеграционные тесты полного стека: clients поверх транспорта
// Authorize -> Gate -> retryablehttp против локального стенда mockapi.

type stack struct {
	clients  *Clients
	sessions *session.Manager
	navHits  atomic.Int32
}

// newStack поднимает стенд и собирает клиент целиком, как это делает
// cmd/courtline: менеджер сессии, транспорт, доменные клиенты.
func newStack(t *testing.T, apiOpts mockapi.Options) *stack {
	t.Helper()

	if apiOpts.Secret == "" {
		apiOpts.Secret = "itest-secret"
	}

	srv := httptest.NewServer(mockapi.New(apiOpts).Handler())
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.API.BaseURL = srv.URL
	cfg.API.UserAgent = "go-courtline-test"
	cfg.API.RetryMax = 1
	cfg.Auth.AccessBuffer = 5 * time.Minute
	cfg.Auth.RefreshBuffer = 60 * time.Minute
	cfg.Auth.LoginPath = "/login"
	cfg.Session.CookieAccess = "courtline_access"
	cfg.Session.CookieRefresh = "courtline_refresh"
	cfg.Session.CookieSession = "courtline_sid"
	cfg.Timeouts.Request = 30 * time.Second
	cfg.Timeouts.Calendar = 30 * time.Second
	cfg.Timeouts.Refresh = 5 * time.Second
	cfg.Timeouts.RefreshWait = 10 * time.Second

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	base, err := cfg.API.URL()
	require.NoError(t, err)

	st := &stack{}

	st.sessions = session.NewManager(session.Options{
		File:        filepath.Join(t.TempDir(), "session.json"),
		Jar:         jar,
		APIURL:      base,
		CookieNames: cfg.Session.CookieNames(),
		LoginPath:   cfg.Auth.LoginPath,
		OnExpired:   func(string) { st.navHits.Add(1) },
	})

	httpc, err := transport.NewClient(cfg, st.sessions, tokens.NewInspector(), jar, nil)
	require.NoError(t, err)

	st.clients, err = New(cfg, httpc, nil)
	require.NoError(t, err)

	return st
}

func (st *stack) login(t *testing.T, email string) {
	t.Helper()

	sess, err := st.clients.Auth.Login(context.Background(), email, mockapi.SeedPassword)
	require.NoError(t, err)
	require.NoError(t, st.sessions.Establish(sess))
}

// TestStack_LoginAndBrowse: вход и обход доменных разделов с живым
// access-токеном, без единого refresh.
func TestStack_LoginAndBrowse(t *testing.T) {
	t.Parallel()

	st := newStack(t, mockapi.Options{})
	st.login(t, mockapi.SeedCoachEmail)

	ctx := context.Background()

	players, err := st.clients.Players.List(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, players)

	journals, err := st.clients.Journals.List(ctx, players[0].ID)
	require.NoError(t, err)
	require.NotEmpty(t, journals)

	threads, err := st.clients.Messages.Threads(ctx)
	require.NoError(t, err)
	require.Len(t, threads, 1)

	msgs, err := st.clients.Messages.List(ctx, threads[0].ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	now := time.Now().UTC()
	events, err := st.clients.Calendar.Events(ctx, now, now.Add(14*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)

	sum, err := st.clients.Dashboard.Summary(ctx)
	require.NoError(t, err)
	require.NotZero(t, sum.UpcomingEvents)
}

// TestStack_RefreshOn401: протухший access-токен прозрачно обменивается
// по refresh, вызов завершается успехом, пара в сессии ротируется.
func TestStack_RefreshOn401(t *testing.T) {
	t.Parallel()

	// Логин выдаёт access на миллисекунду; refresh — полноценный.
	st := newStack(t, mockapi.Options{
		AccessTTL:        time.Millisecond,
		RefreshAccessTTL: 15 * time.Minute,
	})
	st.login(t, mockapi.SeedPlayerEmail)

	before, ok := st.sessions.Current()
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond) // даём access-токену протухнуть

	players, err := st.clients.Players.List(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, players)

	after, ok := st.sessions.Current()
	require.True(t, ok)
	require.NotEqual(t, before.Tokens.AccessToken, after.Tokens.AccessToken)
	require.NotEqual(t, before.Tokens.RefreshToken, after.Tokens.RefreshToken)
	require.Zero(t, st.navHits.Load())
}

// TestStack_ConcurrentRefresh: одновременные вызовы после протухания
// делят один refresh. Стенд ротирует refresh-токен, так что второй
// сетевой refresh попросту не смог бы пройти — успех всех вызовов
// означает, что refresh был ровно один.
func TestStack_ConcurrentRefresh(t *testing.T) {
	t.Parallel()

	st := newStack(t, mockapi.Options{
		AccessTTL:        time.Millisecond,
		RefreshAccessTTL: 15 * time.Minute,
	})
	st.login(t, mockapi.SeedCoachEmail)

	time.Sleep(20 * time.Millisecond)

	const callers = 4

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = st.clients.Players.List(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}

	_, ok := st.sessions.Current()
	require.True(t, ok)
	require.Zero(t, st.navHits.Load())
}

// TestStack_RevokedRefreshTearsDown: если refresh-токен отозван на
// сервере, попытка refresh валится, сессия разрушается и срабатывает
// уведомление о разлогине; вызов получает исходный 401.
func TestStack_RevokedRefreshTearsDown(t *testing.T) {
	t.Parallel()

	st := newStack(t, mockapi.Options{
		AccessTTL:        time.Millisecond,
		RefreshAccessTTL: 15 * time.Minute,
	})
	st.login(t, mockapi.SeedPlayerEmail)

	sess, ok := st.sessions.Current()
	require.True(t, ok)

	// Отзываем refresh напрямую, мимо клиентского состояния.
	require.NoError(t, st.clients.Auth.Logout(context.Background(), sess.Tokens.RefreshToken))

	time.Sleep(20 * time.Millisecond)

	_, err := st.clients.Players.List(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)

	_, ok = st.sessions.Current()
	require.False(t, ok)
	require.Equal(t, int32(1), st.navHits.Load())
}

// TestStack_LogoutFlow: штатный выход — отзыв токена и teardown;
// следующий доменный вызов получает 401 без попытки refresh.
func TestStack_LogoutFlow(t *testing.T) {
	t.Parallel()

	st := newStack(t, mockapi.Options{})
	st.login(t, mockapi.SeedParentEmail)

	sess, ok := st.sessions.Current()
	require.True(t, ok)

	require.NoError(t, st.clients.Auth.Logout(context.Background(), sess.Tokens.RefreshToken))
	require.NoError(t, st.sessions.Teardown())
	require.Equal(t, int32(1), st.navHits.Load())

	_, err := st.clients.Dashboard.Summary(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, "unauthenticated", apiErr.Code)

	// Повторный teardown идемпотентен и не дублирует уведомление.
	require.NoError(t, st.sessions.Teardown())
	require.Equal(t, int32(1), st.navHits.Load())
}

// TestStack_JournalRoundTrip: POST с телом проходит через весь транспорт,
// включая повтор после refresh.
func TestStack_JournalRoundTrip(t *testing.T) {
	t.Parallel()

	st := newStack(t, mockapi.Options{
		AccessTTL:        time.Millisecond,
		RefreshAccessTTL: 15 * time.Minute,
	})
	st.login(t, mockapi.SeedCoachEmail)

	time.Sleep(20 * time.Millisecond)

	entry, err := st.clients.Journals.Add(context.Background(), "p-1", "Net play", "Volley ladder, 30 min.")
	require.NoError(t, err)
	require.Equal(t, "p-1", entry.PlayerID)
	require.Equal(t, "u-coach-1", entry.AuthorID)
	require.NotEmpty(t, entry.ID)

	list, err := st.clients.Journals.List(context.Background(), "p-1")
	require.NoError(t, err)
	require.Equal(t, entry.ID, list[0].ID)
}
