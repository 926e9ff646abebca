package mockapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/courtline/go-courtline/internal/models"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(New(Options{Secret: "test-secret"}).Handler())
	t.Cleanup(srv.Close)

	return srv
}

// postJSON — сырой POST без авторизации.
func postJSON(t *testing.T, url string, in any) (*http.Response, []byte) {
	t.Helper()

	data, err := json.Marshal(in)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp, body
}

// login возвращает пару токенов посеянного аккаунта.
func login(t *testing.T, srv *httptest.Server, email string) (models.TokenPair, models.User) {
	t.Helper()

	resp, body := postJSON(t, srv.URL+"/auth/login", map[string]string{
		"email":    email,
		"password": SeedPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data struct {
			Tokens models.TokenPair `json:"tokens"`
			User   models.User      `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.Data.Tokens.AccessToken)
	require.NotEmpty(t, out.Data.Tokens.RefreshToken)

	return out.Data.Tokens, out.Data.User
}

func authedGet(t *testing.T, srv *httptest.Server, path, access string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp, body
}

// TestLogin_SeededAccounts: посеянные аккаунты входят с фиксированным паролем.
func TestLogin_SeededAccounts(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	_, user := login(t, srv, SeedCoachEmail)
	require.Equal(t, models.RoleCoach, user.Role)

	_, user = login(t, srv, SeedPlayerEmail)
	require.Equal(t, models.RolePlayer, user.Role)
}

// TestLogin_WrongPassword: неверные креды — 401/invalid_credentials.
func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, body := postJSON(t, srv.URL+"/auth/login", map[string]string{
		"email":    SeedCoachEmail,
		"password": "nope",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, string(body), "invalid_credentials")
}

// TestRegister: новый аккаунт создаётся и сразу получает сессию;
// повторная регистрация — 409.
func TestRegister(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	in := map[string]string{"email": "new@courtline.test", "password": "pw-1", "role": "player"}

	resp, body := postJSON(t, srv.URL+"/auth/register", in)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Contains(t, string(body), "accessToken")

	resp, body = postJSON(t, srv.URL+"/auth/register", in)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Contains(t, string(body), "already_exists")
}

// TestGuard_RequiresToken: доменные разделы без токена и с мусорным
// токеном отвечают 401/unauthenticated.
func TestGuard_RequiresToken(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, body := authedGet(t, srv, "/players", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, string(body), "unauthenticated")

	resp, _ = authedGet(t, srv, "/players", "garbage")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// TestRefresh_Rotation: refresh выдаёт новую пару, старый refresh-токен
// после этого отозван.
func TestRefresh_Rotation(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	pair, _ := login(t, srv, SeedPlayerEmail)

	resp, body := postJSON(t, srv.URL+"/auth/refresh", map[string]string{
		"refreshToken": pair.RefreshToken,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data struct {
			Tokens models.TokenPair `json:"tokens"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.Data.Tokens.AccessToken)
	require.NotEqual(t, pair.RefreshToken, out.Data.Tokens.RefreshToken)

	// Повторный обмен старым токеном — отказ.
	resp, body = postJSON(t, srv.URL+"/auth/refresh", map[string]string{
		"refreshToken": pair.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, string(body), "invalid_refresh")

	// Новая пара при этом работает.
	resp, _ = authedGet(t, srv, "/players", out.Data.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestRefresh_RejectsAccessToken: access-токен не годится как refresh.
func TestRefresh_RejectsAccessToken(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	pair, _ := login(t, srv, SeedPlayerEmail)

	resp, _ := postJSON(t, srv.URL+"/auth/refresh", map[string]string{
		"refreshToken": pair.AccessToken,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// TestLogout_RevokesRefresh: после logout refresh-токен мёртв,
// повторный logout тем же токеном — по-прежнему 204.
func TestLogout_RevokesRefresh(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	pair, _ := login(t, srv, SeedPlayerEmail)

	resp, _ := postJSON(t, srv.URL+"/auth/logout", map[string]string{
		"refreshToken": pair.RefreshToken,
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = postJSON(t, srv.URL+"/auth/refresh", map[string]string{
		"refreshToken": pair.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = postJSON(t, srv.URL+"/auth/logout", map[string]string{
		"refreshToken": pair.RefreshToken,
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

// TestOTPFlow: generate-otp + verify-otp с фиксированным кодом стенда.
func TestOTPFlow(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, _ := postJSON(t, srv.URL+"/auth/generate-otp", map[string]string{"email": SeedParentEmail})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := postJSON(t, srv.URL+"/auth/verify-otp", map[string]string{
		"email": SeedParentEmail,
		"code":  "000000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "accessToken")

	// Код одноразовый.
	resp, _ = postJSON(t, srv.URL+"/auth/verify-otp", map[string]string{
		"email": SeedParentEmail,
		"code":  "000000",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// TestPlayers: список фильтруется по coach_id, несуществующий игрок — 404.
func TestPlayers(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	pair, user := login(t, srv, SeedCoachEmail)

	resp, body := authedGet(t, srv, "/players?coach_id="+user.ID, pair.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data []models.Player `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Data, 2)
	for _, p := range out.Data {
		require.Equal(t, user.ID, p.CoachID)
	}

	resp, _ = authedGet(t, srv, "/players/p-404", pair.AccessToken)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// TestJournals: запись добавляется от имени текущего пользователя и
// возвращается первой в списке.
func TestJournals(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	pair, user := login(t, srv, SeedCoachEmail)

	data, err := json.Marshal(map[string]string{
		"playerId": "p-2",
		"title":    "Footwork",
		"body":     "Ladder drills.",
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/journals", bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		Data models.JournalEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	require.Equal(t, user.ID, created.Data.AuthorID)

	resp, body = authedGet(t, srv, "/journals?player_id=p-2", pair.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Data []models.JournalEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	require.NotEmpty(t, list.Data)
	require.Equal(t, created.Data.ID, list.Data[0].ID)
}

// TestCalendar_Validation: границы интервала обязаны быть RFC3339.
func TestCalendar_Validation(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	pair, _ := login(t, srv, SeedPlayerEmail)

	resp, body := authedGet(t, srv, "/calendar/events?from=yesterday&to=tomorrow", pair.AccessToken)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, string(body), "bad_request")

	from := time.Now().UTC().Format(time.RFC3339)
	to := time.Now().UTC().Add(7 * 24 * time.Hour).Format(time.RFC3339)
	resp, body = authedGet(t, srv, "/calendar/events?from="+from+"&to="+to, pair.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data []models.CalendarEvent `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Data, 2)
}

// TestDashboard: сводка отражает роль запросившего.
func TestDashboard(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	pair, _ := login(t, srv, SeedCoachEmail)

	resp, body := authedGet(t, srv, "/dashboard", pair.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Data models.DashboardSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.Equal(t, models.RoleCoach, out.Data.Role)
	require.Equal(t, 2, out.Data.UpcomingEvents)
}
