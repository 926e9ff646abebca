package mockapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	logctx "github.com/courtline/go-courtline/pkg/log"
	"github.com/courtline/go-courtline/pkg/redact"

	"github.com/courtline/go-courtline/internal/models"
)

type userKey struct{}

func intoUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func userFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey{}).(*models.User)
	return u
}

// authResponse — data-секция ответов login/register/verify-otp/refresh.
type authResponse struct {
	Tokens models.TokenPair `json:"tokens"`
	User   *models.User     `json:"user"`
}

func writeData(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"data": v})
}

func writeErr(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": msg},
	})
}

// readJSON декодирует тело запроса; мусор на входе — 400.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", "malformed json body")
		return false
	}
	return true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !readJSON(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.accounts[in.Email]
	if acc == nil || acc.password != in.Password {
		writeErr(w, http.StatusUnauthorized, "invalid_credentials", "wrong email or password")
		return
	}

	pair, err := s.issuePair(acc.user, s.opts.AccessTTL)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal", "token issue failed")
		return
	}

	logctx.From(r.Context()).Info("login_ok",
		slog.String("email", redact.Email(in.Email)),
		slog.String("user_id", acc.user.ID),
	)

	writeData(w, http.StatusOK, authResponse{Tokens: pair, User: acc.user})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if !readJSON(w, r, &in) {
		return
	}

	if in.Email == "" || in.Password == "" {
		writeErr(w, http.StatusBadRequest, "bad_request", "email and password are required")
		return
	}

	role := models.Role(in.Role)
	switch role {
	case models.RolePlayer, models.RoleCoach, models.RoleParent:
	case "":
		role = models.RolePlayer
	default:
		writeErr(w, http.StatusBadRequest, "bad_request", "unknown role")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accounts[in.Email] != nil {
		writeErr(w, http.StatusConflict, "already_exists", "account already exists")
		return
	}

	user := &models.User{ID: uuid.NewString(), Email: in.Email, Role: role}
	s.accounts[in.Email] = &account{password: in.Password, user: user}
	s.usersByID[user.ID] = user

	pair, err := s.issuePair(user, s.opts.AccessTTL)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal", "token issue failed")
		return
	}

	writeData(w, http.StatusCreated, authResponse{Tokens: pair, User: user})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !readJSON(w, r, &in) {
		return
	}

	claims, err := s.parseToken(in.RefreshToken, "refresh")
	if err != nil {
		writeErr(w, http.StatusUnauthorized, "invalid_refresh", "invalid or expired refresh token")
		return
	}

	jti, _ := claims["jti"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()

	userID, live := s.refreshes[jti]
	if !live {
		writeErr(w, http.StatusUnauthorized, "invalid_refresh", "refresh token revoked")
		return
	}

	user := s.usersByID[userID]
	if user == nil {
		writeErr(w, http.StatusUnauthorized, "invalid_refresh", "unknown user")
		return
	}

	// Ротация: старый refresh гасится, выдаётся свежая пара.
	delete(s.refreshes, jti)

	pair, err := s.issuePair(user, s.opts.RefreshAccessTTL)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal", "token issue failed")
		return
	}

	logctx.From(r.Context()).Info("token_refreshed", slog.String("user_id", user.ID))

	writeData(w, http.StatusOK, authResponse{Tokens: pair, User: user})
}

func (s *Server) handleGenerateOTP(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if !readJSON(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accounts[in.Email] == nil {
		// Не раскрываем, существует ли аккаунт.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	// Код фиксированный: стенд не шлёт почту, код печатается в лог.
	s.otps[in.Email] = "000000"
	logctx.From(r.Context()).Info("otp_generated",
		slog.String("email", redact.Email(in.Email)),
		slog.String("code", s.otps[in.Email]),
	)

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if !readJSON(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.accounts[in.Email]
	code, pending := s.otps[in.Email]
	if acc == nil || !pending || code != in.Code {
		writeErr(w, http.StatusUnauthorized, "invalid_otp", "wrong or expired code")
		return
	}
	delete(s.otps, in.Email)

	pair, err := s.issuePair(acc.user, s.opts.AccessTTL)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "internal", "token issue failed")
		return
	}

	writeData(w, http.StatusOK, authResponse{Tokens: pair, User: acc.user})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if !readJSON(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accounts[in.Email] != nil {
		token := uuid.NewString()
		s.resets[token] = in.Email
		logctx.From(r.Context()).Info("reset_issued",
			slog.String("email", redact.Email(in.Email)),
			slog.String("token", token),
		)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !readJSON(w, r, &in) {
		return
	}

	if in.Password == "" {
		writeErr(w, http.StatusBadRequest, "bad_request", "password is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email, ok := s.resets[in.Token]
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid_reset", "wrong or expired reset token")
		return
	}
	delete(s.resets, in.Token)

	s.accounts[email].password = in.Password

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !readJSON(w, r, &in) {
		return
	}

	// Logout идемпотентен: невалидный или уже отозванный токен — не ошибка.
	if claims, err := s.parseToken(in.RefreshToken, "refresh"); err == nil {
		if jti, _ := claims["jti"].(string); jti != "" {
			s.mu.Lock()
			delete(s.refreshes, jti)
			s.mu.Unlock()
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePlayersList(w http.ResponseWriter, r *http.Request) {
	coachID := r.URL.Query().Get("coach_id")

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Player, 0, len(s.players))
	for _, p := range s.players {
		if coachID != "" && p.CoachID != coachID {
			continue
		}
		out = append(out, p)
	}

	writeData(w, http.StatusOK, out)
}

func (s *Server) handlePlayerByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.players {
		if p.ID == id {
			writeData(w, http.StatusOK, p)
			return
		}
	}

	writeErr(w, http.StatusNotFound, "not_found", "player not found")
}

func (s *Server) handleJournalsList(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player_id")

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.JournalEntry, 0)
	// Новые записи сверху.
	for i := len(s.journals) - 1; i >= 0; i-- {
		if playerID == "" || s.journals[i].PlayerID == playerID {
			out = append(out, s.journals[i])
		}
	}

	writeData(w, http.StatusOK, out)
}

func (s *Server) handleJournalAdd(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PlayerID string `json:"playerId"`
		Title    string `json:"title"`
		Body     string `json:"body"`
	}
	if !readJSON(w, r, &in) {
		return
	}

	if in.PlayerID == "" || in.Title == "" {
		writeErr(w, http.StatusBadRequest, "bad_request", "playerId and title are required")
		return
	}

	entry := models.JournalEntry{
		ID:        uuid.NewString(),
		PlayerID:  in.PlayerID,
		AuthorID:  userFrom(r.Context()).ID,
		Title:     in.Title,
		Body:      in.Body,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.journals = append(s.journals, entry)
	s.mu.Unlock()

	writeData(w, http.StatusCreated, entry)
}

func (s *Server) handleThreads(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Thread, 0)
	for _, t := range s.threads {
		for _, p := range t.Participants {
			if p == user.ID {
				out = append(out, t)
				break
			}
		}
	}

	writeData(w, http.StatusOK, out)
}

func (s *Server) handleThreadMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, t := range s.threads {
		if t.ID == id {
			found = true
			break
		}
	}
	if !found {
		writeErr(w, http.StatusNotFound, "not_found", "thread not found")
		return
	}

	out := make([]models.Message, 0)
	for _, m := range s.messages {
		if m.ThreadID == id {
			out = append(out, m)
		}
	}

	writeData(w, http.StatusOK, out)
}

func (s *Server) handleMessageSend(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ThreadID string `json:"threadId"`
		Body     string `json:"body"`
	}
	if !readJSON(w, r, &in) {
		return
	}

	if in.ThreadID == "" || in.Body == "" {
		writeErr(w, http.StatusBadRequest, "bad_request", "threadId and body are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var thread *models.Thread
	for i := range s.threads {
		if s.threads[i].ID == in.ThreadID {
			thread = &s.threads[i]
			break
		}
	}
	if thread == nil {
		writeErr(w, http.StatusNotFound, "not_found", "thread not found")
		return
	}

	msg := models.Message{
		ID:       uuid.NewString(),
		ThreadID: in.ThreadID,
		SenderID: userFrom(r.Context()).ID,
		Body:     in.Body,
		SentAt:   time.Now().UTC(),
	}
	s.messages = append(s.messages, msg)
	thread.UpdatedAt = msg.SentAt

	writeData(w, http.StatusCreated, msg)
}

func (s *Server) handleCalendarEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := time.Parse(time.RFC3339, q.Get("from"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", "from must be RFC3339")
		return
	}
	to, err := time.Parse(time.RFC3339, q.Get("to"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", "to must be RFC3339")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.CalendarEvent, 0)
	for _, e := range s.events {
		if !e.StartsAt.Before(from) && e.StartsAt.Before(to) {
			out = append(out, e)
		}
	}

	writeData(w, http.StatusOK, out)
}

func (s *Server) handleMatchesList(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player_id")

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Match, 0)
	for _, m := range s.matches {
		if playerID == "" || m.PlayerID == playerID {
			out = append(out, m)
		}
	}

	writeData(w, http.StatusOK, out)
}

func (s *Server) handleMatchRecord(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PlayerID string `json:"playerId"`
		Opponent string `json:"opponent"`
		Score    string `json:"score"`
		Won      bool   `json:"won"`
		PlayedAt string `json:"playedAt"`
	}
	if !readJSON(w, r, &in) {
		return
	}

	if in.PlayerID == "" {
		writeErr(w, http.StatusBadRequest, "bad_request", "playerId is required")
		return
	}

	playedAt := time.Now().UTC()
	if in.PlayedAt != "" {
		t, err := time.Parse(time.RFC3339, in.PlayedAt)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "bad_request", "playedAt must be RFC3339")
			return
		}
		playedAt = t
	}

	match := models.Match{
		ID:       uuid.NewString(),
		PlayerID: in.PlayerID,
		Opponent: in.Opponent,
		Score:    in.Score,
		Won:      in.Won,
		PlayedAt: playedAt,
	}

	s.mu.Lock()
	s.matches = append(s.matches, match)
	s.mu.Unlock()

	writeData(w, http.StatusCreated, match)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	now := time.Now()
	weekAgo := now.AddDate(0, 0, -7)

	s.mu.Lock()
	defer s.mu.Unlock()

	sum := models.DashboardSummary{Role: user.Role}
	for _, e := range s.events {
		if e.StartsAt.After(now) {
			sum.UpcomingEvents++
		}
	}
	for _, m := range s.matches {
		if m.PlayedAt.After(weekAgo) {
			sum.MatchesThisWeek++
		}
	}
	sum.JournalEntries = len(s.journals)
	for _, t := range s.threads {
		for _, p := range t.Participants {
			if p == user.ID {
				sum.UnreadMessages++
				break
			}
		}
	}

	writeData(w, http.StatusOK, sum)
}
