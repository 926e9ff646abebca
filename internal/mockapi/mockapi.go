// mockapi — локальный стенд платформы Courtline.
//
// Поднимает в памяти совместимый срез REST API: bootstrap-эндпойнты
// аутентификации (HS256-токены с ротацией refresh) и доменные разделы
// с посеянными демо-данными. Предназначен для интеграционных тестов
// клиента и для разработки без доступа к настоящему бэкенду.
package mockapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/courtline/go-courtline/internal/mockapi/middleware"
	"github.com/courtline/go-courtline/internal/models"
)

// Options — параметры стенда.
//
// RefreshAccessTTL — срок жизни access-токена, выдаваемого именно при
// refresh (по умолчанию равен AccessTTL). Короткое значение позволяет
// в тестах и при разработке быстро гонять цикл 401 -> refresh -> повтор.
type Options struct {
	Secret           string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	RefreshAccessTTL time.Duration

	// RequestTimeout — общий дедлайн обработки запроса; 0 отключает.
	RequestTimeout time.Duration

	Logger *slog.Logger
}

// Server — состояние стенда: аккаунты, выданные refresh-токены
// и демо-данные доменных разделов. Все операции идут под одним мьютексом,
// для стенда этого достаточно.
type Server struct {
	opts Options

	mu        sync.Mutex
	accounts  map[string]*account // ключ — email
	usersByID map[string]*models.User
	refreshes map[string]string // jti -> user id; presence = токен действителен
	otps      map[string]string // email -> одноразовый код
	resets    map[string]string // reset-токен -> email

	players  []models.Player
	journals []models.JournalEntry
	threads  []models.Thread
	messages []models.Message
	events   []models.CalendarEvent
	matches  []models.Match
}

type account struct {
	password string
	user     *models.User
}

// New создаёт стенд с демо-данными. Нулевые поля Options получают
// разумные значения по умолчанию.
func New(opts Options) *Server {
	if opts.Secret == "" {
		opts.Secret = "mockapi-secret"
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 30 * 24 * time.Hour
	}
	if opts.RefreshAccessTTL <= 0 {
		opts.RefreshAccessTTL = opts.AccessTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		opts:      opts,
		accounts:  make(map[string]*account),
		usersByID: make(map[string]*models.User),
		refreshes: make(map[string]string),
		otps:      make(map[string]string),
		resets:    make(map[string]string),
	}
	s.seed()

	return s
}

// Handler собирает роутер стенда с подключёнными middleware.
func (s *Server) Handler() http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logging(s.opts.Logger),
		middleware.AuthBearer(),
	)
	if s.opts.RequestTimeout > 0 {
		root.Use(middleware.Timeout(s.opts.RequestTimeout))
	}

	// auth: открытые bootstrap-эндпойнты.
	root.Post("/auth/register", s.handleRegister)
	root.Post("/auth/login", s.handleLogin)
	root.Post("/auth/refresh", s.handleRefresh)
	root.Post("/auth/generate-otp", s.handleGenerateOTP)
	root.Post("/auth/verify-otp", s.handleVerifyOTP)
	root.Post("/auth/forgot-password", s.handleForgotPassword)
	root.Post("/auth/reset-password", s.handleResetPassword)
	root.Post("/auth/logout", s.handleLogout)

	// Доменные разделы — только с действующим access-токеном.
	root.Group(func(r chi.Router) {
		r.Use(s.guard)

		r.Get("/players", s.handlePlayersList)
		r.Get("/players/{id}", s.handlePlayerByID)

		r.Get("/journals", s.handleJournalsList)
		r.Post("/journals", s.handleJournalAdd)

		r.Get("/messages/threads", s.handleThreads)
		r.Get("/messages/threads/{id}/messages", s.handleThreadMessages)
		r.Post("/messages", s.handleMessageSend)

		r.Get("/calendar/events", s.handleCalendarEvents)

		r.Get("/matches", s.handleMatchesList)
		r.Post("/matches", s.handleMatchRecord)

		r.Get("/dashboard", s.handleDashboard)
	})

	return root
}

// issuePair выдаёт новую пару токенов; refresh регистрируется как действующий.
func (s *Server) issuePair(user *models.User, accessTTL time.Duration) (models.TokenPair, error) {
	const op = "mockapi.issuePair"

	now := time.Now()

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"role":  string(user.Role),
		"typ":   "access",
		"iat":   now.Unix(),
		"exp":   now.Add(accessTTL).Unix(),
	})

	accessRaw, err := access.SignedString([]byte(s.opts.Secret))
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	jti := uuid.NewString()
	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID,
		"jti": jti,
		"typ": "refresh",
		"iat": now.Unix(),
		"exp": now.Add(s.opts.RefreshTTL).Unix(),
	})

	refreshRaw, err := refresh.SignedString([]byte(s.opts.Secret))
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	s.refreshes[jti] = user.ID

	return models.TokenPair{AccessToken: accessRaw, RefreshToken: refreshRaw}, nil
}

// parseToken проверяет подпись и тип токена, возвращает claims.
func (s *Server) parseToken(raw, typ string) (jwt.MapClaims, error) {
	const op = "mockapi.parseToken"

	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.opts.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || claims["typ"] != typ {
		return nil, fmt.Errorf("%s: wrong token type", op)
	}

	return claims, nil
}

// guard пропускает дальше только запросы с действующим access-токеном;
// пользователь кладётся в контекст запроса.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := middleware.TokenFrom(r.Context())
		if !ok {
			writeErr(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}

		claims, err := s.parseToken(raw, "access")
		if err != nil {
			writeErr(w, http.StatusUnauthorized, "unauthenticated", "invalid or expired token")
			return
		}

		sub, _ := claims["sub"].(string)

		s.mu.Lock()
		user := s.usersByID[sub]
		s.mu.Unlock()

		if user == nil {
			writeErr(w, http.StatusUnauthorized, "unauthenticated", "unknown user")
			return
		}

		next.ServeHTTP(w, r.WithContext(intoUser(r.Context(), user)))
	})
}
