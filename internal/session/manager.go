// session — владелец клиентской сессии (личность + пара токенов).
//
// Основные аспекты:
//   - Manager — единственный владелец состояния сессии; транспорт читает
//     через Current и просит мутаций через Update/Teardown, но никогда
//     не мутирует состояние сам.
//   - Экземпляр безопасен для конкурентного использования: все мутации
//     выполняются под мьютексом и завершаются до возврата.
//   - Персистентность — JSON-файл (опционально), чтобы CLI переживал
//     перезапуски процесса.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/courtline/go-courtline/internal/models"
)

// ErrNoSession — операция требует установленной сессии.
var ErrNoSession = errors.New("no active session")

// Options — зависимости и параметры менеджера.
type Options struct {
	// File — путь к JSON-файлу сессии; пустая строка отключает персистентность.
	File string

	// Jar и APIURL нужны, чтобы при teardown погасить сессионные куки.
	Jar    http.CookieJar
	APIURL *url.URL

	// CookieNames — имена кук, гасимых при teardown.
	CookieNames []string

	// LoginPath — куда «уводить» после разрушения сессии.
	LoginPath string

	// OnExpired — аналог навигации на логин в SPA: вызывается один раз
	// на каждое разрушение аутентифицированной сессии.
	OnExpired func(loginPath string)

	Logger *slog.Logger
}

// Manager владеет текущей сессией.
type Manager struct {
	mu   sync.Mutex
	sess models.Session
	opts Options
	log  *slog.Logger
}

// NewManager создаёт менеджер. Сессии ещё нет — см. Restore/Establish.
func NewManager(opts Options) *Manager {
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}

	return &Manager{opts: opts, log: l}
}

// Restore поднимает сессию из файла, если он есть.
// Отсутствие файла — не ошибка: просто нет сессии.
func (m *Manager) Restore() error {
	const op = "session.manager.Restore"

	if m.opts.File == "" {
		return nil
	}

	data, err := os.ReadFile(m.opts.File)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// Битый файл сессии лечится заново логином, не падением.
		m.log.Warn("session_file_corrupt", slog.String("op", op), slog.String("err", err.Error()))
		return nil
	}

	m.mu.Lock()
	m.sess = sess
	m.mu.Unlock()

	return nil
}

// Current возвращает снимок сессии и признак аутентифицированности.
func (m *Manager) Current() (models.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sess, m.sess.Authenticated()
}

// Establish устанавливает новую сессию (после логина/регистрации).
func (m *Manager) Establish(sess models.Session) error {
	const op = "session.manager.Establish"

	if sess.User == nil {
		return fmt.Errorf("%s: session without user", op)
	}

	m.mu.Lock()
	m.sess = sess
	err := m.persistLocked()
	m.mu.Unlock()

	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Update заменяет пару токенов (и, если пришёл, пользователя) —
// путь успешного refresh.
func (m *Manager) Update(pair models.TokenPair, user *models.User) error {
	const op = "session.manager.Update"

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.sess.Authenticated() {
		return fmt.Errorf("%s: %w", op, ErrNoSession)
	}

	m.sess.Tokens = pair
	if user != nil {
		m.sess.User = user
	}

	if err := m.persistLocked(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Teardown безвозвратно завершает сессию: чистит состояние, удаляет
// файл сессии, гасит сессионные куки и дергает OnExpired.
//
// Идемпотентен: повторные и конкурентные вызовы безопасны; OnExpired
// вызывается один раз на каждое разрушение аутентифицированной сессии.
func (m *Manager) Teardown() error {
	const op = "session.manager.Teardown"

	m.mu.Lock()

	wasAuthenticated := m.sess.Authenticated()
	m.sess = models.Session{}

	var fileErr error
	if m.opts.File != "" {
		if err := os.Remove(m.opts.File); err != nil && !errors.Is(err, os.ErrNotExist) {
			fileErr = err
		}
	}

	m.expireCookiesLocked()
	m.mu.Unlock()

	if wasAuthenticated {
		m.log.Info("session_teardown", slog.String("op", op))
		if m.opts.OnExpired != nil {
			m.opts.OnExpired(m.opts.LoginPath)
		}
	}

	if fileErr != nil {
		return fmt.Errorf("%s: %w", op, fileErr)
	}

	return nil
}

// expireCookiesLocked подменяет сессионные куки на просроченные.
func (m *Manager) expireCookiesLocked() {
	if m.opts.Jar == nil || m.opts.APIURL == nil {
		return
	}

	expired := make([]*http.Cookie, 0, len(m.opts.CookieNames))
	for _, name := range m.opts.CookieNames {
		if name == "" {
			continue
		}

		expired = append(expired, &http.Cookie{
			Name:    name,
			Value:   "",
			Path:    "/",
			MaxAge:  -1,
			Expires: time.Unix(0, 0),
		})
	}

	if len(expired) > 0 {
		m.opts.Jar.SetCookies(m.opts.APIURL, expired)
	}
}

func (m *Manager) persistLocked() error {
	if m.opts.File == "" {
		return nil
	}

	data, err := json.Marshal(m.sess)
	if err != nil {
		return err
	}

	return os.WriteFile(m.opts.File, data, 0o600)
}
