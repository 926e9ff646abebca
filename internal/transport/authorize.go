package transport

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/courtline/go-courtline/internal/models"
)

// Sessions — то, что транспорту нужно от сессионного слоя.
// Реализация — session.Manager; транспорт сам состояние не мутирует.
type Sessions interface {
	// Current — снимок сессии и признак аутентифицированности.
	Current() (models.Session, bool)
	// Update — замена пары токенов (путь успешного refresh).
	Update(pair models.TokenPair, user *models.User) error
	// Teardown — безвозвратное разрушение сессии. Идемпотентен.
	Teardown() error
}

// Authorize — исходящий интерсептор: добавляет в запрос
//   - Authorization: Bearer <access>, если есть аутентифицированная сессия
//     и запрос не к bootstrap-эндпойнту;
//   - X-Request-Id, если его ещё нет;
//   - User-Agent, если задан.
//
// Запрос он провалить не может — только аннотирует заголовки.
type Authorize struct {
	Base      http.RoundTripper
	Sessions  Sessions
	UserAgent string
}

func (a *Authorize) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTripper не имеет права мутировать исходный запрос.
	clone := req.Clone(req.Context())

	if clone.Header.Get("X-Request-Id") == "" {
		clone.Header.Set("X-Request-Id", uuid.NewString())
	}

	if a.UserAgent != "" && clone.Header.Get("User-Agent") == "" {
		clone.Header.Set("User-Agent", a.UserAgent)
	}

	// Bootstrap-эндпойнты обязаны работать без сессии: протухший или
	// отсутствующий токен не должен им мешать.
	if !IsBootstrap(req.URL.Path) && a.Sessions != nil {
		if sess, ok := a.Sessions.Current(); ok && sess.Tokens.AccessToken != "" {
			clone.Header.Set("Authorization", "Bearer "+sess.Tokens.AccessToken)
		}
	}

	base := a.Base
	if base == nil {
		base = http.DefaultTransport
	}

	return base.RoundTrip(clone)
}
