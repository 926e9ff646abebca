// tokens — клиентская инспекция сроков действия bearer-токенов.
//
// Инспектор декодирует claims без проверки подписи: это подсказка об
// истечении, а не граница доверия — источником истины остаётся сервер.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken — строка не разбирается как JWT.
	ErrMalformedToken = errors.New("malformed token")

	// ErrNoExpiry — в claims нет exp.
	ErrNoExpiry = errors.New("token has no expiry claim")
)

// Inspector отвечает на единственный вопрос: истёк ли токен с учётом
// запаса buffer. Верди́кт — чистая функция от токена и текущего времени.
type Inspector struct {
	parser *jwt.Parser
	now    func() time.Time
}

// NewInspector создаёт инспектор с системными часами.
func NewInspector() *Inspector {
	return &Inspector{
		parser: jwt.NewParser(),
		now:    time.Now,
	}
}

// WithClock подменяет источник времени (для тестов).
func (i *Inspector) WithClock(now func() time.Time) *Inspector {
	i.now = now
	return i
}

// ExpiresAt извлекает exp из claims токена.
func (i *Inspector) ExpiresAt(raw string) (time.Time, error) {
	const op = "tokens.inspect.ExpiresAt"

	claims := jwt.MapClaims{}
	if _, _, err := i.parser.ParseUnverified(raw, claims); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w: %w", op, ErrMalformedToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w: %w", op, ErrMalformedToken, err)
	}

	if exp == nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, ErrNoExpiry)
	}

	return exp.Time, nil
}

// Expired сообщает, истёк ли токен с учётом запаса buffer:
// токен считается истёкшим, если exp <= now + buffer.
// Недекодируемый токен считается истёкшим (с ошибкой в придачу),
// решение о дальнейшей судьбе — на вызывающем.
func (i *Inspector) Expired(raw string, buffer time.Duration) (bool, error) {
	at, err := i.ExpiresAt(raw)
	if err != nil {
		return true, err
	}

	return !at.After(i.now().Add(buffer)), nil
}
