package models

// TokenPair — пара токенов, которой владеет клиент.
//
// Описание:
//   - AccessToken — короткоживущий bearer-токен для вызовов API;
//   - RefreshToken — долгоживущий токен, обмениваемый на новую пару.
//
// Оба — непрозрачные строки; срок действия зашит в декодируемые claims
// (см. internal/tokens). Подпись клиент не проверяет.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// User — текущая аутентифицированная личность.
// Само наличие User определяет, применяется ли auth-обработка вообще.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Role — роль пользователя на платформе.
type Role string

const (
	RolePlayer Role = "player"
	RoleCoach  Role = "coach"
	RoleParent Role = "parent"
	RoleAdmin  Role = "admin"
)

// Session — текущая сессия: личность + токены.
// Владеет ею исключительно session.Manager; транспорт только читает
// и просит обновления, сам состояние не мутирует.
type Session struct {
	User   *User     `json:"user,omitempty"`
	Tokens TokenPair `json:"tokens"`
}

// Authenticated сообщает, есть ли аутентифицированная личность.
func (s Session) Authenticated() bool { return s.User != nil }
