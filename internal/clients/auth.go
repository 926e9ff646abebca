package clients

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/courtline/go-courtline/pkg/redact"

	"github.com/courtline/go-courtline/internal/models"
)

// Auth — клиент bootstrap-эндпойнтов аутентификации.
// Эти вызовы идут без Authorization и никогда не запускают refresh
// (см. transport.BootstrapKindOf).
type Auth struct {
	api *api
}

// authEnvelope — форма data-секции ответов login/register/verify-otp.
type authEnvelope struct {
	Tokens models.TokenPair `json:"tokens"`
	User   *models.User     `json:"user"`
}

func (e authEnvelope) session() (models.Session, error) {
	if e.User == nil || e.Tokens.AccessToken == "" || e.Tokens.RefreshToken == "" {
		return models.Session{}, fmt.Errorf("incomplete auth response")
	}

	return models.Session{User: e.User, Tokens: e.Tokens}, nil
}

// Login обменивает креды на сессию.
func (c *Auth) Login(ctx context.Context, email, password string) (models.Session, error) {
	const op = "clients.auth.Login"

	in := map[string]string{"email": email, "password": password}

	var out authEnvelope
	if err := c.api.post(ctx, "/auth/login", in, &out); err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	sess, err := out.session()
	if err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	c.api.log.Info("login_ok",
		slog.String("op", op),
		slog.String("email", redact.Email(email)),
	)

	return sess, nil
}

// Register создаёт аккаунт и сразу возвращает сессию.
func (c *Auth) Register(ctx context.Context, email, password string, role models.Role) (models.Session, error) {
	const op = "clients.auth.Register"

	in := map[string]string{"email": email, "password": password, "role": string(role)}

	var out authEnvelope
	if err := c.api.post(ctx, "/auth/register", in, &out); err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	sess, err := out.session()
	if err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return sess, nil
}

// GenerateOTP просит одноразовый код на e-mail.
func (c *Auth) GenerateOTP(ctx context.Context, email string) error {
	const op = "clients.auth.GenerateOTP"

	if err := c.api.post(ctx, "/auth/generate-otp", map[string]string{"email": email}, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// VerifyOTP обменивает одноразовый код на сессию.
func (c *Auth) VerifyOTP(ctx context.Context, email, code string) (models.Session, error) {
	const op = "clients.auth.VerifyOTP"

	in := map[string]string{"email": email, "code": code}

	var out authEnvelope
	if err := c.api.post(ctx, "/auth/verify-otp", in, &out); err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	sess, err := out.session()
	if err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return sess, nil
}

// ForgotPassword запускает восстановление пароля.
func (c *Auth) ForgotPassword(ctx context.Context, email string) error {
	const op = "clients.auth.ForgotPassword"

	if err := c.api.post(ctx, "/auth/forgot-password", map[string]string{"email": email}, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ResetPassword завершает восстановление по коду из письма.
func (c *Auth) ResetPassword(ctx context.Context, token, password string) error {
	const op = "clients.auth.ResetPassword"

	in := map[string]string{"token": token, "password": password}
	if err := c.api.post(ctx, "/auth/reset-password", in, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Logout отзывает refresh-токен на сервере. Локальное состояние чистит
// session.Manager.Teardown, не этот вызов.
func (c *Auth) Logout(ctx context.Context, refreshToken string) error {
	const op = "clients.auth.Logout"

	if err := c.api.post(ctx, "/auth/logout", map[string]string{"refreshToken": refreshToken}, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
