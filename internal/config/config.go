// config — источник загрузки конфигурации клиента Courtline.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	API      APIConfig     `yaml:"api"`
	Auth     AuthConfig    `yaml:"auth"`
	Session  SessionConfig `yaml:"session"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// APIConfig — параметры сетевого слоя к бэкенду платформы.
type APIConfig struct {
	BaseURL   string `yaml:"base_url"   env:"API_BASE_URL"   env-default:"https://api.courtline.app"`
	UserAgent string `yaml:"user_agent" env:"API_USER_AGENT" env-default:"go-courtline"`
	RetryMax  int    `yaml:"retry_max"  env:"API_RETRY_MAX"  env-default:"2"`
}

// URL разбирает BaseURL. Ошибка — это ошибка конфигурации, не рантайма.
func (a APIConfig) URL() (*url.URL, error) {
	u, err := url.Parse(a.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api.base_url %q: %w", a.BaseURL, err)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api.base_url %q: scheme and host are required", a.BaseURL)
	}

	return u, nil
}

// AuthConfig — параметры протокола обновления токенов.
//
//   - AccessBuffer — запас, с которым access-токен считается истёкшим
//     (истечение "подсказывается" клиентом по claims, сервер — источник истины);
//   - RefreshBuffer — аналогичный запас для refresh-токена;
//   - LoginPath — путь логин-страницы, на которую "уводим" после teardown.
type AuthConfig struct {
	AccessBuffer  time.Duration `yaml:"access_buffer"  env:"AUTH_ACCESS_BUFFER"  env-default:"5m"`
	RefreshBuffer time.Duration `yaml:"refresh_buffer" env:"AUTH_REFRESH_BUFFER" env-default:"60m"`
	LoginPath     string        `yaml:"login_path"     env:"AUTH_LOGIN_PATH"     env-default:"/login"`
}

// SessionConfig — персистентная часть сессии на стороне клиента.
type SessionConfig struct {
	// File — путь к JSON-файлу сессии; пустая строка отключает персистентность.
	File          string `yaml:"file"           env:"SESSION_FILE"`
	CookieAccess  string `yaml:"cookie_access"  env:"SESSION_COOKIE_ACCESS"  env-default:"courtline_access"`
	CookieRefresh string `yaml:"cookie_refresh" env:"SESSION_COOKIE_REFRESH" env-default:"courtline_refresh"`
	CookieSession string `yaml:"cookie_session" env:"SESSION_COOKIE_SESSION" env-default:"courtline_sid"`
}

// CookieNames — три сессионные куки, гасимые при teardown.
func (s SessionConfig) CookieNames() []string {
	return []string{s.CookieAccess, s.CookieRefresh, s.CookieSession}
}

// TimeoutConfig — таймауты сетевых вызовов.
//
//   - Request — обычный вызов API;
//   - Calendar — календарные выборки (исторически заметно дольше);
//   - Refresh — сам вызов обновления токенов;
//   - RefreshWait — предел ожидания чужого refresh-полёта для
//     поставленного в очередь запроса (независим от таймаута повтора).
type TimeoutConfig struct {
	Request     time.Duration `yaml:"request"      env:"TIMEOUT_REQUEST"      env-default:"30s"`
	Calendar    time.Duration `yaml:"calendar"     env:"TIMEOUT_CALENDAR"     env-default:"90s"`
	Refresh     time.Duration `yaml:"refresh"      env:"TIMEOUT_REFRESH"      env-default:"15s"`
	RefreshWait time.Duration `yaml:"refresh_wait" env:"TIMEOUT_REFRESH_WAIT" env-default:"45s"`
}

// MustLoad — паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		if err := cleanenv.ReadConfig("local.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read local.yaml: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}
	return &cfg, nil
}
