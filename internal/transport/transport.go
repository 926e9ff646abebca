package transport

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/courtline/go-courtline/internal/config"
	"github.com/courtline/go-courtline/internal/tokens"
)

// NewClient собирает готовый http.Client платформы.
//
// Цепочка транспортов (внешний -> внутренний):
//
//	Authorize (инъекция bearer + X-Request-Id)
//	  -> Gate (401 + single-flight refresh + однократный повтор)
//	    -> retryablehttp (повторы сетевых сбоев и 5xx)
//
// Повторы retryablehttp живут НИЖЕ шлюза: 401 они не трогают,
// а повтор после refresh сам проходит через них.
func NewClient(cfg *config.Config, sessions Sessions, inspect *tokens.Inspector, jar http.CookieJar, lg *slog.Logger) (*http.Client, error) {
	const op = "transport.NewClient"

	base, err := cfg.API.URL()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.API.RetryMax
	rc.Logger = nil
	// Таймаутом владеет внешний http.Client.
	rc.HTTPClient.Timeout = 0

	gate := NewGate(
		&retryablehttp.RoundTripper{Client: rc},
		sessions,
		inspect,
		GateOptions{
			RefreshURL:     base.JoinPath("auth", "refresh").String(),
			AccessBuffer:   cfg.Auth.AccessBuffer,
			RefreshBuffer:  cfg.Auth.RefreshBuffer,
			RefreshTimeout: cfg.Timeouts.Refresh,
			RefreshWait:    cfg.Timeouts.RefreshWait,
			Logger:         lg,
		},
	)

	return &http.Client{
		Transport: &Authorize{
			Base:      gate,
			Sessions:  sessions,
			UserAgent: cfg.API.UserAgent,
		},
		Timeout: cfg.Timeouts.Request,
		Jar:     jar,
	}, nil
}
