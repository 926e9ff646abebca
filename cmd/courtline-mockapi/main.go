// courtline-mockapi — локальный стенд платформы для разработки и
// интеграционных тестов клиента.
//
// Короткий -access-ttl позволяет вживую наблюдать цикл
// 401 -> refresh -> повтор на стороне клиента.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/courtline/go-courtline/internal/mockapi"
)

func main() {
	var (
		addr       string
		secret     string
		accessTTL  time.Duration
		refreshTTL time.Duration
	)
	flag.StringVar(&addr, "addr", "localhost:8080", "listen address")
	flag.StringVar(&secret, "secret", "", "HS256 signing secret (random-ish default)")
	flag.DurationVar(&accessTTL, "access-ttl", 15*time.Minute, "access token lifetime")
	flag.DurationVar(&refreshTTL, "refresh-ttl", 30*24*time.Hour, "refresh token lifetime")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(log)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	srv := mockapi.New(mockapi.Options{
		Secret:     secret,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		Logger:     log,
	})

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", addr), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("mockapi_listen_start",
		slog.String("addr", addr),
		slog.String("coach", mockapi.SeedCoachEmail),
		slog.String("player", mockapi.SeedPlayerEmail),
		slog.String("password", mockapi.SeedPassword),
	)

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	log.Info("mockapi_stopped")
}
