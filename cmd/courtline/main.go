// courtline — консольный клиент платформы Courtline.
//
// Сессия живёт в JSON-файле между запусками; транспорт сам обновляет
// протухший access-токен и повторяет запрос, команды об этом не знают.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/courtline/go-courtline/internal/clients"
	"github.com/courtline/go-courtline/internal/config"
	"github.com/courtline/go-courtline/internal/session"
	"github.com/courtline/go-courtline/internal/tokens"
	"github.com/courtline/go-courtline/internal/transport"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	jar, err := cookiejar.New(nil)
	if err != nil {
		log.Error("cookiejar_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	base, err := cfg.API.URL()
	if err != nil {
		log.Error("config_invalid", slog.String("err", err.Error()))
		os.Exit(1)
	}

	sessions := session.NewManager(session.Options{
		File:        cfg.Session.File,
		Jar:         jar,
		APIURL:      base,
		CookieNames: cfg.Session.CookieNames(),
		LoginPath:   cfg.Auth.LoginPath,
		OnExpired: func(loginPath string) {
			fmt.Fprintf(os.Stderr, "session expired, please log in again (%s)\n", loginPath)
		},
		Logger: log,
	})

	if err := sessions.Restore(); err != nil {
		log.Warn("session_restore_failed", slog.String("err", err.Error()))
	}

	httpc, err := transport.NewClient(cfg, sessions, tokens.NewInspector(), jar, log)
	if err != nil {
		log.Error("transport_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	cl, err := clients.New(cfg, httpc, log)
	if err != nil {
		log.Error("clients_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	a := &app{sessions: sessions, clients: cl, log: log}

	if err := a.run(rootCtx, args[0], args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	sessions *session.Manager
	clients  *clients.Clients
	log      *slog.Logger
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami()
	case "players":
		return a.players(ctx, args)
	case "journal":
		return a.journal(ctx, args)
	case "messages":
		return a.messages(ctx, args)
	case "calendar":
		return a.calendar(ctx)
	case "matches":
		return a.matches(ctx, args)
	case "dashboard":
		return a.dashboard(ctx)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: courtline login <email> [password]")
	}

	email := args[0]
	password := os.Getenv("COURTLINE_PASSWORD")
	if len(args) > 1 {
		password = args[1]
	}
	if password == "" {
		return fmt.Errorf("password required: pass as argument or via COURTLINE_PASSWORD")
	}

	sess, err := a.clients.Auth.Login(ctx, email, password)
	if err != nil {
		return err
	}

	if err := a.sessions.Establish(sess); err != nil {
		return err
	}

	fmt.Printf("logged in as %s (%s)\n", sess.User.Email, sess.User.Role)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	sess, ok := a.sessions.Current()
	if ok && sess.Tokens.RefreshToken != "" {
		// Отзыв на сервере — best effort: локальный teardown важнее.
		if err := a.clients.Auth.Logout(ctx, sess.Tokens.RefreshToken); err != nil {
			a.log.Warn("logout_revoke_failed", slog.String("err", err.Error()))
		}
	}

	if err := a.sessions.Teardown(); err != nil {
		return err
	}

	fmt.Println("logged out")
	return nil
}

func (a *app) whoami() error {
	sess, ok := a.sessions.Current()
	if !ok {
		fmt.Println("not logged in")
		return nil
	}

	u := sess.User
	fmt.Printf("%s %s <%s> role=%s id=%s\n", u.FirstName, u.LastName, u.Email, u.Role, u.ID)
	return nil
}

func (a *app) players(ctx context.Context, args []string) error {
	if len(args) > 0 {
		p, err := a.clients.Players.Get(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s %s\tlevel=%s\n", p.ID, p.FirstName, p.LastName, p.Level)
		return nil
	}

	list, err := a.clients.Players.List(ctx)
	if err != nil {
		return err
	}

	for _, p := range list {
		fmt.Printf("%s\t%s %s\tlevel=%s\n", p.ID, p.FirstName, p.LastName, p.Level)
	}
	return nil
}

func (a *app) journal(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: courtline journal <player-id> [add <title> <body>]")
	}

	playerID := args[0]

	if len(args) > 1 && args[1] == "add" {
		if len(args) < 4 {
			return fmt.Errorf("usage: courtline journal <player-id> add <title> <body>")
		}

		entry, err := a.clients.Journals.Add(ctx, playerID, args[2], args[3])
		if err != nil {
			return err
		}

		fmt.Printf("added entry %s\n", entry.ID)
		return nil
	}

	list, err := a.clients.Journals.List(ctx, playerID)
	if err != nil {
		return err
	}

	for _, e := range list {
		fmt.Printf("%s\t%s\t%s\n", e.CreatedAt.Format("2006-01-02"), e.Title, e.Body)
	}
	return nil
}

func (a *app) messages(ctx context.Context, args []string) error {
	if len(args) > 0 {
		list, err := a.clients.Messages.List(ctx, args[0])
		if err != nil {
			return err
		}

		for _, m := range list {
			fmt.Printf("%s\t%s\t%s\n", m.SentAt.Format(time.RFC3339), m.SenderID, m.Body)
		}
		return nil
	}

	threads, err := a.clients.Messages.Threads(ctx)
	if err != nil {
		return err
	}

	for _, t := range threads {
		fmt.Printf("%s\t%s\t(updated %s)\n", t.ID, t.Subject, t.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func (a *app) calendar(ctx context.Context) error {
	now := time.Now()

	events, err := a.clients.Calendar.Events(ctx, now, now.AddDate(0, 0, 7))
	if err != nil {
		return err
	}

	for _, e := range events {
		fmt.Printf("%s\t%s\t%s\t%s\n", e.StartsAt.Local().Format("2006-01-02 15:04"), e.Kind, e.Title, e.Location)
	}
	return nil
}

func (a *app) matches(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: courtline matches <player-id>")
	}

	list, err := a.clients.Matches.List(ctx, args[0])
	if err != nil {
		return err
	}

	for _, m := range list {
		result := "L"
		if m.Won {
			result = "W"
		}
		fmt.Printf("%s\t%s\tvs %s\t%s\n", m.PlayedAt.Format("2006-01-02"), result, m.Opponent, m.Score)
	}
	return nil
}

func (a *app) dashboard(ctx context.Context) error {
	sum, err := a.clients.Dashboard.Summary(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("role:              %s\n", sum.Role)
	fmt.Printf("upcoming events:   %d\n", sum.UpcomingEvents)
	fmt.Printf("unread messages:   %d\n", sum.UnreadMessages)
	fmt.Printf("journal entries:   %d\n", sum.JournalEntries)
	fmt.Printf("matches this week: %d\n", sum.MatchesThisWeek)
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: courtline [-config path] <command> [args]

commands:
  login <email> [password]                 sign in and store the session
  logout                                   revoke tokens and clear the session
  whoami                                   show the current identity
  players [id]                             list players or show one
  journal <player-id> [add <title> <body>] training journal
  messages [thread-id]                     threads or a thread's messages
  calendar                                 events for the next 7 days
  matches <player-id>                      played matches
  dashboard                                role summary`)
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
