// © 2025 Mikhail Vasnetsov. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mvasnetsov/pressbot/internal/api/devto"
	"github.com/mvasnetsov/pressbot/internal/api/gemini"
	ghactions "github.com/mvasnetsov/pressbot/internal/api/github/actions"
	"github.com/mvasnetsov/pressbot/internal/api/telegram"
	"github.com/mvasnetsov/pressbot/internal/cli"
	"github.com/mvasnetsov/pressbot/internal/filelock"
	"github.com/mvasnetsov/pressbot/internal/git"
	"github.com/mvasnetsov/pressbot/internal/httplogger"
	"github.com/mvasnetsov/pressbot/internal/logger"
	"github.com/mvasnetsov/pressbot/internal/request"
	"github.com/mvasnetsov/pressbot/internal/state"

	"github.com/joho/godotenv"
	"github.com/mmcdole/gofeed"
)

//go:embed error.tmpl
var errorTemplate string

// Some types of errors that can happen during pressbot execution.
var (
	errNoTelegramToken   = errors.New("environment variable TELEGRAM_TOKEN is not defined")
	errNoChatID          = errors.New("environment variable CHAT_ID is not defined")
	errNoGeminiKey       = errors.New("environment variable GEMINI_API_KEY is not defined")
	errSiteNotConfigured = errors.New("site URL is not configured, add site(url = ...) to config.star")
)

func main() { cli.Main(new(bot)) }

func (b *bot) Flags(fs *flag.FlagSet) {
	fs.StringVar(&b.dir, "dir", ".", "Site repository `directory` the bot operates in.")
	fs.BoolVar(&b.dry, "dry", false, "Enable dry-run mode: log actions, but don't send messages, write files or publish.")
	fs.BoolVar(&b.json, "json", false, "Output in JSON format (honored by the status mode).")
}

func (b *bot) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	// A .env file in the site directory supplies secrets outside of CI.
	// Variables already present in the environment win.
	getenv := env.Getenv
	if vars, err := godotenv.Read(filepath.Join(b.dir, ".env")); err == nil {
		getenv = func(key string) string {
			if v := env.Getenv(key); v != "" {
				return v
			}
			return vars[key]
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	// Load configuration from environment variables.
	b.tgToken = cmp.Or(b.tgToken, getenv("TELEGRAM_TOKEN"))
	b.chatID = cmp.Or(b.chatID, getenv("CHAT_ID"))
	b.geminiKey = cmp.Or(b.geminiKey, getenv("GEMINI_API_KEY"))
	b.devtoKey = cmp.Or(b.devtoKey, getenv("DEVTO_API_KEY"))
	b.ghToken = cmp.Or(b.ghToken, getenv("DEPLOY_GITHUB_TOKEN"))
	b.ghRepo = cmp.Or(b.ghRepo, getenv("GITHUB_REPO"))

	// Initialize internal state.
	b.init.Do(func() {
		b.doInit(ctx)
	})

	// Enable debug logging in dry-run mode.
	if b.dry {
		b.slogLevel.Set(slog.LevelDebug)
	}

	if err := b.loadConfig(); err != nil {
		return err
	}

	var mode string
	if len(env.Args) > 0 {
		mode = env.Args[0]
	}
	mode = cmp.Or(mode, getenv("MODE"), "trends")

	switch mode {
	case "trends":
		if err := b.requireTelegram(); err != nil {
			return err
		}
		return b.trends(ctx)
	case "draft":
		if err := b.requireTelegram(); err != nil {
			return err
		}
		if b.geminiKey == "" {
			return errNoGeminiKey
		}
		if err := b.draft(ctx); err != nil {
			return b.errNotify(ctx, err)
		}
		return nil
	case "publish":
		if err := b.requireTelegram(); err != nil {
			return err
		}
		if err := b.publish(ctx); err != nil {
			return b.errNotify(ctx, err)
		}
		return nil
	case "status":
		return b.status(env.Stdout)
	default:
		return fmt.Errorf("%w: no such mode %q", cli.ErrInvalidArgs, mode)
	}
}

type bot struct {
	init sync.Once

	// configuration
	chatID    string
	devtoKey  string
	dir       string
	dry       bool
	geminiKey string
	ghRepo    string
	ghToken   string
	json      bool
	tgToken   string
	// now acts as time.Now, but can be mocked for testing.
	now func() time.Time

	// initialized by doInit
	actions   *ghactions.Client
	commit    func(ctx context.Context, message string) error
	devto     *devto.Client
	fp        *gofeed.Parser
	gemini    *gemini.Client
	httpc     *http.Client
	logf      func(string, ...any)
	scrubber  *strings.Replacer
	slog      *slog.Logger
	slogLevel *slog.LevelVar
	tg        *telegram.Client

	// loaded from config.star
	cfg *config
}

func (b *bot) doInit(ctx context.Context) {
	env := cli.GetEnv(ctx)
	b.logf = log.New(env.Stderr, "", 0).Printf
	if b.now == nil {
		b.now = time.Now
	}

	var scrub []string
	for _, secret := range []string{b.tgToken, b.geminiKey, b.devtoKey, b.ghToken} {
		if secret != "" {
			scrub = append(scrub, secret, "[EXPUNGED]")
		}
	}
	if len(scrub) > 0 {
		b.scrubber = strings.NewReplacer(scrub...)
	}

	if b.httpc == nil {
		b.httpc = request.DefaultClient
		// Dry-run mode traces every request the bot would make.
		if b.dry {
			b.httpc = &http.Client{Transport: httplogger.New(http.DefaultTransport, b.logf, b.scrubber)}
		}
	}

	b.fp = gofeed.NewParser()

	l := logger.Get(ctx)
	b.slogLevel = l.Level
	b.slog = l.Logger

	b.tg = telegram.New(telegram.Config{
		Token:      b.tgToken,
		ChatID:     b.chatID,
		HTTPClient: b.httpc,
		Scrubber:   b.scrubber,
		Logger:     b.slog,
	})
	b.gemini = &gemini.Client{
		APIKey:     b.geminiKey,
		HTTPClient: b.httpc,
		Scrubber:   b.scrubber,
	}
	b.devto = &devto.Client{
		APIKey:     b.devtoKey,
		HTTPClient: b.httpc,
		Scrubber:   b.scrubber,
	}
	b.actions = &ghactions.Client{
		Token:      b.ghToken,
		HTTPClient: b.httpc,
		Scrubber:   b.scrubber,
	}

	if b.commit == nil {
		b.commit = git.New(b.dir).CommitAll
	}
}

func (b *bot) requireTelegram() error {
	if b.tgToken == "" {
		return errNoTelegramToken
	}
	if b.chatID == "" {
		return errNoChatID
	}
	return nil
}

func (b *bot) openState() (*state.Store, error) {
	return state.Open(filepath.Join(b.dir, state.FileName))
}

// errNotify reports err to the operator chat. The returned error is the
// notification failure, if any: a delivered report counts as handled.
func (b *bot) errNotify(ctx context.Context, err error) error {
	b.slog.Error("run failed", slog.Any("error", err))
	if b.dry {
		return err
	}
	return b.tg.SendMessage(ctx, fmt.Sprintf(errorTemplate, err))
}

func (b *bot) status(w io.Writer) error {
	data, err := state.Peek(filepath.Join(b.dir, state.FileName))
	if err != nil {
		return err
	}

	if b.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}

	if lock := state.RunLockPath(b.dir); filelock.IsLocked(lock) {
		fmt.Fprintf(w, "Run in progress: %s\n", cmp.Or(filelock.Owner(lock), "unknown"))
	}

	if len(data.Trends) == 0 && data.Draft == nil && data.Pending == nil {
		fmt.Fprintln(w, "No pipeline state. Run the trends mode first.")
		return nil
	}

	if len(data.Trends) > 0 {
		fmt.Fprintln(w, "Trends:")
		for i, t := range data.Trends {
			fmt.Fprintf(w, "  %d. %s\n", i+1, t.Title)
		}
	}
	if data.Draft != nil {
		fmt.Fprintf(w, "Draft: %s (%s)\n", data.Draft.Title, cmp.Or(data.Draft.PrimaryTech, "unknown tech"))
	}
	if data.Pending != nil {
		var question string
		switch data.Pending.Question {
		case state.SelectTrend:
			question = "trend selection"
		case state.DecidePublish:
			question = "publish decision"
		default:
			question = string(data.Pending.Question)
		}
		fmt.Fprintf(w, "Waiting for: %s (asked %s)\n", question, relativeTime(data.Pending.AskedAt, b.now()))
	}
	return nil
}

func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 48*time.Hour:
		return "yesterday"
	}
	return fmt.Sprintf("%dd ago", int(d.Hours()/24))
}
