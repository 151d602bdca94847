package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/credstore"
)

const envPrefix = "FINTRACK"

// settings is the resolved CLI configuration.
type settings struct {
	BaseURL         string        `mapstructure:"base-url"`
	Store           string        `mapstructure:"store"`
	StorePath       string        `mapstructure:"store-path"`
	RedisAddr       string        `mapstructure:"redis-addr"`
	RedisPrefix     string        `mapstructure:"redis-prefix"`
	BackgroundGrace time.Duration `mapstructure:"background-grace"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Audit           bool          `mapstructure:"audit"`
	AuditFile       string        `mapstructure:"audit-file"`
	Verbose         bool          `mapstructure:"verbose"`
}

type app struct {
	v        *viper.Viper
	cfgFile  string
	settings settings
}

func newApp() *app {
	return &app{v: viper.New()}
}

func (a *app) bindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.String("base-url", "", "backend base URL, e.g. https://api.fintrack.example")
	flags.String("store", "file", "credential store: file, redis or memory")
	flags.String("store-path", "", "credential file (default <user config dir>/fintrack/session.json)")
	flags.String("redis-addr", "localhost:6379", "redis address for --store=redis")
	flags.String("redis-prefix", "fintrack", "redis key prefix for --store=redis")
	flags.Duration("background-grace", 5*time.Minute, "inactivity window before a backgrounded session ends")
	flags.Duration("timeout", 30*time.Second, "deadline for each command")
	flags.Bool("audit", false, "log audit events to stderr")
	flags.String("audit-file", "", "also append audit events as JSON lines to this file (implies --audit)")
	flags.BoolP("verbose", "v", false, "enable debug logging")
}

// load resolves settings from flags, environment and the optional config file.
func (a *app) load(cmd *cobra.Command) error {
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", a.cfgFile, err)
		}
	}

	var s settings
	if err := a.v.Unmarshal(&s); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	if s.AuditFile != "" {
		s.Audit = true
	}
	if s.Store == "file" && s.StorePath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("locate config dir: %w", err)
		}
		s.StorePath = filepath.Join(dir, "fintrack", "session.json")
	}
	a.settings = s
	return nil
}

func (a *app) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if a.settings.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (a *app) openStore() (credstore.Store, func(), error) {
	s := a.settings
	switch s.Store {
	case "file":
		return credstore.NewFileStore(s.StorePath), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: s.RedisAddr})
		return credstore.NewRedisStore(client, s.RedisPrefix, 0), func() { _ = client.Close() }, nil
	case "memory":
		return credstore.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", s.Store)
	}
}

// session builds a controller, bootstraps it and runs fn under the command deadline.
func (a *app) session(cmd *cobra.Command, fn func(ctx context.Context, c *goSession.Controller) error) error {
	s := a.settings
	if s.BaseURL == "" {
		return errors.New("base URL is required: set --base-url or FINTRACK_BASE_URL")
	}

	store, closeStore, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	logger := a.logger(cmd.ErrOrStderr())

	cfg := goSession.DefaultConfig()
	cfg.Backend.BaseURL = s.BaseURL
	cfg.Lifecycle.BackgroundGrace = s.BackgroundGrace
	cfg.Audit.Enabled = s.Audit

	if a.settings.Verbose {
		for _, w := range cfg.Lint() {
			logger.Debug("fintrack-session: config lint", "code", w.Code, "message", w.Message)
		}
	}

	b := goSession.New().
		WithConfig(cfg).
		WithStore(store).
		WithLogger(logger)
	if s.Audit {
		auditLog := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
		sinks := goSession.MultiSink{goSession.NewSlogSink(auditLog, slog.LevelInfo)}
		if s.AuditFile != "" {
			f, err := os.OpenFile(s.AuditFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
			if err != nil {
				return fmt.Errorf("open audit file: %w", err)
			}
			defer f.Close()
			sinks = append(sinks, goSession.NewJSONWriterSink(f))
		}
		b.WithAuditSink(sinks)
	}
	c, err := b.Build()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), s.Timeout)
	defer cancel()

	c.Bootstrap(ctx)
	return fn(ctx, c)
}
