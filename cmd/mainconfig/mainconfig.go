package mainconfig

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/consult-booking/internal/booking"
	appconfig "github.com/wolfman30/consult-booking/internal/config"
	"github.com/wolfman30/consult-booking/internal/meetingapi"
	"github.com/wolfman30/consult-booking/internal/sessions"
	"github.com/wolfman30/consult-booking/pkg/logging"
)

// LoadDotEnv reads .env files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("mainconfig: load %s: %w", f, err)
		}
	}
	return nil
}

// NewRedisClient centralizes Redis initialization so both binaries share the
// same TLS/password wiring.
func NewRedisClient(cfg *appconfig.Config) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}

// SessionBackend is the configured session store plus an optional health probe.
type SessionBackend struct {
	Store sessions.Store
	Ping  func(ctx context.Context) error
	Close func() error
}

// NewSessionBackend picks Redis or memory sessions. Redis is probed once so a
// bad address fails at startup rather than on the first request.
func NewSessionBackend(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*SessionBackend, error) {
	if cfg.UseMemorySessions || strings.TrimSpace(cfg.RedisAddr) == "" {
		logger.Info("using in-memory wizard sessions", "ttl", cfg.WizardSessionTTL.String())
		return &SessionBackend{
			Store: sessions.NewMemoryStore(cfg.WizardSessionTTL),
			Close: func() error { return nil },
		}, nil
	}

	client := NewRedisClient(cfg)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("mainconfig: redis ping %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("using redis wizard sessions", "addr", cfg.RedisAddr, "ttl", cfg.WizardSessionTTL.String())
	return &SessionBackend{
		Store: sessions.NewRedisStore(client, cfg.WizardSessionTTL),
		Ping:  func(ctx context.Context) error { return client.Ping(ctx).Err() },
		Close: client.Close,
	}, nil
}

// NewMeetingClient builds the remote meeting API client from config.
func NewMeetingClient(cfg *appconfig.Config, logger *logging.Logger, observer meetingapi.Observer) *meetingapi.Client {
	opts := []meetingapi.Option{
		meetingapi.WithTimeout(cfg.MeetingAPITimeout),
		meetingapi.WithDryRun(cfg.MeetingAPIDryRun),
	}
	if observer != nil {
		opts = append(opts, meetingapi.WithObserver(observer))
	}
	if cfg.MeetingAPIDryRun {
		logger.Warn("meeting API dry run enabled; submissions are not sent")
	}
	return meetingapi.NewClient(cfg.MeetingAPIBaseURL, logger, opts...)
}

// WizardOptions maps config onto wizard options.
func WizardOptions(cfg *appconfig.Config, logger *logging.Logger) []booking.Option {
	return []booking.Option{
		booking.WithLogger(logger),
		booking.WithDefaultTimezone(cfg.DefaultTimezone),
	}
}
