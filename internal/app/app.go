package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rsilvagit/go-airdrop/internal/config"
	"github.com/rsilvagit/go-airdrop/internal/filter"
	"github.com/rsilvagit/go-airdrop/internal/httpclient"
	"github.com/rsilvagit/go-airdrop/internal/httpserver"
	"github.com/rsilvagit/go-airdrop/internal/httpserver/deps"
	"github.com/rsilvagit/go-airdrop/internal/logger"
	"github.com/rsilvagit/go-airdrop/internal/metrics"
	"github.com/rsilvagit/go-airdrop/internal/output"
	"github.com/rsilvagit/go-airdrop/internal/pipeline"
	"github.com/rsilvagit/go-airdrop/internal/scheduler"
	"github.com/rsilvagit/go-airdrop/internal/scraper"
	"github.com/rsilvagit/go-airdrop/internal/store"
	"github.com/rsilvagit/go-airdrop/internal/version"
)

const (
	resultTTL       = 30 * 24 * time.Hour
	shutdownTimeout = 10 * time.Second
)

// Options are the command-line inputs to New.
type Options struct {
	ConfigPath string
	LogLevel   string    // overrides log_level when set
	Stdout     io.Writer // console output, defaults to os.Stdout
}

type App struct {
	cfg       *config.Config
	logger    logger.Logger
	store     store.Store
	pipeline  *pipeline.Pipeline
	writers   output.Multi
	scheduler *scheduler.Scheduler
	server    *httpserver.Server
	registry  *prometheus.Registry
}

// New loads the configuration and wires every component. The returned App
// owns the store connection; call Close when done.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.ConfigPath == "" {
		opts.ConfigPath = config.DefaultPath
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	loggerClient, err := logger.New(cfg.LogLevel, cfg.PrettyLog)
	if err != nil {
		return nil, fmt.Errorf("app: logger: %w", err)
	}
	if !cfg.FromFile {
		loggerClient.Warn("config file not found, using defaults", logger.String("path", opts.ConfigPath))
	}
	if cfg.AutoClaim {
		loggerClient.Warn("auto_claim is set but ignored: airdrops are never claimed automatically")
	}
	loggerClient.Debug("configuration loaded", logger.Any("config", cfg.Redacted()))

	st, err := openStore(ctx, cfg, loggerClient)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	client, err := httpclient.New(httpclient.Options{
		Timeout:    cfg.Fetch.Timeout,
		UserAgent:  cfg.Fetch.UserAgent,
		ProxyURL:   cfg.Fetch.ProxyURL,
		MinDelay:   cfg.Fetch.MinDelay,
		MaxDelay:   cfg.Fetch.MaxDelay,
		MaxRetries: cfg.Fetch.MaxRetries,
		MaxBody:    cfg.Fetch.MaxBody,
	}, loggerClient.With(logger.String("component", "httpclient")))
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	sources, err := scraper.Registry(cfg.Sources, client)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	p := pipeline.New(sources, filter.NewBlocklist(cfg.Blocklist), cfg.DedupMode,
		loggerClient.With(logger.String("component", "pipeline")), m)
	loggerClient.Info("sources configured", logger.Strings("sources", p.Sources()))

	writers := buildWriters(cfg, opts.Stdout, loggerClient)

	sched := scheduler.New(st, loggerClient, m)
	jobLog := loggerClient.With(logger.String("component", "jobs"))
	for _, e := range []scheduler.Entry{
		{Name: scheduler.JobScan, Spec: cfg.Schedule.Scan, Job: scheduler.ScanJob(p, st, writers, jobLog)},
		{Name: scheduler.JobReminder, Spec: cfg.Schedule.Reminder, Job: scheduler.ReminderJob(cfg.ReminderTasks, st, writers, nil)},
		{Name: scheduler.JobReport, Spec: cfg.Schedule.Report, Job: scheduler.ReportJob(p, st, writers, cfg.DedupMode, jobLog, nil)},
	} {
		if err := sched.Add(e.Name, e.Spec, e.Job); err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	a := &App{
		cfg:       cfg,
		logger:    loggerClient,
		store:     st,
		pipeline:  p,
		writers:   writers,
		scheduler: sched,
		registry:  reg,
	}

	if cfg.HTTPAddr != "" {
		a.server = httpserver.New(cfg.HTTPAddr, deps.Deps{
			Logger:    loggerClient.With(logger.String("component", "http")),
			StartTime: time.Now(),
			Version:   version.Version,
			Commit:    version.Commit,
			BuildDate: version.BuildDate,
			GoVersion: version.GoVersion,
			TimeNow:   time.Now,
			Store:     st,
			Gatherer:  reg,
			Jobs:      sched.Entries,
		})
	}
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (store.Store, error) {
	if cfg.RedisURL == "" {
		log.Info("no redis_url configured, keeping results in memory")
		return store.NewMemory(), nil
	}
	st, err := store.NewRedis(ctx, store.RedisOptions{URL: cfg.RedisURL, TTL: resultTTL}, log.With(logger.String("component", "store")))
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	log.Info("redis store ready")
	return st, nil
}

func buildWriters(cfg *config.Config, stdout io.Writer, log logger.Logger) output.Multi {
	writers := output.Multi{output.NewConsolePrinter(stdout)}
	if cfg.SnapshotFile != "" {
		writers = append(writers, output.NewSnapshotWriter(cfg.SnapshotFile))
	}
	if cfg.TelegramEnabled() {
		writers = append(writers, output.NewTelegramWriter(cfg.TelegramBotToken, cfg.TelegramChatID))
		log.Info("telegram notifications enabled")
	} else if cfg.TelegramBotToken != "" {
		log.Warn("telegram_bot_token set without telegram_chat_id, telegram notifications disabled")
	}
	if cfg.DiscordWebhookURL != "" {
		writers = append(writers, output.NewDiscordWriter(cfg.DiscordWebhookURL))
		log.Info("discord notifications enabled")
	}
	return writers
}

// Config returns the loaded configuration.
func (a *App) Config() *config.Config { return a.cfg }

// RunJob runs one named job immediately and returns its error.
func (a *App) RunJob(ctx context.Context, name string) error {
	return a.scheduler.RunNow(ctx, name)
}

// Run starts the scheduler and the optional HTTP server and blocks until
// SIGINT, SIGTERM or ctx cancellation.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting", logger.String("version", version.String()))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	if a.server != nil {
		go func() {
			if err := a.server.Start(); err != nil {
				errCh <- fmt.Errorf("http server error: %w", err)
			}
		}()
	}

	a.scheduler.CheckMissed(ctx, a.cfg.Schedule.BackfillMissed)

	schedDone := make(chan error, 1)
	go func() { schedDone <- a.scheduler.Run(ctx) }()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down gracefully")
	case err := <-errCh:
		runErr = err
		stop()
	}

	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.server.Stop(shutdownCtx); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("failed to stop server: %w", err))
		}
	}
	if err := <-schedDone; err != nil {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}

// Close releases the store and flushes the logger.
func (a *App) Close() error {
	err := a.store.Close()
	if err != nil {
		a.logger.Warn("failed to close store", logger.Error(err))
	}
	_ = a.logger.Sync()
	return err
}
