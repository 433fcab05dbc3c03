package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/grcwatch/notify-engine/internal/conf"
	"github.com/grcwatch/notify-engine/internal/datastore"
	"github.com/grcwatch/notify-engine/internal/datastore/repository"
	"github.com/grcwatch/notify-engine/internal/errors"
	"github.com/grcwatch/notify-engine/internal/logger"
	"github.com/grcwatch/notify-engine/internal/notify"
	"github.com/grcwatch/notify-engine/internal/scheduler"
	"github.com/grcwatch/notify-engine/internal/transport/email"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// app is the wired engine shared by every command.
type app struct {
	settings *conf.Settings
	log      logger.Logger
	db       *gorm.DB
	rules    repository.RuleRepository
	engine   *notify.Engine
	registry *prometheus.Registry
	closers  []func() error
}

func newApp() (*app, error) {
	settings, err := conf.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.NewZerologLogger(os.Stderr, logger.ParseLevel(settings.Log.Level), &logger.Options{JSON: settings.Log.JSON})

	if err := errors.InitSentry(errors.SentryConfig{
		DSN:         settings.Sentry.DSN,
		Environment: settings.Sentry.Environment,
		Release:     version,
	}); err != nil {
		log.Warn("sentry disabled", logger.Error(err))
	}

	db, err := datastore.Open(datastore.Config{
		Driver: settings.Database.Driver,
		DSN:    settings.Database.DSN,
		Debug:  settings.Database.Debug,
	}, log)
	if err != nil {
		return nil, err
	}

	sender, err := newEmailSender(settings.Email, log)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rules := repository.NewRuleRepository(db)
	engine := notify.NewEngine(notify.Stores{
		Rules:         rules,
		Preferences:   repository.NewPreferenceRepository(db),
		Notifications: repository.NewNotificationRepository(db),
		Directory:     repository.NewDirectoryRepository(db),
		Domain:        repository.NewDomainRepository(db),
	}, sender, notify.Options{
		Location:          settings.Engine.Location(),
		DefaultMaxPerHour: settings.Engine.DefaultMaxPerHour,
		ExcludeActor:      settings.Engine.ExcludeActor,
		ApprovalEmail:     settings.Engine.ApprovalEmail,
		ContactCacheTTL:   settings.Engine.ContactCacheTTL.Std(),
		Metrics:           notify.NewMetrics(reg),
	}, log)

	a := &app{
		settings: settings,
		log:      log,
		db:       db,
		rules:    rules,
		engine:   engine,
		registry: reg,
	}
	a.closers = append(a.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	return a, nil
}

func newEmailSender(cfg conf.EmailSettings, log logger.Logger) (email.Sender, error) {
	switch cfg.Driver {
	case "shoutrrr":
		return email.NewShoutrrrSender(cfg.ShoutrrrURL)
	case "smtp":
		return email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.From,
		}), nil
	case "log", "":
		return email.NewLogSender(log), nil
	default:
		return nil, fmt.Errorf("unsupported email driver %q", cfg.Driver)
	}
}

// scheduler builds the scan scheduler, using redis for locking when configured.
func (a *app) scheduler(ctx context.Context) (*scheduler.Scheduler, error) {
	var locker scheduler.Locker
	if url := a.settings.Scheduler.RedisURL; url != "" {
		rl, err := scheduler.NewRedisLocker(ctx, url)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rl.Close)
		locker = rl
	}

	sc := a.settings.Scheduler
	jobs := scheduler.EngineJobs(a.engine, scheduler.Intervals{
		Alerts:      sc.AlertsInterval.Std(),
		Expirations: sc.ExpirationInterval.Std(),
		Overdue:     sc.OverdueInterval.Std(),
		Purge:       sc.PurgeInterval.Std(),
	}, a.settings.Engine.RetentionDays)

	return scheduler.New(jobs, locker, scheduler.Options{
		RunTimeout: sc.RunTimeout.Std(),
		LockTTL:    sc.LockTTL.Std(),
	}, a.log), nil
}

func (a *app) healthCheck(ctx context.Context) error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", logger.Error(err))
		}
	}
	errors.FlushSentry(2 * time.Second)
}

func printResult(w io.Writer, v any) error {
	switch outputFmt {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported output format %q", outputFmt)
	}
}
