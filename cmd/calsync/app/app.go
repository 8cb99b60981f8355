// Package app provides configuration loading, dependency wiring, and
// lifecycle management for the calsync CLI. Every collaborator is built
// here and injected; there are no process-wide mutable singletons.
package app

import (
	"github.com/rs/zerolog"

	"github.com/caremesh/calsync/internal/allowlist"
	"github.com/caremesh/calsync/internal/cache"
	"github.com/caremesh/calsync/internal/carecal"
	"github.com/caremesh/calsync/internal/workcal"
	"github.com/caremesh/calsync/pkg/identity"
	"github.com/caremesh/calsync/pkg/logging"
	"github.com/caremesh/calsync/pkg/sync"
)

// App is the calsync application with all its dependencies.
type App struct {
	version string
	commit  string
	date    string

	config *Config
	logger *zerolog.Logger
}

// New creates an App instance with the given version information.
func New(version, commit, date string) (*App, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		config:  config,
	}

	logger := NewLogger(config)
	app.logger = &logger
	logging.SetDefault(logger)

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// NewRunner builds the reconciliation runner from configuration. Client
// construction validates credentials, so a misconfigured run fails here,
// before any task executes.
func (a *App) NewRunner() (*sync.Runner, error) {
	workCache := cache.New(a.config.CacheTTL, a.config.CacheSize)
	careCache := cache.New(a.config.CacheTTL, a.config.CacheSize)

	work, err := workcal.New(workcal.Config{
		BaseURL: a.config.WorkBaseURL,
		User:    a.config.WorkUser,
		Token:   a.config.WorkToken,
	}, workCache)
	if err != nil {
		return nil, err
	}

	care, err := carecal.New(carecal.Config{
		BaseURL:              a.config.CareBaseURL,
		Token:                a.config.CareToken,
		PlaceholderPatientID: a.config.CarePlaceholderPatient,
	}, careCache)
	if err != nil {
		return nil, err
	}

	allow, err := a.loadAllowlist()
	if err != nil {
		return nil, err
	}

	deps := sync.Deps{
		Work:         work,
		Care:         care,
		WorkStore:    work.LinkStore(),
		CareStore:    care.LinkStore(),
		CareMatcher:  identity.NewMatcher(care.Directory(), careCache),
		WorkResolver: a.workResolver(work, workCache),
	}

	opts := []sync.Option{sync.WithAllowList(allow)}
	if a.config.Lookback > 0 {
		opts = append(opts, sync.WithLookback(a.config.Lookback))
	}
	if a.config.OccurringWindow > 0 {
		opts = append(opts, sync.WithOccurringWindow(a.config.OccurringWindow))
	}
	if a.config.OrphanWindow > 0 {
		opts = append(opts, sync.WithOrphanWindow(a.config.OrphanWindow))
	}

	return sync.NewRunner(deps, opts...)
}

// workResolver picks the counterpart-placement strategy: a fixed shared
// calendar when one is configured, per-owner identity matching otherwise.
func (a *App) workResolver(work *workcal.Client, workCache *cache.Cache) sync.CounterpartResolver {
	if a.config.SharedCalendarName != "" {
		user := a.config.SharedCalendarUser
		if user == "" {
			user = a.config.WorkUser
		}
		return &sync.SharedCalendarResolver{
			Work:         work,
			User:         user,
			CalendarName: a.config.SharedCalendarName,
		}
	}
	return &sync.MatcherResolver{
		Matcher: identity.NewMatcher(work.Directory(), workCache),
	}
}

func (a *App) loadAllowlist() (*allowlist.List, error) {
	if a.config.AllowlistFile != "" {
		return allowlist.Load(a.config.AllowlistFile)
	}
	return allowlist.Parse(a.config.Allowlist), nil
}
