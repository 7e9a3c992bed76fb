package handler

import (
	log "github.com/sirupsen/logrus"

	"github.com/gatepost/gatepost/pkg/metrics"
)

// App ties the configuration file to the store and owns the reload state
// machine. The first Reload moves the store from empty to loaded; every
// later Reload either swaps the whole table or leaves the old one serving.
type App struct {
	configPath string
	store      *Store
	metrics    *metrics.Metrics
}

func NewApp(configPath string, m *metrics.Metrics) *App {
	return &App{
		configPath: configPath,
		store:      NewStore(),
		metrics:    m,
	}
}

func (a *App) Store() *Store {
	return a.store
}

// Handler returns the request dispatcher backed by this app's store.
func (a *App) Handler() HandlerState {
	return NewHandler(a.store, a.metrics)
}

// Reload re-reads the configuration file and runs the full validation and
// preparation pipeline. On any failure the active table keeps serving
// untouched; a valid configuration that moves the bind address is refused
// with ErrRestartRequired since the socket cannot be rebound live.
func (a *App) Reload() error {
	config, err := LoadConfiguration(a.configPath)
	if err != nil {
		a.metrics.CountReload("invalid")
		return err
	}

	table, err := BuildTable(config)
	if err != nil {
		a.metrics.CountReload("invalid")
		return err
	}

	if err := a.store.Replace(table); err != nil {
		a.metrics.CountReload("restart_required")
		return err
	}

	a.metrics.CountReload("applied")
	log.WithFields(log.Fields{
		"config":   a.configPath,
		"handlers": len(table.Handlers),
		"addr":     table.Addr(),
	}).Info("configuration loaded")

	return nil
}
