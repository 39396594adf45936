package storage

import (
	"fmt"

	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/core"
)

// Open picks the gateway named by cfg.Driver.
func Open(cfg config.Storage) (core.Gateway, error) {
	switch cfg.Driver {
	case config.DriverBadger:
		return OpenBadger(cfg.BadgerPath)
	case config.DriverPostgres:
		return OpenPostgres(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
