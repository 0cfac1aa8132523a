package repository

import (
	"errors"

	"github.com/chanyoung/vinum/app/vinumd/domain/model/table"
)

// ErrNotExist means no configuration has been saved yet.
var ErrNotExist = errors.New("no saved configuration")

// Store is a persistent store of the whole vinum configuration.
type Store interface {
	// Save writes the configuration. A configuration with a version
	// lower than the latest saved one is ignored.
	Save(cfg table.Config) error

	// Load returns the latest saved configuration, or ErrNotExist.
	Load() (table.Config, error)

	Close() error
}
