package storage

import (
	"fmt"

	"livescore-client/database"
	"livescore-client/pkg/common"
)

// Local store backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Open returns the local store for backend together with its release func.
// The postgres backend connects and migrates before returning.
func Open(backend, path, databaseURL, namespace string) (Store, func() error, error) {
	noop := func() error { return nil }

	switch backend {
	case "", BackendFile:
		fs, err := OpenFileStore(path)
		if err != nil {
			return nil, nil, err
		}
		return fs, noop, nil

	case BackendMemory:
		return NewMemoryStore(), noop, nil

	case BackendPostgres:
		db, err := database.Connect(databaseURL)
		if err != nil {
			return nil, nil, common.NewAppError(common.CodeStorage, "failed to connect to database", err)
		}
		if err := database.Migrate(db); err != nil {
			db.Close()
			return nil, nil, common.NewAppError(common.CodeStorage, "failed to migrate database", err)
		}
		return NewPostgresStore(db, namespace), db.Close, nil
	}

	return nil, nil, fmt.Errorf("%w: unknown store backend %q", common.ErrInvalidInput, backend)
}
