package datastore

import (
	"github.com/tphakala/rfscan-go/internal/conf"
	"github.com/tphakala/rfscan-go/internal/errors"
	"github.com/tphakala/rfscan-go/internal/logger"
)

// Open creates the configured backend, migrates the schema and returns the
// store. A relative SQLite path is resolved against settings.Main.DataDir.
func Open(settings *conf.Settings, recorder OperationRecorder) (*Store, error) {
	log := GetLogger()

	var (
		manager Manager
		err     error
	)
	switch settings.Database.Type {
	case conf.DatabaseMySQL:
		my := settings.Database.MySQL
		manager, err = NewMySQLManager(&MySQLConfig{
			Host:     my.Host,
			Port:     my.Port,
			Username: my.Username,
			Password: my.Password,
			Database: my.Database,
		})
	default:
		manager, err = NewSQLiteManager(SQLiteConfig{
			Path: settings.DataPath(settings.Database.SQLite.Path),
		})
	}
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "open").
			Context("backend", settings.Database.Type).
			Build()
	}

	if err := manager.Initialize(); err != nil {
		_ = manager.Close()
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "migrate").
			Build()
	}

	store, err := New(manager, recorder)
	if err != nil {
		_ = manager.Close()
		return nil, err
	}

	log.Info("datastore opened",
		logger.String("backend", settings.Database.Type),
		logger.String("location", manager.Path()))
	return store, nil
}
