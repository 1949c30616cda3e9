package database

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ConnectorFunc func() (*gorm.DB, error)

// NewSQLiteConnector opens the local cache database at the given path.
// An empty path yields a private in-memory database, which the tests
// rely on.
func NewSQLiteConnector(filePath string) ConnectorFunc {
	if filePath == "" {
		filePath = "file::memory:"
	}

	return func() (*gorm.DB, error) {
		db, err := gorm.Open(sqlite.Open(filePath), &gorm.Config{
			Logger:          logger.Default.LogMode(logger.Silent),
			CreateBatchSize: 1000,
		})

		if err == nil {
			db.Exec("PRAGMA foreign_keys = ON")
			sqldb, _ := db.DB()
			sqldb.SetMaxOpenConns(1)
		}

		return db, err
	}
}
