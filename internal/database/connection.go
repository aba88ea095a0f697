package database

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"focusmru/internal/models"
)

const (
	defaultDBName = "focusmru.db"
	defaultDBDir  = ".config/focusmru"
)

type DB struct {
	*gorm.DB
}

// GetDefaultDBPath returns $XDG_CONFIG_HOME/focusmru/focusmru.db, or the
// same file under ~/.config, creating the directory.
func GetDefaultDBPath() (string, error) {
	var dbDir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dbDir = filepath.Join(xdg, "focusmru")
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "failed to get home directory")
		}
		dbDir = filepath.Join(homeDir, defaultDBDir)
	}

	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return "", errors.Wrap(err, "failed to create database directory")
	}

	return filepath.Join(dbDir, defaultDBName), nil
}

func Connect(dbPath string) (*DB, error) {
	if dbPath == "" {
		var err error
		dbPath, err = GetDefaultDBPath()
		if err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", dbPath)
	}

	return &DB{db}, nil
}

func (db *DB) Initialize() error {
	if err := db.AutoMigrate(&models.FocusEvent{}, &models.ErrorLog{}); err != nil {
		return errors.Wrap(err, "failed to initialize database schema")
	}
	return nil
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get underlying sql.DB")
	}
	return sqlDB.Close()
}
