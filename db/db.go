package db

import (
	"gallery/config"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var Instance *gorm.DB

// Init connects to MySQL when MYSQL_DSN is configured and falls back to SQLITE_FILE otherwise
func Init() {
	var dialector gorm.Dialector
	if config.MYSQL_DSN != "" {
		log.Printf("Using MySQL database")
		dialector = mysql.Open(config.MYSQL_DSN)
	} else {
		log.Printf("Using SQLite database: %s", config.SQLITE_FILE)
		dialector = sqlite.Open(config.SQLITE_FILE + "?_busy_timeout=5000&_journal_mode=WAL")
	}
	if err := Open(dialector); err != nil {
		panic(err)
	}
}

func Open(dialector gorm.Dialector) error {
	logLevel := logger.Warn
	if !config.DEBUG_MODE {
		logLevel = logger.Error
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		Logger:                 logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return err
	}
	Instance = db
	return nil
}
