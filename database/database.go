package database

import (
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/crasadev/crasabot/models"
	"github.com/crasadev/crasabot/utils"
)

// Connect opens the configured database. An empty DSN falls back to a local
// sqlite file so the bot can run without a MySQL server.
func Connect(dsn string) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	if dsn == "" {
		db, err = gorm.Open(sqlite.Open("crasabot.db"), &gorm.Config{})
	} else {
		db, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	}
	if err != nil {
		return nil, err
	}
	utils.InfoLogger.Println("Database connection established")
	return db, nil
}

// Migrate creates or updates every table the bot uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.ChatMessage{},
		&models.Product{},
		&models.Flavor{},
		&models.Sale{},
		&models.SaleItem{},
	)
}
