package database

import (
	pgstore "taquilla/internal/store/postgres"

	"gorm.io/gorm"
)

// Migrate creates the store tables and the constraints gorm tags cannot express
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(pgstore.Models()...); err != nil {
		return err
	}
	return MigrateConstraints(db)
}

// MigrateConstraints adds the indexes the hold sweep and the order mirror rely on
func MigrateConstraints(db *gorm.DB) error {
	// One mirror row per order and buyer
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_user_orders_buyer_order
		ON user_orders (buyer_id, id);
	`).Error
	if err != nil {
		return err
	}

	// The sweep only ever scans reserved seats by expiry
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_seats_reserved_expiry
		ON seats (reservation_expiry)
		WHERE status = 'reserved';
	`).Error
	if err != nil {
		return err
	}

	// Intents by status for the admin listing
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_payment_intents_status_created
		ON payment_intents (status, created_at DESC);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
