package database

import (
	"fmt"
	"log"

	"planhub-be/internal/model"

	"gorm.io/gorm"
)

// Models lists every table the service owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.UserRefreshToken{},
		&model.Plan{},
		&model.PlanFile{},
		&model.Purchase{},
		&model.DownloadToken{},
		&model.Notification{},
	}
}

var setupSQL = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
}

// Constraints gorm tags cannot express. Every statement is idempotent.
var constraintSQL = []string{
	`DO $$ BEGIN
		ALTER TABLE purchases ADD CONSTRAINT chk_purchases_status CHECK (payment_status IN ('pending', 'completed'));
	EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
	`DO $$ BEGIN
		ALTER TABLE purchases ADD CONSTRAINT chk_purchases_amount CHECK (amount >= 0);
	EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
	`DO $$ BEGIN
		ALTER TABLE plans ADD CONSTRAINT chk_plans_status CHECK (status IN ('Available', 'Draft'));
	EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
	`DO $$ BEGIN
		ALTER TABLE users ADD CONSTRAINT chk_users_role CHECK (role IN ('customer', 'designer', 'admin'));
	EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
	`DO $$ BEGIN
		ALTER TABLE download_tokens ADD CONSTRAINT chk_download_tokens_count CHECK (download_count >= 0 AND download_count <= max_downloads);
	EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
	// At most one live token per purchase.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_download_tokens_live_purchase
		ON download_tokens (purchase_id) WHERE is_used = false AND purchase_id IS NOT NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_purchases_references
		ON purchases USING gin ((metadata->'references'));`,
}

// Migrate brings the schema up to date. Safe to run repeatedly.
func Migrate(db *gorm.DB) error {
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	for _, sql := range constraintSQL {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("apply constraint: %w", err)
		}
	}
	return nil
}
