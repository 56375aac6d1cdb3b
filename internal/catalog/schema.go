package catalog

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/dbo/pkg/types"
)

var schemas = map[string][]string{
	types.DriverSQLite: {
		"CREATE TABLE IF NOT EXISTS `widget` (" +
			"`widget_id` INTEGER PRIMARY KEY AUTOINCREMENT, " +
			"`name` TEXT NOT NULL DEFAULT '')",
		"CREATE TABLE IF NOT EXISTS `note` (" +
			"`note_id` INTEGER PRIMARY KEY AUTOINCREMENT, " +
			"`title` TEXT NOT NULL DEFAULT '', " +
			"`body` TEXT NOT NULL DEFAULT '', " +
			"`due` DATE NULL, " +
			"`posted` DATETIME NULL, " +
			"`reminder` TIME NULL)",
		"CREATE INDEX IF NOT EXISTS `note_title` ON `note` (`title`)",
	},
	types.DriverMySQL: {
		"CREATE TABLE IF NOT EXISTS `widget` (" +
			"`widget_id` INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY, " +
			"`name` VARCHAR(255) NOT NULL DEFAULT '') ENGINE=InnoDB",
		"CREATE TABLE IF NOT EXISTS `note` (" +
			"`note_id` INT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY, " +
			"`title` VARCHAR(255) NOT NULL DEFAULT '', " +
			"`body` TEXT NOT NULL, " +
			"`due` DATE NULL, " +
			"`posted` DATETIME NULL, " +
			"`reminder` TIME NULL, " +
			"KEY `note_title` (`title`)) ENGINE=InnoDB",
	},
}

// Performer runs DDL statements.
type Performer interface {
	Perform(ctx context.Context, query string) error
}

// Schema returns the DDL statements for driver.
func Schema(driver string) ([]string, error) {
	stmts, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("%w: no schema for %q", types.ErrDriverUnknown, driver)
	}
	return stmts, nil
}

// Install creates the catalog tables if they do not exist.
func Install(ctx context.Context, db Performer, driver string) error {
	stmts, err := Schema(driver)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if err := db.Perform(ctx, stmt); err != nil {
			return fmt.Errorf("install schema: %w", err)
		}
	}
	return nil
}
