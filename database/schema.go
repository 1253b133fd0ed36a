package database

import (
	"database/sql"
	"fmt"

	"github.com/apex/log"
)

// InitSchema creates the necessary database tables if they don't exist
func InitSchema(db *sql.DB) error {
	log.Info("Initializing hazard-service database schema...")

	reportsTableSQL := `
	CREATE TABLE IF NOT EXISTS hazard_reports(
		id CHAR(36) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		type ENUM('pothole', 'waterlogging', 'other') NOT NULL,
		description TEXT NOT NULL,
		lat DOUBLE NOT NULL,
		lng DOUBLE NOT NULL,
		address VARCHAR(512) NOT NULL,
		reported_by VARCHAR(255) NOT NULL,
		status ENUM('active', 'investigating', 'resolved') NOT NULL DEFAULT 'active',
		votes INT NOT NULL DEFAULT 0,
		comments INT NOT NULL DEFAULT 0,
		image_url VARCHAR(1024),
		PRIMARY KEY (id),
		INDEX reported_by_index (reported_by),
		INDEX status_index (status),
		INDEX lat_lng_index (lat, lng)
	)`

	if _, err := db.Exec(reportsTableSQL); err != nil {
		return fmt.Errorf("failed to create hazard_reports table: %w", err)
	}
	log.Info("Hazard_reports table created/verified")

	votesTableSQL := `
	CREATE TABLE IF NOT EXISTS hazard_votes(
		id INT NOT NULL AUTO_INCREMENT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		hazard_id CHAR(36) NOT NULL,
		user_id VARCHAR(255) NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY hazard_user_unique (hazard_id, user_id),
		INDEX hazard_id_index (hazard_id)
	)`

	if _, err := db.Exec(votesTableSQL); err != nil {
		return fmt.Errorf("failed to create hazard_votes table: %w", err)
	}
	log.Info("Hazard_votes table created/verified")

	profilesTableSQL := `
	CREATE TABLE IF NOT EXISTS profiles(
		id VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		full_name VARCHAR(255) NOT NULL,
		avatar_url VARCHAR(1024),
		PRIMARY KEY (id)
	)`

	if _, err := db.Exec(profilesTableSQL); err != nil {
		return fmt.Errorf("failed to create profiles table: %w", err)
	}
	log.Info("Profiles table created/verified")

	addFKConstraints(db)

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Hazard-service database schema initialization completed")
	return nil
}

// addFKConstraints adds foreign key constraints for referential integrity
func addFKConstraints(db *sql.DB) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*)
		FROM information_schema.TABLE_CONSTRAINTS
		WHERE CONSTRAINT_SCHEMA = DATABASE()
		AND CONSTRAINT_NAME = 'fk_hazard_votes_hazard_id'
	`).Scan(&count)

	if err != nil {
		log.Warnf("Could not check for existing foreign key constraints: %v", err)
		return
	}

	if count == 0 {
		_, err := db.Exec(`
			ALTER TABLE hazard_votes
			ADD CONSTRAINT fk_hazard_votes_hazard_id
			FOREIGN KEY (hazard_id) REFERENCES hazard_reports(id) ON DELETE CASCADE
		`)
		if err != nil {
			log.Warnf("Could not add foreign key constraint for hazard_votes: %v", err)
		} else {
			log.Info("Added foreign key constraint for hazard_votes")
		}
	}
}

// runMigrations handles schema migrations for existing tables
func runMigrations(db *sql.DB) error {
	log.Info("Running database migrations...")

	if err := addCommentsColumnToReports(db); err != nil {
		return fmt.Errorf("failed to add comments column to hazard_reports: %w", err)
	}

	if err := addStatusIndexToReports(db); err != nil {
		return fmt.Errorf("failed to add status_index to hazard_reports: %w", err)
	}

	log.Info("Database migrations completed successfully")
	return nil
}

// addCommentsColumnToReports adds the comments counter to installations
// predating it.
func addCommentsColumnToReports(db *sql.DB) error {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*)
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE()
		AND TABLE_NAME = 'hazard_reports'
		AND COLUMN_NAME = 'comments'
	`).Scan(&count)

	if err != nil {
		log.Warnf("Could not check if comments column exists: %v", err)
		return err
	}

	if count == 0 {
		_, err := db.Exec(`
			ALTER TABLE hazard_reports
			ADD COLUMN comments INT NOT NULL DEFAULT 0
		`)
		if err != nil {
			log.Warnf("Could not add comments column to hazard_reports table: %v", err)
			return err
		}
		log.Info("Added comments column to hazard_reports table")
	}

	return nil
}

// addStatusIndexToReports adds the status_index if missing.
func addStatusIndexToReports(db *sql.DB) error {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*)
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = DATABASE()
		AND TABLE_NAME = 'hazard_reports'
		AND INDEX_NAME = 'status_index'
	`).Scan(&count)

	if err != nil {
		log.Warnf("Could not check if status_index exists: %v", err)
		return err
	}

	if count == 0 {
		_, err := db.Exec(`
			ALTER TABLE hazard_reports
			ADD INDEX status_index (status)
		`)
		if err != nil {
			log.Warnf("Could not add status_index to hazard_reports table: %v", err)
			return err
		}
		log.Info("Added status_index to hazard_reports table")
	}

	return nil
}
