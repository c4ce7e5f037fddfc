// Package cache provides a SQLite-based store for chapters, verses and settings.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog/log"
)

const (
	// CurrentSchemaVersion is the current database schema version.
	CurrentSchemaVersion = "1"

	// DefaultDBPath is the default path for the cache database.
	DefaultDBPath = "data/luminous.db"
)

// DB represents the SQLite cache database.
type DB struct {
	mu            sync.RWMutex
	db            *sql.DB
	path          string
	isBuilding    bool
	buildProgress int
}

// NewDB creates a new cache database instance.
func NewDB(path string) *DB {
	if path == "" {
		path = DefaultDBPath
	}
	return &DB{
		path: path,
	}
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Open opens the database and initializes the schema.
func (d *DB) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", d.path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	d.db = db

	if err := d.initSchema(); err != nil {
		d.db.Close()
		d.db = nil
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info().Str("path", d.path).Msg("Cache database opened")
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		err := d.db.Close()
		d.db = nil
		return err
	}
	return nil
}

func (d *DB) initSchema() error {
	currentVersion := d.getSchemaVersion()

	if currentVersion == "" {
		if err := d.createSchema(); err != nil {
			return err
		}
		return d.setMeta("schema_version", CurrentSchemaVersion)
	}

	if currentVersion != CurrentSchemaVersion {
		log.Info().
			Str("current", currentVersion).
			Str("target", CurrentSchemaVersion).
			Msg("Migrating cache schema")
		return d.setMeta("schema_version", CurrentSchemaVersion)
	}

	return nil
}

// createSchema creates all database tables.
func (d *DB) createSchema() error {
	schema := `
	-- Chapters
	CREATE TABLE IF NOT EXISTS surahs (
		number INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		english_name TEXT NOT NULL,
		english_name_translation TEXT,
		number_of_ayahs INTEGER NOT NULL,
		revelation_type TEXT NOT NULL,
		transliteration_name TEXT,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	);

	-- Verses, one row per translation
	CREATE TABLE IF NOT EXISTS verses (
		surah_id INTEGER NOT NULL,
		number_in_surah INTEGER NOT NULL,
		translator TEXT NOT NULL,
		id INTEGER NOT NULL,
		text TEXT NOT NULL,
		translation TEXT,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (surah_id, number_in_surah, translator)
	);

	-- Persisted flags and small JSON values
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	);

	-- Cache metadata
	CREATE TABLE IF NOT EXISTS cache_meta (
		key TEXT PRIMARY KEY,
		value TEXT,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_verses_surah ON verses(surah_id, translator);
	`

	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	log.Info().Msg("Cache schema created")
	return nil
}

func (d *DB) getSchemaVersion() string {
	var version string
	err := d.db.QueryRow("SELECT value FROM cache_meta WHERE key = 'schema_version'").Scan(&version)
	if err != nil {
		return ""
	}
	return version
}

func (d *DB) setMeta(key, value string) error {
	now := time.Now().Format(time.RFC3339)
	_, err := d.db.Exec(`
		INSERT INTO cache_meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, now)
	return err
}

func (d *DB) getMeta(key string) (string, error) {
	var value string
	err := d.db.QueryRow("SELECT value FROM cache_meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// GetStats returns cache statistics.
func (d *DB) GetStats() (*CacheStats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.db == nil {
		return nil, ErrNotOpen
	}

	stats := &CacheStats{
		IsBuilding:    d.isBuilding,
		BuildProgress: d.buildProgress,
	}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM surahs", &stats.SurahCount},
		{"SELECT COUNT(*) FROM verses", &stats.VerseCount},
		{"SELECT COUNT(DISTINCT surah_id) FROM verses", &stats.CachedSurahs},
		{"SELECT COUNT(*) FROM settings", &stats.SettingCount},
	}
	for _, c := range counts {
		if err := d.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	stats.SchemaVersion, _ = d.getMeta("schema_version")

	if lastBuild, _ := d.getMeta("last_full_build"); lastBuild != "" {
		stats.LastFullBuild, _ = time.Parse(time.RFC3339, lastBuild)
	}
	if lastUpdated, _ := d.getMeta("last_updated"); lastUpdated != "" {
		stats.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)
	}

	return stats, nil
}

// SetBuildingState sets the cache building state.
func (d *DB) SetBuildingState(building bool, progress int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.isBuilding = building
	d.buildProgress = progress
}

// BeginTx starts a new transaction.
func (d *DB) BeginTx() (*sql.Tx, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil, ErrNotOpen
	}

	return d.db.Begin()
}

// Clear removes cached chapters and verses. Settings are kept.
func (d *DB) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return ErrNotOpen
	}

	for _, table := range []string{"verses", "surahs"} {
		if _, err := d.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	d.setMeta("last_updated", time.Now().Format(time.RFC3339))

	log.Info().Msg("Cache cleared")
	return nil
}

// MarkBuildComplete marks the cache build as complete.
func (d *DB) MarkBuildComplete() error {
	now := time.Now().Format(time.RFC3339)
	if err := d.setMeta("last_full_build", now); err != nil {
		return err
	}
	return d.setMeta("last_updated", now)
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer the DAO methods.
func (d *DB) DB() *sql.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}
