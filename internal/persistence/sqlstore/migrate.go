package sqlstore

import (
	"context"
	"crypto/sha256"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

var (
	// ErrInvalidMigrationFile indicates a migration file name or body that cannot be used.
	ErrInvalidMigrationFile = errors.New("sqlstore: invalid migration file")
	// ErrDuplicateVersion indicates two migration files share a version.
	ErrDuplicateVersion = errors.New("sqlstore: duplicate migration version")
	// ErrChecksumMismatch indicates an applied migration whose file has since changed.
	ErrChecksumMismatch = errors.New("sqlstore: migration checksum mismatch")
)

var migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// Migration is one versioned schema change.
type Migration struct {
	Version     string
	Description string
	SQL         string
	Checksum    string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version       string        `db:"version"`
	AppliedAt     string        `db:"applied_at"`
	Checksum      string        `db:"checksum"`
	ExecutionTime time.Duration `db:"-"`
	ExecutionMS   int64         `db:"execution_time_ms"`
}

// Migrate applies every embedded migration that has not yet been recorded.
func (s *Store) Migrate(ctx context.Context) error {
	migrations, err := loadMigrations(embeddedMigrations, "migrations")
	if err != nil {
		return err
	}
	return s.apply(ctx, migrations)
}

func (s *Store) apply(ctx context.Context, migrations []Migration) error {
	logger := s.log(ctx)

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL,
			checksum TEXT,
			execution_time_ms INTEGER
		)`); err != nil {
		return fmt.Errorf("sqlstore: create schema_migrations: %w", err)
	}

	applied, err := s.AppliedMigrations(ctx)
	if err != nil {
		return err
	}
	byVersion := make(map[string]AppliedMigration, len(applied))
	for _, m := range applied {
		byVersion[m.Version] = m
	}

	pending := 0
	for _, migration := range migrations {
		if existing, ok := byVersion[migration.Version]; ok {
			if existing.Checksum != "" && existing.Checksum != migration.Checksum {
				return fmt.Errorf("%w: version %s", ErrChecksumMismatch, migration.Version)
			}
			continue
		}
		pending++

		started := time.Now()
		if err := s.withTx(ctx, func(tx *sqlx.Tx) error {
			for i, stmt := range parseSQL(migration.SQL) {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("sqlstore: migration %s statement %d: %w", migration.Version, i+1, err)
				}
			}
			_, err := tx.ExecContext(ctx, tx.Rebind(`
				INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms)
				VALUES (?, ?, ?, ?)`),
				migration.Version, s.stamp(), migration.Checksum, time.Since(started).Milliseconds())
			return err
		}); err != nil {
			logger.Error("migration failed", "version", migration.Version, "error", err)
			return err
		}

		logger.Info("migration applied",
			"version", migration.Version,
			"description", migration.Description,
			"duration", time.Since(started))
	}

	if pending == 0 {
		logger.Debug("schema up to date", "migrations", len(migrations))
	}
	return nil
}

// AppliedMigrations lists recorded migrations ordered by version.
func (s *Store) AppliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	var applied []AppliedMigration
	err := s.db.SelectContext(ctx, &applied, `
		SELECT version, applied_at, COALESCE(checksum, '') AS checksum, COALESCE(execution_time_ms, 0) AS execution_time_ms
		FROM schema_migrations
		ORDER BY version ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list applied migrations: %w", err)
	}
	for i := range applied {
		applied[i].ExecutionTime = time.Duration(applied[i].ExecutionMS) * time.Millisecond
	}
	return applied, nil
}

func loadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: read migrations: %w", err)
	}

	seen := make(map[string]string)
	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		matches := migrationFilePattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			return nil, fmt.Errorf("%w: %s does not match {version}_{description}.sql", ErrInvalidMigrationFile, entry.Name())
		}
		version := matches[1]
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("%w: %s in %s and %s", ErrDuplicateVersion, version, other, entry.Name())
		}
		seen[version] = entry.Name()

		body, err := fs.ReadFile(fsys, dir+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("sqlstore: read %s: %w", entry.Name(), err)
		}
		content := string(body)
		if len(parseSQL(content)) == 0 {
			return nil, fmt.Errorf("%w: %s has no statements", ErrInvalidMigrationFile, entry.Name())
		}

		description := describe(content)
		if description == "" {
			description = strings.ReplaceAll(matches[2], "_", " ")
		}

		migrations = append(migrations, Migration{
			Version:     version,
			Description: description,
			SQL:         content,
			Checksum:    fmt.Sprintf("%x", sha256.Sum256(body)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		vi, _ := strconv.Atoi(migrations[i].Version)
		vj, _ := strconv.Atoi(migrations[j].Version)
		return vi < vj
	})
	return migrations, nil
}

// describe returns the "-- Description:" header of a migration, if any.
func describe(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "--") {
			break
		}
		if rest, ok := strings.CutPrefix(line, "-- Description:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// parseSQL splits a migration body into statements, dropping comment-only lines.
func parseSQL(content string) []string {
	var statements []string
	for _, stmt := range strings.Split(content, ";") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "--") {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			statements = append(statements, strings.Join(lines, "\n"))
		}
	}
	return statements
}
