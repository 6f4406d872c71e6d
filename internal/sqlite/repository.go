package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pavel-fokin/rdf-cubes/internal/artifacts"
	_ "modernc.org/sqlite"
)

// Repository implements artifacts.Repository and the conversion log using SQLite
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite repository
func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := &Repository{db: db}

	if err := repo.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return repo, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// initSchema creates the necessary database tables
func (r *Repository) initSchema() error {
	createArtifactsQuery := `
	CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		size INTEGER NOT NULL,
		mime_type TEXT NOT NULL,
		checksum TEXT NOT NULL,
		source TEXT,
		measure TEXT,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);`
	if _, err := r.db.Exec(createArtifactsQuery); err != nil {
		return fmt.Errorf("failed to create artifacts table: %w", err)
	}

	createConversionsQuery := `
	CREATE TABLE IF NOT EXISTS conversions (
		id TEXT PRIMARY KEY,
		source_name TEXT NOT NULL,
		safe_name TEXT,
		measure TEXT NOT NULL,
		success INTEGER NOT NULL,
		kind TEXT,
		message TEXT NOT NULL,
		artifact_id TEXT,
		created_at DATETIME NOT NULL
	);`
	if _, err := r.db.Exec(createConversionsQuery); err != nil {
		return fmt.Errorf("failed to create conversions table: %w", err)
	}

	createIndexesQuery := `
	CREATE INDEX IF NOT EXISTS idx_artifacts_expires_at ON artifacts(expires_at);
	CREATE INDEX IF NOT EXISTS idx_conversions_created_at ON conversions(created_at);
	`
	if _, err := r.db.Exec(createIndexesQuery); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

const artifactColumns = `id, name, size, mime_type, checksum, source, measure, created_at, expires_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row scanner) (*artifacts.Artifact, error) {
	var artifact artifacts.Artifact
	var source, measure sql.NullString
	err := row.Scan(
		&artifact.ID,
		&artifact.Name,
		&artifact.Size,
		&artifact.MimeType,
		&artifact.Checksum,
		&source,
		&measure,
		&artifact.CreatedAt,
		&artifact.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	artifact.Source = source.String
	artifact.Measure = measure.String
	return &artifact, nil
}

// Create stores artifact metadata
func (r *Repository) Create(artifact *artifacts.Artifact) error {
	query := `
	INSERT INTO artifacts (` + artifactColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		artifact.ID,
		artifact.Name,
		artifact.Size,
		artifact.MimeType,
		artifact.Checksum,
		artifact.Source,
		artifact.Measure,
		artifact.CreatedAt,
		artifact.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create artifact record: %w", err)
	}

	return nil
}

// FindByID retrieves artifact metadata by ID
func (r *Repository) FindByID(id string) (*artifacts.Artifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM artifacts WHERE id = ?`

	artifact, err := scanArtifact(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, artifacts.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find artifact: %w", err)
	}

	return artifact, nil
}

// List retrieves all artifact metadata, newest first
func (r *Repository) List() ([]*artifacts.Artifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM artifacts ORDER BY created_at DESC`
	return r.queryArtifacts(query)
}

// ListExpired retrieves the artifacts that expired before now
func (r *Repository) ListExpired(now time.Time) ([]*artifacts.Artifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM artifacts WHERE expires_at < ? ORDER BY expires_at`
	return r.queryArtifacts(query, now.UTC())
}

func (r *Repository) queryArtifacts(query string, args ...any) ([]*artifacts.Artifact, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var list []*artifacts.Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artifact row: %w", err)
		}
		list = append(list, artifact)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artifact rows: %w", err)
	}

	return list, nil
}

// Delete removes artifact metadata by ID
func (r *Repository) Delete(id string) error {
	query := `DELETE FROM artifacts WHERE id = ?`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete artifact record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return artifacts.ErrNotFound
	}

	return nil
}
