package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/pavel-fokin/rdf-cubes/internal/uploads"
)

// Record stores a conversion history entry
func (r *Repository) Record(rec *uploads.Record) error {
	query := `
	INSERT INTO conversions (id, source_name, safe_name, measure, success, kind, message, artifact_id, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		rec.ID,
		rec.SourceName,
		rec.SafeName,
		rec.Measure,
		rec.Success,
		string(rec.Kind),
		rec.Message,
		rec.ArtifactID,
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create conversion record: %w", err)
	}

	return nil
}

// Conversions lists conversion history entries, newest first
func (r *Repository) Conversions(limit int) ([]*uploads.Record, error) {
	query := `
	SELECT id, source_name, safe_name, measure, success, kind, message, artifact_id, created_at
	FROM conversions
	ORDER BY created_at DESC
	LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversions: %w", err)
	}
	defer rows.Close()

	var records []*uploads.Record
	for rows.Next() {
		var rec uploads.Record
		var safeName, kind, artifactID sql.NullString
		err := rows.Scan(
			&rec.ID,
			&rec.SourceName,
			&safeName,
			&rec.Measure,
			&rec.Success,
			&kind,
			&rec.Message,
			&artifactID,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversion row: %w", err)
		}
		rec.SafeName = safeName.String
		rec.Kind = uploads.Kind(kind.String)
		rec.ArtifactID = artifactID.String
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversion rows: %w", err)
	}

	return records, nil
}
