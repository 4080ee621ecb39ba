package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"jse_extractor/pkg/models"
)

// SQLiteStore persists results to a local SQLite file. Useful for single
// machine batch runs where standing up Postgres is not worth it.
type SQLiteStore struct {
	db *sql.DB
}

var _ ResultStore = (*SQLiteStore)(nil)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS statement_extractions (
		identity         TEXT PRIMARY KEY,
		symbol           TEXT NOT NULL,
		period           TEXT NOT NULL,
		source_ref       TEXT NOT NULL,
		values_json      TEXT NOT NULL,
		report_json      TEXT NOT NULL,
		quality_score    REAL NOT NULL,
		quality_flags    TEXT NOT NULL,
		group_level      TEXT NOT NULL,
		pipeline_version TEXT NOT NULL,
		processed_at     TEXT NOT NULL
	)
`

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, result *models.ExtractionResult) error {
	valuesJSON, reportJSON, flagsJSON, err := encodeResult(result)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO statement_extractions (
			identity, symbol, period, source_ref, values_json, report_json,
			quality_score, quality_flags, group_level, pipeline_version, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (identity)
		DO UPDATE SET
			values_json = excluded.values_json,
			report_json = excluded.report_json,
			quality_score = excluded.quality_score,
			quality_flags = excluded.quality_flags,
			group_level = excluded.group_level,
			pipeline_version = excluded.pipeline_version,
			processed_at = excluded.processed_at
	`
	_, err = s.db.ExecContext(ctx, query,
		result.Identity(), result.Symbol, result.Period, result.SourceRef,
		string(valuesJSON), string(reportJSON), result.Quality.Score, string(flagsJSON),
		string(result.GroupLevel), result.PipelineVersion, result.ProcessedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return models.NewError(models.ErrStoreFailure, "store.sqlite", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, identity string) (*models.ExtractionResult, error) {
	query := `
		SELECT symbol, period, source_ref, values_json, report_json,
		       quality_score, quality_flags, group_level, pipeline_version, processed_at
		FROM statement_extractions
		WHERE identity = ?
	`
	var (
		r           models.ExtractionResult
		valuesJSON  string
		reportJSON  string
		flagsJSON   string
		groupLevel  string
		processedAt string
	)
	err := s.db.QueryRowContext(ctx, query, identity).Scan(
		&r.Symbol, &r.Period, &r.SourceRef, &valuesJSON, &reportJSON,
		&r.Quality.Score, &flagsJSON, &groupLevel, &r.PipelineVersion, &processedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewError(models.ErrStoreFailure, "store.sqlite", err)
	}
	if err := decodeResult(&r, []byte(valuesJSON), []byte(reportJSON), []byte(flagsJSON), groupLevel); err != nil {
		return nil, err
	}
	if t, perr := parseSQLiteTime(processedAt); perr == nil {
		r.ProcessedAt = t
	}
	return &r, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func parseSQLiteTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
