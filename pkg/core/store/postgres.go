package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jse_extractor/pkg/models"
)

// PostgresStore persists results in a single statement_extractions table
// keyed by statement identity.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ ResultStore = (*PostgresStore)(nil)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS statement_extractions (
		identity         TEXT PRIMARY KEY,
		symbol           TEXT NOT NULL,
		period           TEXT NOT NULL,
		source_ref       TEXT NOT NULL,
		values_json      JSONB NOT NULL,
		report_json      JSONB NOT NULL,
		quality_score    DOUBLE PRECISION NOT NULL,
		quality_flags    JSONB NOT NULL,
		group_level      TEXT NOT NULL,
		pipeline_version TEXT NOT NULL,
		processed_at     TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// NewPostgresStore connects with the given URL and ensures the table exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, result *models.ExtractionResult) error {
	valuesJSON, reportJSON, flagsJSON, err := encodeResult(result)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO statement_extractions (
			identity, symbol, period, source_ref, values_json, report_json,
			quality_score, quality_flags, group_level, pipeline_version, processed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (identity)
		DO UPDATE SET
			values_json = EXCLUDED.values_json,
			report_json = EXCLUDED.report_json,
			quality_score = EXCLUDED.quality_score,
			quality_flags = EXCLUDED.quality_flags,
			group_level = EXCLUDED.group_level,
			pipeline_version = EXCLUDED.pipeline_version,
			processed_at = EXCLUDED.processed_at,
			updated_at = NOW()
	`
	_, err = s.pool.Exec(ctx, query,
		result.Identity(), result.Symbol, result.Period, result.SourceRef,
		valuesJSON, reportJSON, result.Quality.Score, flagsJSON,
		string(result.GroupLevel), result.PipelineVersion, result.ProcessedAt,
	)
	if err != nil {
		return models.NewError(models.ErrStoreFailure, "store.postgres", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, identity string) (*models.ExtractionResult, error) {
	query := `
		SELECT symbol, period, source_ref, values_json, report_json,
		       quality_score, quality_flags, group_level, pipeline_version, processed_at
		FROM statement_extractions
		WHERE identity = $1
	`
	var (
		r          models.ExtractionResult
		valuesJSON []byte
		reportJSON []byte
		flagsJSON  []byte
		groupLevel string
	)
	err := s.pool.QueryRow(ctx, query, identity).Scan(
		&r.Symbol, &r.Period, &r.SourceRef, &valuesJSON, &reportJSON,
		&r.Quality.Score, &flagsJSON, &groupLevel, &r.PipelineVersion, &r.ProcessedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, models.NewError(models.ErrStoreFailure, "store.postgres", err)
	}
	if err := decodeResult(&r, valuesJSON, reportJSON, flagsJSON, groupLevel); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func encodeResult(r *models.ExtractionResult) (values, report, flags []byte, err error) {
	if values, err = json.Marshal(r.Values); err != nil {
		return nil, nil, nil, models.NewError(models.ErrStoreFailure, "store", err)
	}
	if report, err = json.Marshal(r.Report); err != nil {
		return nil, nil, nil, models.NewError(models.ErrStoreFailure, "store", err)
	}
	if flags, err = json.Marshal(r.Quality.Flags); err != nil {
		return nil, nil, nil, models.NewError(models.ErrStoreFailure, "store", err)
	}
	return values, report, flags, nil
}

func decodeResult(r *models.ExtractionResult, values, report, flags []byte, groupLevel string) error {
	if err := json.Unmarshal(values, &r.Values); err != nil {
		return models.NewError(models.ErrStoreFailure, "store", err)
	}
	if err := json.Unmarshal(report, &r.Report); err != nil {
		return models.NewError(models.ErrStoreFailure, "store", err)
	}
	if err := json.Unmarshal(flags, &r.Quality.Flags); err != nil {
		return models.NewError(models.ErrStoreFailure, "store", err)
	}
	r.GroupLevel = models.GroupLevelLabel(groupLevel)
	return nil
}
