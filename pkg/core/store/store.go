// Package store persists extraction results. All backends implement the
// same idempotent upsert keyed by statement identity, so re-running a batch
// overwrites rather than duplicates.
package store

import (
	"context"

	"jse_extractor/pkg/models"
)

// ResultStore is the sink the pipeline writes finished extractions to.
type ResultStore interface {
	// Upsert inserts or replaces the result for its statement identity.
	Upsert(ctx context.Context, result *models.ExtractionResult) error
	// Get returns the stored result for an identity, or nil when absent.
	Get(ctx context.Context, identity string) (*models.ExtractionResult, error)
	// Close releases the backend's resources.
	Close() error
}
