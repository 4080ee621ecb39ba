// Package ingest lists and fetches statement documents from their source
// bucket or directory and turns object keys into typed documents.
package ingest

import (
	"context"
	"log/slog"

	"jse_extractor/pkg/models"
)

// DocumentFetcher abstracts where statement files live so the pipeline can
// run against S3 in production and a local directory in tests.
type DocumentFetcher interface {
	// List returns the refs of all statement files under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// Fetch returns the raw bytes of one statement file.
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// LoadDocuments fetches every listed ref and builds typed documents from the
// key layout. Refs whose metadata cannot be parsed still produce a document;
// the missing fields stay empty and downstream tiers fall back accordingly.
// A ref that fails to fetch is logged and skipped so one bad object never
// blocks the rest of the batch; only a cancelled context aborts the load.
func LoadDocuments(ctx context.Context, fetcher DocumentFetcher, prefix string) ([]models.StatementDocument, error) {
	refs, err := fetcher.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	docs := make([]models.StatementDocument, 0, len(refs))
	for _, ref := range refs {
		content, err := fetcher.Fetch(ctx, ref)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			slog.Warn("ingest.fetch_failed", "ref", ref, "error", err)
			continue
		}
		doc := ParseDocumentRef(ref)
		doc.Content = content
		docs = append(docs, doc)
	}
	return docs, nil
}
