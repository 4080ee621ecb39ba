// Package llm abstracts the inference backend behind a minimal Provider
// interface so the extraction engine can be tested against mocks and the
// real backend can be swapped per deployment.
package llm

import "context"

// Provider is the interface every inference backend implements.
type Provider interface {
	// Generate sends one prompt pair to the backend and returns the raw
	// model text. Implementations must respect ctx cancellation.
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
	// Name identifies the backend in logs and stored results.
	Name() string
}
