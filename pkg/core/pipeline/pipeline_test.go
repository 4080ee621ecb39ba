package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"jse_extractor/pkg/core/schema"
	"jse_extractor/pkg/core/store"
	"jse_extractor/pkg/models"
)

// --- Mocks ---

type MockExtractor struct {
	ExtractFunc func(ctx context.Context, doc models.StatementDocument, input models.PreparedInput, def *schema.Definition) (*models.ExtractionCandidate, error)
}

func (m *MockExtractor) Extract(ctx context.Context, doc models.StatementDocument, input models.PreparedInput, def *schema.Definition) (*models.ExtractionCandidate, error) {
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, doc, input, def)
	}
	return &models.ExtractionCandidate{
		Values:     map[string]any{"revenue": 1000.0, "net_income": 120.0},
		Metadata:   models.CandidateMetadata{Period: "FY", GroupOrCompany: "group"},
		Confidence: 0.9,
		Attempts:   1,
	}, nil
}

type MockLabeler struct {
	Label models.GroupLevelLabel
}

func (m *MockLabeler) Classify(models.StatementDocument, models.PreparedInput, *models.ExtractionCandidate) models.GroupLevelLabel {
	if m.Label == "" {
		return models.ConsolidatedAnnual
	}
	return m.Label
}

type FailingStore struct {
	store.ResultStore
}

func (f *FailingStore) Upsert(context.Context, *models.ExtractionResult) error {
	return models.Errorf(models.ErrStoreFailure, "store", "disk full")
}

// --- Helpers ---

func testDoc(symbol, ref string) models.StatementDocument {
	return models.StatementDocument{
		Symbol:    symbol,
		Period:    "2023-FY",
		SourceRef: ref,
		Format:    models.FormatCSV,
		Content:   []byte("Revenue,1000\nNet Income,120"),
	}
}

func testOrchestrator(t *testing.T, extractor Extractor, results store.ResultStore) *Orchestrator {
	t.Helper()
	def, err := schema.Load("")
	if err != nil {
		t.Fatal(err)
	}
	return NewOrchestratorWithDeps(def, extractor, &MockLabeler{}, results, Config{
		Concurrency:     2,
		PipelineVersion: "test",
	})
}

// --- Tests ---

func TestRunHappyPath(t *testing.T) {
	results := store.NewMemoryStore()
	orch := testOrchestrator(t, &MockExtractor{}, results)

	docs := []models.StatementDocument{
		testDoc("WISYNCO", "CSV/WISYNCO/a-december-31-2023.csv"),
		testDoc("SEP", "CSV/SEP/b-december-31-2023.csv"),
		testDoc("JBG", "CSV/JBG/c-december-31-2023.csv"),
	}
	summary, outcomes := orch.Run(context.Background(), docs)

	if summary.Succeeded != 3 || summary.Total != 3 {
		t.Fatalf("summary = %+v", summary)
	}
	if results.Len() != 3 {
		t.Errorf("stored = %d, want 3", results.Len())
	}
	for i, out := range outcomes {
		if out.Result == nil {
			t.Fatalf("outcome %d has no result", i)
		}
		if out.Document.SourceRef != docs[i].SourceRef {
			t.Errorf("outcome %d out of order", i)
		}
		if out.Result.PipelineVersion != "test" {
			t.Errorf("pipeline version = %q", out.Result.PipelineVersion)
		}
		if out.Result.GroupLevel != models.ConsolidatedAnnual {
			t.Errorf("group level = %q", out.Result.GroupLevel)
		}
		if out.Result.Values["revenue"] != 1000.0 {
			t.Errorf("values = %v", out.Result.Values)
		}
	}
}

func TestRunDeadLettersByKind(t *testing.T) {
	extractor := &MockExtractor{
		ExtractFunc: func(_ context.Context, doc models.StatementDocument, _ models.PreparedInput, _ *schema.Definition) (*models.ExtractionCandidate, error) {
			switch doc.Symbol {
			case "TRANSIENT":
				return nil, models.Errorf(models.ErrBackendTransient, "extract", "rate limited")
			case "GARBLED":
				return nil, models.Errorf(models.ErrUnparseableResponse, "extract", "still not json")
			}
			return &models.ExtractionCandidate{Values: map[string]any{"revenue": 1.0}, Confidence: 0.9}, nil
		},
	}
	orch := testOrchestrator(t, extractor, store.NewMemoryStore())

	docs := []models.StatementDocument{
		testDoc("OK", "CSV/OK/a-december-31-2023.csv"),
		testDoc("TRANSIENT", "CSV/TRANSIENT/b-december-31-2023.csv"),
		testDoc("GARBLED", "CSV/GARBLED/c-december-31-2023.csv"),
	}
	summary, outcomes := orch.Run(context.Background(), docs)

	if summary.Succeeded != 1 {
		t.Errorf("succeeded = %d, want 1", summary.Succeeded)
	}
	if summary.DeadLettered[models.ErrBackendTransient] != 1 {
		t.Errorf("transient dead letters = %d, want 1", summary.DeadLettered[models.ErrBackendTransient])
	}
	if summary.DeadLettered[models.ErrUnparseableResponse] != 1 {
		t.Errorf("unparseable dead letters = %d, want 1", summary.DeadLettered[models.ErrUnparseableResponse])
	}
	if outcomes[1].DeadLetter == nil || outcomes[1].DeadLetter.Reason != models.ErrBackendTransient {
		t.Errorf("outcome 1 = %+v", outcomes[1])
	}
}

func TestRunEmptyDocumentDeadLetters(t *testing.T) {
	orch := testOrchestrator(t, &MockExtractor{}, store.NewMemoryStore())

	doc := testDoc("EMPTY", "CSV/EMPTY/a-december-31-2023.csv")
	doc.Content = nil
	summary, outcomes := orch.Run(context.Background(), []models.StatementDocument{doc})

	if summary.DeadLettered[models.ErrUnsupportedFormat] != 1 {
		t.Errorf("summary = %+v, want one UnsupportedFormat dead letter", summary)
	}
	if outcomes[0].DeadLetter == nil {
		t.Fatal("expected dead letter outcome")
	}
}

func TestRunStoreFailureDeadLetters(t *testing.T) {
	orch := testOrchestrator(t, &MockExtractor{}, &FailingStore{})

	summary, outcomes := orch.Run(context.Background(), []models.StatementDocument{
		testDoc("X", "CSV/X/a-december-31-2023.csv"),
	})

	if summary.Succeeded != 0 {
		t.Errorf("succeeded = %d, want 0", summary.Succeeded)
	}
	if summary.DeadLettered[models.ErrStoreFailure] != 1 {
		t.Errorf("summary = %+v, want one StoreError dead letter", summary)
	}
	if outcomes[0].DeadLetter == nil || outcomes[0].DeadLetter.Reason != models.ErrStoreFailure {
		t.Errorf("outcome = %+v", outcomes[0])
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	orch := testOrchestrator(t, &MockExtractor{}, store.NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs := []models.StatementDocument{
		testDoc("A", "CSV/A/a-december-31-2023.csv"),
		testDoc("B", "CSV/B/b-december-31-2023.csv"),
	}
	summary, outcomes := orch.Run(ctx, docs)

	if summary.Pending != 2 {
		t.Errorf("pending = %d, want 2", summary.Pending)
	}
	if summary.Succeeded != 0 {
		t.Errorf("succeeded = %d, want 0", summary.Succeeded)
	}
	for i, out := range outcomes {
		if out.Result != nil || out.DeadLetter != nil {
			t.Errorf("outcome %d = %+v, want untouched", i, out)
		}
	}
}

// A document still waiting on a worker slot when the batch is cancelled
// must never start; only the in-flight statement finishes.
func TestRunCancelSkipsQueuedDocuments(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var extracted []string
	extractor := &MockExtractor{
		ExtractFunc: func(_ context.Context, doc models.StatementDocument, _ models.PreparedInput, _ *schema.Definition) (*models.ExtractionCandidate, error) {
			mu.Lock()
			extracted = append(extracted, doc.Symbol)
			mu.Unlock()
			if doc.Symbol == "A" {
				close(started)
				<-release
			}
			return &models.ExtractionCandidate{Values: map[string]any{"revenue": 1.0}, Confidence: 0.9}, nil
		},
	}
	def, err := schema.Load("")
	if err != nil {
		t.Fatal(err)
	}
	orch := NewOrchestratorWithDeps(def, extractor, &MockLabeler{}, store.NewMemoryStore(), Config{
		Concurrency:      1,
		StatementTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// A holds the only worker slot, so the loop is blocked acquiring
		// a slot for B when the batch is cancelled.
		<-started
		cancel()
		release <- struct{}{}
	}()

	summary, outcomes := orch.Run(ctx, []models.StatementDocument{
		testDoc("A", "CSV/A/a-december-31-2023.csv"),
		testDoc("B", "CSV/B/b-december-31-2023.csv"),
	})

	mu.Lock()
	defer mu.Unlock()
	for _, sym := range extracted {
		if sym == "B" {
			t.Fatalf("document B started extraction after cancellation: %v", extracted)
		}
	}
	if summary.Pending != 1 {
		t.Errorf("pending = %d, want 1", summary.Pending)
	}
	if outcomes[1].Result != nil || outcomes[1].DeadLetter != nil {
		t.Errorf("outcome for B = %+v, want untouched", outcomes[1])
	}
}

// Cancelling mid-batch lets in-flight statements finish.
func TestRunCancelMidBatchFinishesInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	extractor := &MockExtractor{
		ExtractFunc: func(ctx context.Context, _ models.StatementDocument, _ models.PreparedInput, _ *schema.Definition) (*models.ExtractionCandidate, error) {
			close(started)
			<-release
			if ctx.Err() != nil {
				return nil, models.NewError(models.ErrInternal, "extract", ctx.Err())
			}
			return &models.ExtractionCandidate{Values: map[string]any{"revenue": 1.0}, Confidence: 0.9}, nil
		},
	}
	results := store.NewMemoryStore()
	def, err := schema.Load("")
	if err != nil {
		t.Fatal(err)
	}
	orch := NewOrchestratorWithDeps(def, extractor, &MockLabeler{}, results, Config{
		Concurrency:      1,
		StatementTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
		close(release)
	}()

	summary, _ := orch.Run(ctx, []models.StatementDocument{
		testDoc("A", "CSV/A/a-december-31-2023.csv"),
	})

	// The statement was already in flight when the batch was cancelled, so
	// it runs to completion on its own timeout.
	if summary.Succeeded != 1 {
		t.Errorf("succeeded = %d, want 1", summary.Succeeded)
	}
}
