package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/duongtruongbinh/legal-rag/internal/core/domain"
	"github.com/duongtruongbinh/legal-rag/internal/core/ports"
)

// JobState guards the process-wide "one ingestion at a time" invariant.
// The start transition is a compare-and-set; a losing trigger is rejected,
// never queued.
type JobState struct {
	running atomic.Bool

	mu   sync.Mutex
	last *domain.IngestionReport
}

func NewJobState() *JobState {
	return &JobState{}
}

func (s *JobState) TryStart() bool {
	return s.running.CompareAndSwap(false, true)
}

func (s *JobState) Finish(report domain.IngestionReport) {
	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()
	s.running.Store(false)
}

func (s *JobState) Snapshot() domain.IngestionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := domain.IngestionState{Running: s.running.Load()}
	if s.last != nil {
		result := *s.last
		state.Result = &result
	}
	return state
}

type IngestConfig struct {
	BatchSize  int
	Workers    int
	Collection string
}

func (c IngestConfig) normalize() IngestConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	return c
}

// IngestUseCase runs the corpus-ingestion pipeline: load → parent split →
// child split → concurrent batched upserts into the hybrid index.
type IngestUseCase struct {
	source      ports.DocumentSource
	parentSplit ports.Chunker
	childSplit  ports.Chunker
	dense       ports.DenseEmbedder
	sparse      ports.SparseEncoder
	index       ports.HybridIndex
	parents     ports.ParentStore
	state       *JobState
	metrics     IngestObserver
	cfg         IngestConfig
}

// IngestObserver receives ingestion progress for instrumentation.
type IngestObserver interface {
	BatchDone(ingested int, failed bool)
	RunDone(report domain.IngestionReport, duration time.Duration)
}

type nopIngestObserver struct{}

func (nopIngestObserver) BatchDone(int, bool)                            {}
func (nopIngestObserver) RunDone(domain.IngestionReport, time.Duration) {}

func NewIngestUseCase(
	source ports.DocumentSource,
	parentSplit, childSplit ports.Chunker,
	dense ports.DenseEmbedder,
	sparse ports.SparseEncoder,
	index ports.HybridIndex,
	parents ports.ParentStore,
	state *JobState,
	metrics IngestObserver,
	cfg IngestConfig,
) *IngestUseCase {
	if state == nil {
		state = NewJobState()
	}
	if metrics == nil {
		metrics = nopIngestObserver{}
	}
	return &IngestUseCase{
		source:      source,
		parentSplit: parentSplit,
		childSplit:  childSplit,
		dense:       dense,
		sparse:      sparse,
		index:       index,
		parents:     parents,
		state:       state,
		metrics:     metrics,
		cfg:         cfg.normalize(),
	}
}

func (uc *IngestUseCase) State() domain.IngestionState {
	return uc.state.Snapshot()
}

func (uc *IngestUseCase) Run(ctx context.Context) (domain.IngestionReport, error) {
	if !uc.state.TryStart() {
		return domain.IngestionReport{}, fmt.Errorf("trigger ingestion: %w", domain.ErrIngestionRunning)
	}
	return uc.runStarted(ctx)
}

// Start launches a run in the background. The returned state reflects
// the run already marked as running; a concurrent run is rejected
// before any goroutine is spawned.
func (uc *IngestUseCase) Start(ctx context.Context) (domain.IngestionState, error) {
	if !uc.state.TryStart() {
		return uc.state.Snapshot(), fmt.Errorf("trigger ingestion: %w", domain.ErrIngestionRunning)
	}
	go func() {
		if _, err := uc.runStarted(ctx); err != nil {
			slog.Error("ingestion_run_failed", "error", err)
		}
	}()
	return uc.state.Snapshot(), nil
}

func (uc *IngestUseCase) runStarted(ctx context.Context) (domain.IngestionReport, error) {
	started := time.Now().UTC()
	report, err := uc.run(ctx, started)
	report.StartedAt = started
	report.FinishedAt = time.Now().UTC()
	uc.state.Finish(report)
	uc.metrics.RunDone(report, report.FinishedAt.Sub(started))
	return report, err
}

func (uc *IngestUseCase) run(ctx context.Context, started time.Time) (domain.IngestionReport, error) {
	report := domain.IngestionReport{
		Status:     domain.IngestionRunning,
		Collection: uc.cfg.Collection,
	}

	docs, err := uc.source.Load(ctx)
	if err != nil {
		wrapped := domain.WrapError(domain.ErrSourceUnavailable, "load corpus", err)
		return failedReport(report, wrapped), wrapped
	}
	if len(docs) == 0 {
		wrapped := domain.WrapError(domain.ErrSourceUnavailable, "load corpus", fmt.Errorf("no documents loaded"))
		return failedReport(report, wrapped), wrapped
	}
	report.TotalDocuments = len(docs)

	if err := uc.index.EnsureCollection(ctx); err != nil {
		wrapped := fmt.Errorf("ensure collection: %w", err)
		return failedReport(report, wrapped), wrapped
	}

	// Stale parents from a previous run must not leak into this one.
	if uc.parents != nil {
		if err := uc.parents.Reset(ctx); err != nil {
			wrapped := fmt.Errorf("reset parent store: %w", err)
			return failedReport(report, wrapped), wrapped
		}
	}

	parents, children := uc.splitCorpus(docs)
	report.TotalChunks = len(children)
	slog.Info("corpus_split",
		"documents", len(docs),
		"parent_chunks", len(parents),
		"child_chunks", len(children),
	)

	if uc.parents != nil {
		if err := uc.parents.Put(ctx, parents); err != nil {
			wrapped := fmt.Errorf("store parent chunks: %w", err)
			return failedReport(report, wrapped), wrapped
		}
	}

	report.Attempted = len(children)
	report.Ingested, report.FailedBatches = uc.ingestBatches(ctx, children)
	report.Status = domain.IngestionSuccess
	slog.Info("ingestion_finished",
		"attempted", report.Attempted,
		"ingested", report.Ingested,
		"failed_batches", report.FailedBatches,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return report, nil
}

// splitCorpus applies the parent pass then the child pass over each
// parent's text. Parent ids are document id + ordinal; the parent text is
// carried in each child's metadata for store-free reconstruction.
func (uc *IngestUseCase) splitCorpus(docs []domain.Document) ([]domain.ParentChunk, []domain.ChildChunk) {
	var parents []domain.ParentChunk
	var children []domain.ChildChunk

	for _, doc := range docs {
		lawID := doc.LawID
		if lawID == "" {
			lawID = domain.DeriveLawID(doc.ID)
		}
		text := doc.Text
		if doc.Title != "" {
			text = doc.Title + "\n" + doc.Text
		}

		for pIdx, parentText := range uc.parentSplit.Split(text) {
			parent := domain.ParentChunk{
				ParentID:   fmt.Sprintf("%s_%d", doc.ID, pIdx),
				DocumentID: doc.ID,
				Title:      doc.Title,
				LawID:      lawID,
				Text:       parentText,
			}
			parents = append(parents, parent)

			for cIdx, childText := range uc.childSplit.Split(parentText) {
				children = append(children, domain.ChildChunk{
					Text:       childText,
					ParentID:   parent.ParentID,
					ParentText: parentText,
					DocumentID: doc.ID,
					Title:      doc.Title,
					LawID:      lawID,
					ChunkIndex: cIdx,
				})
			}
		}
	}
	return parents, children
}

// ingestBatches distributes independent batches across a fixed-size
// worker pool. A failed batch is logged and skipped, not retried; the
// tally reports what actually landed in the index.
func (uc *IngestUseCase) ingestBatches(ctx context.Context, children []domain.ChildChunk) (ingested, failedBatches int) {
	batches := batchChunks(children, uc.cfg.BatchSize)
	jobs := make(chan []domain.ChildChunk)

	var (
		wg        sync.WaitGroup
		ingestedN atomic.Int64
		failedN   atomic.Int64
	)
	totalBatches := len(batches)

	for w := 0; w < uc.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range jobs {
				if err := uc.ingestBatch(ctx, batch); err != nil {
					failedN.Add(1)
					uc.metrics.BatchDone(0, true)
					slog.Error("batch_ingest_failed", "batch_size", len(batch), "error", err)
					continue
				}
				ingestedN.Add(int64(len(batch)))
				uc.metrics.BatchDone(len(batch), false)
			}
		}()
	}

	for _, batch := range batches {
		jobs <- batch
	}
	close(jobs)
	wg.Wait()

	slog.Info("batches_processed", "total", totalBatches, "failed", failedN.Load())
	return int(ingestedN.Load()), int(failedN.Load())
}

func (uc *IngestUseCase) ingestBatch(ctx context.Context, batch []domain.ChildChunk) error {
	texts := make([]string, len(batch))
	for i, chunk := range batch {
		texts[i] = chunk.Text
	}

	dense, err := uc.dense.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(dense) != len(batch) {
		return fmt.Errorf("embed batch: vectors/chunks mismatch: %d/%d", len(dense), len(batch))
	}

	sparse := make([]domain.SparseVector, len(batch))
	for i, chunk := range batch {
		sparse[i] = uc.sparse.EncodeDocument(chunk.Text)
	}

	if err := uc.index.UpsertChunks(ctx, batch, dense, sparse); err != nil {
		return fmt.Errorf("upsert batch: %w", err)
	}
	return nil
}

func failedReport(report domain.IngestionReport, err error) domain.IngestionReport {
	report.Status = domain.IngestionFailed
	report.Error = err.Error()
	return report
}

func batchChunks(chunks []domain.ChildChunk, size int) [][]domain.ChildChunk {
	if size <= 0 {
		size = len(chunks)
	}
	var out [][]domain.ChildChunk
	for start := 0; start < len(chunks); start += size {
		end := start + size
		if end > len(chunks) {
			end = len(chunks)
		}
		out = append(out, chunks[start:end])
	}
	return out
}
