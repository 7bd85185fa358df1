// Package pipeline wires the ingestion and question flows: load, chunk,
// embed, index on one side; retrieve, assemble, generate, persist on the
// other. A document is never queryable until its index build finished.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/clauselens/clauselens/internal/chunker"
	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/document"
	"github.com/clauselens/clauselens/internal/embedding"
	"github.com/clauselens/clauselens/internal/generation"
	"github.com/clauselens/clauselens/internal/retrieval"
	"github.com/clauselens/clauselens/internal/retry"
	"github.com/clauselens/clauselens/internal/session"
	"github.com/clauselens/clauselens/internal/vectorindex"
)

// ErrNotReady rejects queries against a document whose index build has
// not completed. A partial index is never searched.
var ErrNotReady = errors.New("document index is not ready")

// Pipeline holds the services shared by all commands.
type Pipeline struct {
	cfg       *config.Config
	db        *session.DB
	store     *session.Store
	embedder  *embedding.Service
	generator *generation.Generator

	mu       sync.Mutex
	indexes  map[string]vectorindex.Index
	keywords map[string]*retrieval.KeywordIndex
}

// New builds a pipeline with provider clients from the configuration.
func New(ctx context.Context, cfg *config.Config, db *session.DB) (*Pipeline, error) {
	embedder, err := embedding.NewService(ctx, &cfg.Embedding)
	if err != nil {
		return nil, err
	}
	generator, err := generation.NewGenerator(ctx, &cfg.Generation)
	if err != nil {
		embedder.Close()
		return nil, err
	}
	return NewWithServices(cfg, db, embedder, generator), nil
}

// NewWithServices builds a pipeline around existing services. Used by
// tests and by callers that manage provider clients themselves.
func NewWithServices(cfg *config.Config, db *session.DB, embedder *embedding.Service, generator *generation.Generator) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		db:        db,
		store:     session.NewStore(db),
		embedder:  embedder,
		generator: generator,
		indexes:   make(map[string]vectorindex.Index),
		keywords:  make(map[string]*retrieval.KeywordIndex),
	}
}

// Store exposes the session store for history and stats commands.
func (p *Pipeline) Store() *session.Store {
	return p.store
}

// Generator exposes the generation layer for analysis commands.
func (p *Pipeline) Generator() *generation.Generator {
	return p.generator
}

// Close releases provider clients. The session database is owned by the
// caller.
func (p *Pipeline) Close() error {
	err := p.embedder.Close()
	if gerr := p.generator.Close(); err == nil {
		err = gerr
	}
	return err
}

// IngestResult reports the outcome of one document ingest.
type IngestResult struct {
	Document      *session.DocumentRecord
	ChunkCount    int
	MissingChunks int
	Degraded      bool
}

// Ingest loads a document, chunks it, embeds every chunk, and builds
// its vector index. The document is marked ready only after the index
// build completes; a chunk whose embedding fails twice is recorded as
// missing and the build finishes degraded.
func (p *Pipeline) Ingest(ctx context.Context, path string, reporter ProgressReporter) (*IngestResult, error) {
	doc, err := document.NewLoader().Load(path)
	if err != nil {
		return nil, err
	}
	return p.ingestDocument(ctx, doc, reporter)
}

// IngestGlob ingests every document matching the pattern. Patterns
// support doublestar globs; a pattern matching nothing is an error.
func (p *Pipeline) IngestGlob(ctx context.Context, pattern string, reporter ProgressReporter) ([]*IngestResult, error) {
	docs, err := document.NewLoader().LoadGlob(pattern)
	if err != nil {
		return nil, err
	}
	results := make([]*IngestResult, 0, len(docs))
	for _, doc := range docs {
		res, err := p.ingestDocument(ctx, doc, reporter)
		if err != nil {
			return results, fmt.Errorf("%s: %w", doc.Name, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (p *Pipeline) ingestDocument(ctx context.Context, doc *document.Document, reporter ProgressReporter) (*IngestResult, error) {
	ch, err := chunker.New(p.cfg.Chunking.Size, p.cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}
	chunks := ch.Split(doc.ID, doc.Text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %s has no indexable text", doc.Name)
	}

	rec := &session.DocumentRecord{
		ID:        doc.ID,
		Name:      doc.Name,
		Path:      doc.Path,
		Format:    doc.Format,
		CharCount: len([]rune(doc.Text)),
		LoadedAt:  doc.LoadedAt,
	}
	if err := p.store.SaveDocument(rec); err != nil {
		return nil, err
	}

	if reporter != nil {
		reporter.Start(len(chunks))
		defer reporter.Finish()
	}

	vectors, missing, err := p.embedChunks(ctx, chunks, reporter)
	if err != nil {
		return nil, err
	}

	entries := make([]vectorindex.Entry, 0, len(chunks))
	for i, chunk := range chunks {
		if vectors[i] == nil {
			continue
		}
		entries = append(entries, vectorindex.Entry{Chunk: chunk, Vector: vectors[i]})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("embedding failed for every chunk of %s", doc.Name)
	}

	index, err := p.newIndex(doc.ID)
	if err != nil {
		return nil, err
	}
	if err := index.Clear(); err != nil {
		return nil, err
	}
	if err := index.Add(entries); err != nil {
		return nil, fmt.Errorf("failed to build vector index: %w", err)
	}

	var kw *retrieval.KeywordIndex
	if p.cfg.Retrieval.Hybrid {
		kw, err = retrieval.NewKeywordIndex()
		if err != nil {
			return nil, err
		}
		if err := kw.Add(chunks); err != nil {
			kw.Close()
			return nil, err
		}
	}

	if err := p.store.MarkIndexed(doc.ID, len(chunks), missing, p.embedder.Model()); err != nil {
		return nil, err
	}
	rec, err = p.store.GetDocument(doc.ID)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.indexes[doc.ID] = index
	if old := p.keywords[doc.ID]; old != nil {
		old.Close()
	}
	if kw != nil {
		p.keywords[doc.ID] = kw
	} else {
		delete(p.keywords, doc.ID)
	}
	p.mu.Unlock()

	if missing > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d of %d chunks have no embedding; answers may miss content\n", missing, len(chunks))
	}

	return &IngestResult{
		Document:      rec,
		ChunkCount:    len(chunks),
		MissingChunks: missing,
		Degraded:      missing > 0,
	}, nil
}

type embedJob struct {
	start, end int
}

// embedChunks embeds every chunk with a bounded worker pool. A failed
// batch falls back to embedding its chunks one at a time; a chunk that
// still fails after one retry is left without a vector.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []chunker.Chunk, reporter ProgressReporter) ([][]float32, int, error) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	batchSize := p.cfg.Embedding.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}
	workers := p.cfg.Ingest.MaxWorkers
	if workers <= 0 {
		workers = 1
	}

	vectors := make([][]float32, len(chunks))
	var mu sync.Mutex
	missing := 0

	jobs := make(chan embedJob, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				failed := p.embedRange(ctx, texts, vectors, job)
				mu.Lock()
				missing += failed
				mu.Unlock()
				if reporter != nil {
					for i := job.start; i < job.end; i++ {
						reporter.Increment()
					}
				}
			}
		}()
	}

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		jobs <- embedJob{start: start, end: end}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	return vectors, missing, nil
}

// embedRange fills vectors[job.start:job.end] and returns how many
// chunks in the range got no vector. Workers own disjoint ranges, so
// writes need no lock.
func (p *Pipeline) embedRange(ctx context.Context, texts []string, vectors [][]float32, job embedJob) int {
	batch, err := p.embedder.EmbedBatch(ctx, texts[job.start:job.end])
	if err == nil {
		copy(vectors[job.start:job.end], batch)
		return 0
	}

	// The batch failed as a whole; recover what we can chunk by chunk.
	policy := retry.Default()
	failed := 0
	for i := job.start; i < job.end; i++ {
		err := policy.Do(ctx, embedding.IsTransient, func(ctx context.Context) error {
			vec, err := p.embedder.Embed(ctx, texts[i])
			if err != nil {
				return err
			}
			vectors[i] = vec
			return nil
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: chunk %d not embedded: %v\n", i, err)
			failed++
		}
	}
	return failed
}

// newIndex creates the configured vector index backend for a document.
func (p *Pipeline) newIndex(docID string) (vectorindex.Index, error) {
	switch p.cfg.Storage.VectorBackend {
	case "", "sqlite":
		return vectorindex.NewSQLiteIndex(p.db.SQLDB(), docID, p.embedder.Model())
	case "memory":
		return vectorindex.NewMemoryIndex(), nil
	default:
		return nil, fmt.Errorf("unsupported vector backend: %s", p.cfg.Storage.VectorBackend)
	}
}

// openIndex returns the document's vector index, reopening a persisted
// one if this process did not build it.
func (p *Pipeline) openIndex(rec *session.DocumentRecord) (vectorindex.Index, error) {
	p.mu.Lock()
	index, ok := p.indexes[rec.ID]
	p.mu.Unlock()
	if ok {
		return index, nil
	}

	if p.cfg.Storage.VectorBackend == "memory" {
		return nil, fmt.Errorf("document %s: %w", rec.Name, ErrNotReady)
	}
	index, err := vectorindex.NewSQLiteIndex(p.db.SQLDB(), rec.ID, rec.EmbeddingModel)
	if err != nil {
		return nil, err
	}
	if index.Size() == 0 {
		return nil, fmt.Errorf("document %s: %w", rec.Name, ErrNotReady)
	}

	p.mu.Lock()
	p.indexes[rec.ID] = index
	p.mu.Unlock()
	return index, nil
}

// openKeywordIndex returns the document's keyword index, rebuilding it
// from the persisted chunks when needed. Returns nil when hybrid
// retrieval is off or the chunks are not recoverable.
func (p *Pipeline) openKeywordIndex(rec *session.DocumentRecord, index vectorindex.Index) *retrieval.KeywordIndex {
	if !p.cfg.Retrieval.Hybrid {
		return nil
	}

	p.mu.Lock()
	kw, ok := p.keywords[rec.ID]
	p.mu.Unlock()
	if ok {
		return kw
	}

	sqlIndex, ok := index.(*vectorindex.SQLiteIndex)
	if !ok {
		return nil
	}
	chunks, err := sqlIndex.Chunks()
	if err != nil || len(chunks) == 0 {
		return nil
	}
	kw, err = retrieval.NewKeywordIndex()
	if err != nil {
		return nil
	}
	if err := kw.Add(chunks); err != nil {
		kw.Close()
		return nil
	}

	p.mu.Lock()
	p.keywords[rec.ID] = kw
	p.mu.Unlock()
	return kw
}

// AskOptions overrides per-question retrieval settings. Zero values
// fall back to the configuration.
type AskOptions struct {
	TopK     int
	MinScore float64
}

// AskResult carries the answer plus retrieval details for display.
type AskResult struct {
	Document           *session.DocumentRecord
	Answer             *generation.Answer
	Retrieved          int
	OmittedDueToBudget int
}

// Ask answers a question against an ingested document. docRef may be a
// document ID, a document name, or empty for the most recent document.
// The exchange is appended to history only when generation succeeds.
func (p *Pipeline) Ask(ctx context.Context, docRef, question string, opts AskOptions) (*AskResult, error) {
	rec, err := p.ResolveDocument(docRef)
	if err != nil {
		return nil, err
	}
	if !rec.Ready() {
		return nil, fmt.Errorf("document %s: %w", rec.Name, ErrNotReady)
	}

	index, err := p.openIndex(rec)
	if err != nil {
		return nil, err
	}
	kw := p.openKeywordIndex(rec, index)

	retriever := retrieval.NewRetriever(p.embedder, index, kw)
	result, err := retriever.Retrieve(ctx, question, p.retrievalOptions(opts))
	if err != nil {
		return nil, err
	}

	assembler := retrieval.NewAssembler(p.cfg.Assembly.Budget, p.cfg.Assembly.DedupOverlap)
	assembly := assembler.Assemble(result.Chunks)

	history, err := p.history(rec.ID)
	if err != nil {
		return nil, err
	}

	answer, err := p.generator.Answer(ctx, question, assembly, history)
	if err != nil {
		return nil, err
	}

	ex := &session.Exchange{
		ID:             answer.ID,
		DocID:          rec.ID,
		Question:       question,
		Answer:         answer.Text,
		Grounded:       answer.Grounded,
		SourceChunkIDs: answer.SourceChunkIDs,
		CreatedAt:      answer.CreatedAt,
	}
	if err := p.store.AppendExchange(ex); err != nil {
		return nil, err
	}

	return &AskResult{
		Document:           rec,
		Answer:             answer,
		Retrieved:          len(result.Chunks),
		OmittedDueToBudget: assembly.OmittedDueToBudget,
	}, nil
}

// ResolveDocument resolves a document reference the way Ask does:
// ID first, then newest by name, then the latest document for an empty
// reference.
func (p *Pipeline) ResolveDocument(docRef string) (*session.DocumentRecord, error) {
	if docRef == "" {
		return p.store.LatestDocument()
	}
	return p.store.ResolveDocument(docRef)
}

func (p *Pipeline) retrievalOptions(opts AskOptions) retrieval.Options {
	merged := retrieval.DefaultOptions()
	if p.cfg.Retrieval.TopK > 0 {
		merged.TopK = p.cfg.Retrieval.TopK
	}
	merged.MinScore = float32(p.cfg.Retrieval.MinScore)
	merged.Hybrid = p.cfg.Retrieval.Hybrid
	if p.cfg.Retrieval.VectorWeight > 0 {
		merged.VectorWeight = float32(p.cfg.Retrieval.VectorWeight)
	}
	if p.cfg.Retrieval.KeywordWeight > 0 {
		merged.KeywordWeight = float32(p.cfg.Retrieval.KeywordWeight)
	}
	if opts.TopK > 0 {
		merged.TopK = opts.TopK
	}
	if opts.MinScore > 0 {
		merged.MinScore = float32(opts.MinScore)
	}
	return merged
}

func (p *Pipeline) history(docID string) ([]generation.HistoryEntry, error) {
	window := p.cfg.Generation.HistoryWindow
	if window <= 0 {
		window = 5
	}
	exchanges, err := p.store.History(docID, window)
	if err != nil {
		return nil, err
	}
	entries := make([]generation.HistoryEntry, 0, len(exchanges))
	for _, ex := range exchanges {
		entries = append(entries, generation.HistoryEntry{Question: ex.Question, Answer: ex.Answer})
	}
	return entries, nil
}
