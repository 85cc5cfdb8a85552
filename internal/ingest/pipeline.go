// Package ingest loads a document into a vector store collection.
package ingest

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"pdfrag/internal/domain"
	"pdfrag/internal/vectorstore"
)

// Progress is called once per chunk queued for import.
type Progress func(current, total int)

// Summarizer picks the key sentences of a document.
type Summarizer interface {
	Summarize(chunks []domain.Chunk, n int) []domain.Highlight
}

// Report summarizes a finished ingestion.
type Report struct {
	Source     string
	Chunks     int
	Batches    int
	Highlights []domain.Highlight
}

// Options tunes a Pipeline. A zero BatchSize means vectorstore.DefaultBatchSize
// and a nil Progress logs each chunk at Info. Highlights need a Summarizer.
type Options struct {
	BatchSize int
	Progress  Progress
	// Summarizer is optional; SummarySentences <= 0 disables it.
	Summarizer       Summarizer
	SummarySentences int
	Logger           *zap.Logger
}

// Pipeline splits one document and upserts its chunks into a collection.
type Pipeline struct {
	splitter   domain.Splitter
	gateway    domain.Gateway
	batchSize  int
	progress   Progress
	summarizer Summarizer
	summaryLen int
	logger     *zap.Logger
}

// NewPipeline wires a splitter to a gateway.
func NewPipeline(splitter domain.Splitter, gateway domain.Gateway, opts Options) *Pipeline {
	p := &Pipeline{
		splitter:   splitter,
		gateway:    gateway,
		batchSize:  opts.BatchSize,
		progress:   opts.Progress,
		summarizer: opts.Summarizer,
		summaryLen: opts.SummarySentences,
		logger:     opts.Logger,
	}
	if p.batchSize <= 0 {
		p.batchSize = vectorstore.DefaultBatchSize
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.progress == nil {
		logger := p.logger
		p.progress = func(current, total int) {
			logger.Info("importing chunk", zap.Int("current", current), zap.Int("total", total))
		}
	}
	return p
}

// Ingest splits the document at path and upserts its chunks into collection.
// Nothing is written when the document does not exist.
func (p *Pipeline) Ingest(ctx context.Context, path, collection string) (Report, error) {
	report := Report{Source: path}
	if _, err := os.Stat(path); err != nil {
		return report, fmt.Errorf("document %s: %w", path, domain.ErrNotFound)
	}

	chunks, err := p.splitter.Split(ctx, path)
	if err != nil {
		return report, fmt.Errorf("split %s: %w", path, err)
	}
	report.Chunks = len(chunks)
	if len(chunks) == 0 {
		p.logger.Warn("document has no text", zap.String("source", path))
		return report, nil
	}

	for i := range chunks {
		p.progress(i+1, len(chunks))
	}
	if err := p.gateway.BatchUpsert(ctx, collection, chunks, p.batchSize); err != nil {
		return report, err
	}
	report.Batches = (len(chunks) + p.batchSize - 1) / p.batchSize
	if p.summarizer != nil && p.summaryLen > 0 {
		report.Highlights = p.summarizer.Summarize(chunks, p.summaryLen)
	}

	p.logger.Info("document imported",
		zap.String("source", path),
		zap.String("collection", collection),
		zap.Int("chunks", report.Chunks),
		zap.Int("batches", report.Batches),
	)
	return report, nil
}
