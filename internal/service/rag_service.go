// Package service exposes the three user-facing operations to the CLI and TUI.
package service

import (
	"context"

	"go.uber.org/zap"

	"pdfrag/internal/domain"
	"pdfrag/internal/ingest"
	"pdfrag/internal/retrieval"
)

// Ingester loads one document into a collection.
type Ingester interface {
	Ingest(ctx context.Context, path, collection string) (ingest.Report, error)
}

// Answerer answers one question from a collection.
type Answerer interface {
	Answer(ctx context.Context, question string, limit int) (retrieval.Answer, error)
}

// RAGService binds the pipeline and the assembler to one collection.
type RAGService struct {
	gateway  domain.Gateway
	ingester Ingester
	answerer Answerer
	schema   domain.CollectionSchema
	limit    int
	logger   *zap.Logger
}

func NewRAGService(gateway domain.Gateway, ingester Ingester, answerer Answerer, schema domain.CollectionSchema, limit int, logger *zap.Logger) *RAGService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RAGService{gateway: gateway, ingester: ingester, answerer: answerer, schema: schema, limit: limit, logger: logger}
}

// Collection returns the name of the collection every operation targets.
func (s *RAGService) Collection() string { return s.schema.Name }

// CreateCollection provisions the collection. A rejected request is logged
// here once and reported in the result, never returned as an error. Gateways
// do not log it themselves.
func (s *RAGService) CreateCollection(ctx context.Context) domain.ProvisionResult {
	res := s.gateway.CreateCollection(ctx, s.schema)
	if res.Err != nil {
		s.logger.Warn("collection not created", zap.String("collection", res.Collection), zap.Error(res.Err))
	}
	return res
}

func (s *RAGService) Ingest(ctx context.Context, path string) (ingest.Report, error) {
	return s.ingester.Ingest(ctx, path, s.schema.Name)
}

// Ask answers question with the configured limit unless limit is positive.
func (s *RAGService) Ask(ctx context.Context, question string, limit int) (retrieval.Answer, error) {
	if limit <= 0 {
		limit = s.limit
	}
	return s.answerer.Answer(ctx, question, limit)
}
