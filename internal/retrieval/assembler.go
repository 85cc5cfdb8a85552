// Package retrieval answers questions from the pages stored in a collection.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"pdfrag/internal/domain"
	"pdfrag/internal/vectorstore"
)

const questionPrefix = "Please answer this question and tell me on which page you got the answer: "

// Answer is the synthesized reply together with the context it was built from.
type Answer struct {
	Text    string
	Prompt  string
	Records []domain.Record
}

// Assembler answers questions from the records a gateway retrieves.
type Assembler struct {
	gateway     domain.Gateway
	synthesizer domain.Synthesizer
	collection  string
	logger      *zap.Logger
}

// NewAssembler binds an Assembler to one collection. A nil logger discards logs.
func NewAssembler(gateway domain.Gateway, synthesizer domain.Synthesizer, collection string, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{gateway: gateway, synthesizer: synthesizer, collection: collection, logger: logger}
}

// Answer retrieves up to limit pages similar to question and asks the
// synthesizer to answer from them. A *domain.QueryError from the store is
// returned as is and the synthesizer is not called.
func (a *Assembler) Answer(ctx context.Context, question string, limit int) (Answer, error) {
	if limit <= 0 {
		limit = vectorstore.DefaultLimit
	}
	records, err := a.gateway.NearestNeighborQuery(ctx, a.collection, domain.ChunkFields, question, limit)
	if err != nil {
		var qe *domain.QueryError
		if errors.As(err, &qe) {
			a.logger.Error("query rejected by vector store", zap.Strings("errors", qe.Messages))
			return Answer{}, qe
		}
		return Answer{}, fmt.Errorf("retrieve context: %w", err)
	}
	a.logger.Debug("retrieved context", zap.Int("records", len(records)), zap.Int("limit", limit))

	prompt := BuildPrompt(records, question)
	text, err := a.synthesizer.Synthesize(ctx, prompt, "")
	if err != nil {
		return Answer{Prompt: prompt, Records: records}, fmt.Errorf("synthesize answer: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return Answer{Prompt: prompt, Records: records}, fmt.Errorf("synthesize answer: empty text: %w", domain.ErrInvalidResponse)
	}
	return Answer{Text: text, Prompt: prompt, Records: records}, nil
}

// BuildPrompt announces every record with its page and source, then asks the
// question once.
func BuildPrompt(records []domain.Record, question string) string {
	var b strings.Builder
	for _, r := range records {
		b.WriteString("This is page ")
		b.WriteString(strconv.Itoa(r.Page))
		b.WriteString(" from ")
		b.WriteString(r.Source)
		b.WriteString(":\n\n")
		b.WriteString(r.Content)
		b.WriteString("\n\n")
	}
	b.WriteString(questionPrefix)
	b.WriteString(question)
	return b.String()
}
