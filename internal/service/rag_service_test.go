package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"pdfrag/internal/domain"
	"pdfrag/internal/ingest"
	"pdfrag/internal/retrieval"
	"pdfrag/internal/vectorstore/memory"
)

type fixedSplitter struct{}

func (fixedSplitter) Split(_ context.Context, path string) ([]domain.Chunk, error) {
	return []domain.Chunk{
		{Source: path, Page: 1, Content: "Go was designed at Google."},
		{Source: path, Page: 2, Content: "Channels connect goroutines."},
	}, nil
}

type echoSynth struct{ prompt string }

func (s *echoSynth) Synthesize(_ context.Context, prompt, _ string) (string, error) {
	s.prompt = prompt
	return "page 2", nil
}

func TestRAGService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	gw := memory.NewGateway(false)
	synth := &echoSynth{}
	schema := domain.CollectionSchema{Name: "Pages", Fields: domain.DefaultFields()}
	svc := NewRAGService(gw,
		ingest.NewPipeline(fixedSplitter{}, gw, ingest.Options{}),
		retrieval.NewAssembler(gw, synth, "Pages", nil),
		schema, 1, nil)

	res := svc.CreateCollection(ctx)
	require.NoError(t, res.Err)
	assert.True(t, res.Created)

	again := svc.CreateCollection(ctx)
	assert.ErrorIs(t, again.Err, domain.ErrProvisioning)

	path := filepath.Join(t.TempDir(), "go.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o600))
	report, err := svc.Ingest(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Chunks)

	ans, err := svc.Ask(ctx, "what connects goroutines?", 0)
	require.NoError(t, err)
	assert.Equal(t, "page 2", ans.Text)
	require.Len(t, ans.Records, 1)
	assert.Equal(t, 2, ans.Records[0].Page)
	assert.Contains(t, synth.prompt, "This is page 2 from "+path)

	ans, err = svc.Ask(ctx, "what connects goroutines?", 2)
	require.NoError(t, err)
	assert.Len(t, ans.Records, 2)
	assert.Equal(t, "Pages", svc.Collection())
}

func TestRAGService_RejectedCreateLoggedOnce(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	gw := memory.NewGateway(false)
	schema := domain.CollectionSchema{Name: "Pages", Fields: domain.DefaultFields()}
	svc := NewRAGService(gw, nil, nil, schema, 5, zap.New(core))

	require.NoError(t, svc.CreateCollection(context.Background()).Err)
	assert.Zero(t, logs.Len())

	res := svc.CreateCollection(context.Background())
	assert.ErrorIs(t, res.Err, domain.ErrProvisioning)
	entries := logs.FilterMessage("collection not created").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, 1, logs.Len())
}
