package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/domain"
)

type stubGateway struct {
	domain.Gateway
	records    []domain.Record
	err        error
	collection string
	fields     []string
	query      string
	limit      int
}

func (g *stubGateway) NearestNeighborQuery(_ context.Context, collection string, fields []string, query string, limit int) ([]domain.Record, error) {
	g.collection, g.fields, g.query, g.limit = collection, fields, query, limit
	return g.records, g.err
}

type stubSynth struct {
	text   string
	err    error
	calls  int
	prompt string
	input  string
}

func (s *stubSynth) Synthesize(_ context.Context, prompt, input string) (string, error) {
	s.calls++
	s.prompt, s.input = prompt, input
	return s.text, s.err
}

func TestBuildPrompt_Exact(t *testing.T) {
	got := BuildPrompt([]domain.Record{
		{Source: "a.pdf", Page: 3, Content: "Alpha."},
		{Source: "b.pdf", Page: 10, Content: "Beta."},
	}, "What is alpha?")
	want := "This is page 3 from a.pdf:\n\nAlpha.\n\n" +
		"This is page 10 from b.pdf:\n\nBeta.\n\n" +
		"Please answer this question and tell me on which page you got the answer: What is alpha?"
	assert.Equal(t, want, got)
}

func TestBuildPrompt_BlockCount(t *testing.T) {
	for _, k := range []int{0, 1, 5} {
		recs := make([]domain.Record, k)
		for i := range recs {
			recs[i] = domain.Record{Source: "s.pdf", Page: i + 1, Content: "c"}
		}
		p := BuildPrompt(recs, "q?")
		assert.Equal(t, k, strings.Count(p, "This is page "))
		assert.Equal(t, 1, strings.Count(p, questionPrefix))
		assert.True(t, strings.HasSuffix(p, "q?"))
	}
	assert.Equal(t, BuildPrompt(nil, "same"), BuildPrompt(nil, "same"))
}

func TestAnswer(t *testing.T) {
	gw := &stubGateway{records: []domain.Record{{Source: "book.pdf", Page: 2, Content: "The answer is 42."}}}
	synth := &stubSynth{text: "42, page 2"}
	a := NewAssembler(gw, synth, "Pages", nil)

	ans, err := a.Answer(context.Background(), "What is the answer?", 0)
	require.NoError(t, err)
	assert.Equal(t, "42, page 2", ans.Text)
	assert.Equal(t, gw.records, ans.Records)
	assert.Equal(t, synth.prompt, ans.Prompt)
	assert.Empty(t, synth.input)
	assert.Equal(t, "Pages", gw.collection)
	assert.Equal(t, []string{"source", "page", "content"}, gw.fields)
	assert.Equal(t, "What is the answer?", gw.query)
	assert.Equal(t, 5, gw.limit)
}

func TestAnswer_QueryErrorSkipsSynthesis(t *testing.T) {
	qe := &domain.QueryError{Messages: []string{"class Pages not found"}}
	synth := &stubSynth{text: "unused"}
	a := NewAssembler(&stubGateway{err: qe}, synth, "Pages", nil)

	_, err := a.Answer(context.Background(), "q", 3)
	var got *domain.QueryError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, qe.Messages, got.Messages)
	assert.Zero(t, synth.calls)
}

func TestAnswer_MalformedSkipsSynthesis(t *testing.T) {
	malformed := &domain.MalformedResultError{Index: 2, Field: "page", Keys: []string{"content", "source"}}
	synth := &stubSynth{text: "unused"}
	a := NewAssembler(&stubGateway{err: malformed}, synth, "Pages", nil)

	_, err := a.Answer(context.Background(), "q", 5)
	assert.ErrorIs(t, err, domain.ErrMalformedResult)
	var got *domain.MalformedResultError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, []string{"content", "source"}, got.Keys)
	assert.Zero(t, synth.calls)
}

func TestAnswer_SynthesizerErrors(t *testing.T) {
	gw := &stubGateway{records: []domain.Record{{Source: "s", Page: 1, Content: "c"}}}

	_, err := NewAssembler(gw, &stubSynth{text: " \n"}, "Pages", nil).Answer(context.Background(), "q", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidResponse)

	boom := errors.New("rate limited")
	ans, err := NewAssembler(gw, &stubSynth{err: boom}, "Pages", nil).Answer(context.Background(), "q", 1)
	assert.ErrorIs(t, err, boom)
	assert.NotEmpty(t, ans.Prompt)
}
