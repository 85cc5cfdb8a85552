package qdrant

import (
	"context"
	"errors"
	"strings"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"pdfrag/internal/domain"
)

// --- mocks ---

type mockCollections struct {
	pb.CollectionsClient
	existing []string
	created  []*pb.CreateCollection
}

func (m *mockCollections) List(_ context.Context, _ *pb.ListCollectionsRequest, _ ...grpc.CallOption) (*pb.ListCollectionsResponse, error) {
	resp := &pb.ListCollectionsResponse{}
	for _, name := range m.existing {
		resp.Collections = append(resp.Collections, &pb.CollectionDescription{Name: name})
	}
	return resp, nil
}

func (m *mockCollections) Create(_ context.Context, req *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	m.created = append(m.created, req)
	return &pb.CollectionOperationResponse{Result: true}, nil
}

type mockPoints struct {
	pb.PointsClient
	upserts   []*pb.UpsertPoints
	failAt    int
	search    *pb.SearchResponse
	searchErr error
	lastMD    metadata.MD
}

func (m *mockPoints) Upsert(ctx context.Context, req *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	m.upserts = append(m.upserts, req)
	m.lastMD, _ = metadata.FromOutgoingContext(ctx)
	if m.failAt == len(m.upserts) {
		return nil, errors.New("unavailable")
	}
	return &pb.PointsOperationResponse{}, nil
}

func (m *mockPoints) Search(_ context.Context, _ *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	return m.search, m.searchErr
}

type mockEmbedder struct {
	calls [][]string
	err   error
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.calls = append(m.calls, texts)
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1, 0}
	}
	return out, nil
}

func newMockGateway(points *mockPoints, cols *mockCollections, emb *mockEmbedder) *Gateway {
	return &Gateway{
		points:      points,
		collections: cols,
		embedder:    emb,
		apiKey:      "qd-key",
		dimensions:  3,
		logger:      zap.NewNop(),
	}
}

func chunks(n int) []domain.Chunk {
	out := make([]domain.Chunk, n)
	for i := range out {
		out[i] = domain.Chunk{Source: "book.pdf", Page: i + 1, Content: strings.Repeat("x", i+1)}
	}
	return out
}

// --- tests ---

func TestCreateCollection(t *testing.T) {
	cols := &mockCollections{}
	g := newMockGateway(&mockPoints{}, cols, &mockEmbedder{})

	res := g.CreateCollection(context.Background(), domain.CollectionSchema{Name: "Pages"})
	require.NoError(t, res.Err)
	assert.True(t, res.Created)
	require.Len(t, cols.created, 1)
	assert.Equal(t, "Pages", cols.created[0].GetCollectionName())
	assert.Equal(t, uint64(3), cols.created[0].GetVectorsConfig().GetParams().GetSize())
}

func TestCreateCollection_Exists(t *testing.T) {
	cols := &mockCollections{existing: []string{"Pages"}}
	g := newMockGateway(&mockPoints{}, cols, &mockEmbedder{})

	res := g.CreateCollection(context.Background(), domain.CollectionSchema{Name: "Pages"})
	assert.False(t, res.Created)
	assert.ErrorIs(t, res.Err, domain.ErrProvisioning)
	assert.Empty(t, cols.created)
}

func TestBatchUpsert(t *testing.T) {
	points := &mockPoints{}
	emb := &mockEmbedder{}
	g := newMockGateway(points, &mockCollections{}, emb)

	require.NoError(t, g.BatchUpsert(context.Background(), "Pages", chunks(5), 2))

	require.Len(t, points.upserts, 3)
	assert.Len(t, points.upserts[0].GetPoints(), 2)
	assert.Len(t, points.upserts[2].GetPoints(), 1)
	assert.Len(t, emb.calls, 3)
	first := points.upserts[0].GetPoints()[0]
	assert.Equal(t, int64(1), first.GetPayload()["page"].GetIntegerValue())
	assert.Equal(t, "book.pdf", first.GetPayload()["source"].GetStringValue())
	assert.Equal(t, []string{"qd-key"}, points.lastMD.Get("api-key"))
}

func TestBatchUpsert_Failures(t *testing.T) {
	points := &mockPoints{failAt: 2}
	g := newMockGateway(points, &mockCollections{}, &mockEmbedder{})

	err := g.BatchUpsert(context.Background(), "Pages", chunks(5), 2)
	assert.ErrorIs(t, err, domain.ErrIngestion)
	assert.Len(t, points.upserts, 2)

	g = newMockGateway(&mockPoints{}, &mockCollections{}, &mockEmbedder{err: errors.New("rate limited")})
	err = g.BatchUpsert(context.Background(), "Pages", chunks(1), 2)
	assert.ErrorIs(t, err, domain.ErrIngestion)
}

func TestNearestNeighborQuery(t *testing.T) {
	str := func(s string) *pb.Value { return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}} }
	num := func(n int64) *pb.Value { return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: n}} }
	points := &mockPoints{search: &pb.SearchResponse{Result: []*pb.ScoredPoint{
		{Payload: map[string]*pb.Value{"source": str("a.pdf"), "page": num(4), "content": str("four")}},
		{Payload: map[string]*pb.Value{"source": str("a.pdf"), "page": num(1), "content": str("one")}},
	}}}
	g := newMockGateway(points, &mockCollections{}, &mockEmbedder{})

	records, err := g.NearestNeighborQuery(context.Background(), "Pages", nil, "q", 5)
	require.NoError(t, err)
	assert.Equal(t, []domain.Record{
		{Source: "a.pdf", Page: 4, Content: "four"},
		{Source: "a.pdf", Page: 1, Content: "one"},
	}, records)
}

func TestNearestNeighborQuery_Errors(t *testing.T) {
	g := newMockGateway(&mockPoints{searchErr: errors.New("deadline exceeded")}, &mockCollections{}, &mockEmbedder{})
	_, err := g.NearestNeighborQuery(context.Background(), "Pages", nil, "q", 5)
	var qe *domain.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Contains(t, qe.Messages[0], "deadline exceeded")

	str := func(s string) *pb.Value { return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}} }
	points := &mockPoints{search: &pb.SearchResponse{Result: []*pb.ScoredPoint{
		{Payload: map[string]*pb.Value{"source": str("a.pdf"), "content": str("c")}},
	}}}
	g = newMockGateway(points, &mockCollections{}, &mockEmbedder{})
	_, err = g.NearestNeighborQuery(context.Background(), "Pages", nil, "q", 5)
	var me *domain.MalformedResultError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, []string{"content", "source"}, me.Keys)
}

func TestNewGateway_Validates(t *testing.T) {
	_, err := NewGateway(Config{Addr: "localhost:6334", Dimensions: 3})
	assert.Error(t, err)
	_, err = NewGateway(Config{Addr: "localhost:6334", Embedder: &mockEmbedder{}})
	assert.Error(t, err)
}
