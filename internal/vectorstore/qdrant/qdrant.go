// Package qdrant is a gRPC gateway to Qdrant. Qdrant stores vectors only,
// so chunks and queries are embedded client-side before they are sent.
package qdrant

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"pdfrag/internal/domain"
	"pdfrag/internal/vectorstore"
)

// Gateway is the sole owner of the Qdrant connection.
type Gateway struct {
	conn             *grpc.ClientConn
	points           pb.PointsClient
	collections      pb.CollectionsClient
	embedder         domain.Embedder
	apiKey           string
	dimensions       int
	deterministicIDs bool
	logger           *zap.Logger
}

// Config configures the gRPC connection. Embedder turns chunk text into
// vectors of Dimensions length; Qdrant stores them as given.
type Config struct {
	// Addr is the gRPC host:port, usually port 6334.
	Addr             string
	APIKey           string
	UseTLS           bool
	Dimensions       int
	DeterministicIDs bool
	Embedder         domain.Embedder
	Logger           *zap.Logger
}

// NewGateway dials Addr. Close releases the connection.
func NewGateway(cfg Config) (*Gateway, error) {
	if cfg.Embedder == nil {
		return nil, errors.New("qdrant: embedder is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("qdrant: invalid dimensions %d", cfg.Dimensions)
	}
	creds := insecure.NewCredentials()
	if cfg.UseTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	conn, err := grpc.NewClient(cfg.Addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("qdrant: dial %s: %w", cfg.Addr, err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		conn:             conn,
		points:           pb.NewPointsClient(conn),
		collections:      pb.NewCollectionsClient(conn),
		embedder:         cfg.Embedder,
		apiKey:           cfg.APIKey,
		dimensions:       cfg.Dimensions,
		deterministicIDs: cfg.DeterministicIDs,
		logger:           logger,
	}, nil
}

// Close closes the underlying gRPC connection.
func (g *Gateway) Close() error {
	return g.conn.Close()
}

func (g *Gateway) withAuth(ctx context.Context) context.Context {
	if g.apiKey == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "api-key", g.apiKey)
}

// CreateCollection creates a cosine collection sized for the embedder.
// An existing collection is reported as a provisioning failure, like Weaviate does.
// Failures are left for the caller to log.
func (g *Gateway) CreateCollection(ctx context.Context, schema domain.CollectionSchema) domain.ProvisionResult {
	ctx = g.withAuth(ctx)
	res := domain.ProvisionResult{Collection: schema.Name}
	fail := func(err error) domain.ProvisionResult {
		res.Err = fmt.Errorf("create collection %s: %w: %w", schema.Name, domain.ErrProvisioning, err)
		return res
	}

	list, err := g.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fail(fmt.Errorf("list collections: %w", err))
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == schema.Name {
			return fail(fmt.Errorf("collection %q already exists", schema.Name))
		}
	}

	size := uint64(g.dimensions)
	_, err = g.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: schema.Name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     size,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fail(err)
	}
	res.Created = true
	g.logger.Info("created collection", zap.String("collection", schema.Name), zap.Int("dimensions", g.dimensions))
	return res
}

// BatchUpsert embeds and upserts one batch at a time, in chunk order.
func (g *Gateway) BatchUpsert(ctx context.Context, collection string, chunks []domain.Chunk, batchSize int) error {
	ctx = g.withAuth(ctx)
	for n, batch := range vectorstore.Batches(chunks, batchSize) {
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		vectors, err := g.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("batch %d: embed: %w: %w", n+1, domain.ErrIngestion, err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("batch %d: got %d vectors for %d chunks: %w", n+1, len(vectors), len(batch), domain.ErrIngestion)
		}

		wait := true
		_, err = g.points.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: collection,
			Wait:           &wait,
			Points:         g.toPoints(batch, vectors),
		})
		if err != nil {
			return fmt.Errorf("batch %d (%d points): %w: %w", n+1, len(batch), domain.ErrIngestion, err)
		}
		g.logger.Debug("upserted batch", zap.String("collection", collection), zap.Int("batch", n+1), zap.Int("points", len(batch)))
	}
	return nil
}

func (g *Gateway) toPoints(chunks []domain.Chunk, vectors [][]float32) []*pb.PointStruct {
	points := make([]*pb.PointStruct, len(chunks))
	for i, c := range chunks {
		id := uuid.NewString()
		if g.deterministicIDs {
			id = vectorstore.ChunkID(c)
		}
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: id},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: vectors[i]},
				},
			},
			Payload: chunkPayload(c),
		}
	}
	return points
}

func chunkPayload(c domain.Chunk) map[string]*pb.Value {
	return map[string]*pb.Value{
		domain.FieldSource:  {Kind: &pb.Value_StringValue{StringValue: c.Source}},
		domain.FieldPage:    {Kind: &pb.Value_IntegerValue{IntegerValue: int64(c.Page)}},
		domain.FieldContent: {Kind: &pb.Value_StringValue{StringValue: c.Content}},
	}
}

// NearestNeighborQuery embeds text and runs a k-NN search returning the requested payload fields.
func (g *Gateway) NearestNeighborQuery(ctx context.Context, collection string, fields []string, text string, limit int) ([]domain.Record, error) {
	ctx = g.withAuth(ctx)
	if limit <= 0 {
		limit = vectorstore.DefaultLimit
	}
	if len(fields) == 0 {
		fields = domain.ChunkFields
	}
	vectors, err := g.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, &domain.QueryError{Messages: []string{"embed query: " + err.Error()}}
	}
	if len(vectors) != 1 {
		return nil, &domain.QueryError{Messages: []string{fmt.Sprintf("embed query: got %d vectors", len(vectors))}}
	}

	resp, err := g.points.Search(ctx, &pb.SearchPoints{
		CollectionName: collection,
		Vector:         vectors[0],
		Limit:          uint64(limit),
		WithPayload: &pb.WithPayloadSelector{
			SelectorOptions: &pb.WithPayloadSelector_Include{
				Include: &pb.PayloadIncludeSelector{Fields: fields},
			},
		},
	})
	if err != nil {
		return nil, &domain.QueryError{Messages: []string{err.Error()}}
	}

	records := make([]domain.Record, 0, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		rec, err := vectorstore.RecordFromFields(i, payloadFields(r.GetPayload()))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func payloadFields(payload map[string]*pb.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		switch kind := v.GetKind().(type) {
		case *pb.Value_StringValue:
			out[k] = kind.StringValue
		case *pb.Value_IntegerValue:
			out[k] = kind.IntegerValue
		case *pb.Value_DoubleValue:
			out[k] = kind.DoubleValue
		case *pb.Value_BoolValue:
			out[k] = kind.BoolValue
		case *pb.Value_NullValue:
			out[k] = nil
		default:
			out[k] = v.String()
		}
	}
	return out
}
