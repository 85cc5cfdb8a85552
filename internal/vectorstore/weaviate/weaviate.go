// Package weaviate is the Weaviate gateway, built on weaviate-go-client.
// Vectorization happens server-side through the configured module, so only
// text properties travel over the wire.
package weaviate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.uber.org/zap"

	"pdfrag/internal/domain"
	"pdfrag/internal/vectorstore"
)

// The client interpolates class and field names into the GraphQL query as is.
var identRe = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

// Gateway talks to a single Weaviate instance.
type Gateway struct {
	client           *weaviate.Client
	deterministicIDs bool
	logger           *zap.Logger
}

// Config configures the connection. URL carries the scheme and host, for
// example https://my-cluster.weaviate.network. OpenAIKey is forwarded to the
// text2vec-openai module.
type Config struct {
	URL       string
	APIKey    string
	OpenAIKey string
	Timeout   time.Duration

	// DeterministicIDs derives object ids from chunk contents so a re-ingest
	// overwrites objects instead of duplicating them.
	DeterministicIDs bool
	HTTPClient       *http.Client
	Logger           *zap.Logger
}

// New builds a gateway for cfg. No request is made until the first operation.
func New(cfg Config) (*Gateway, error) {
	raw := strings.TrimRight(cfg.URL, "/")
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("weaviate: invalid url %q: %w", cfg.URL, domain.ErrConfiguration)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	wcfg := weaviate.Config{
		Host:             u.Host,
		Scheme:           u.Scheme,
		ConnectionClient: httpClient,
		Headers:          map[string]string{},
	}
	if cfg.OpenAIKey != "" {
		wcfg.Headers["X-Openai-Api-Key"] = cfg.OpenAIKey
	}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("weaviate: new client: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{client: client, deterministicIDs: cfg.DeterministicIDs, logger: logger}, nil
}

// CreateCollection creates the class. Failures, "already exists" included,
// are reported in the result only and left for the caller to log.
func (g *Gateway) CreateCollection(ctx context.Context, schema domain.CollectionSchema) domain.ProvisionResult {
	res := domain.ProvisionResult{Collection: schema.Name}
	class := &models.Class{
		Class:       schema.Name,
		Description: schema.Description,
		Vectorizer:  schema.Vectorizer.Module,
	}
	if schema.Vectorizer.Module != "" && schema.Vectorizer.Module != "none" {
		class.ModuleConfig = map[string]any{
			schema.Vectorizer.Module: map[string]any{
				"model":        schema.Vectorizer.Model,
				"modelVersion": schema.Vectorizer.ModelVersion,
				"type":         schema.Vectorizer.Type,
			},
		}
	}
	for _, f := range schema.Fields {
		class.Properties = append(class.Properties, &models.Property{Name: f.Name, DataType: []string{f.DataType}})
	}

	if err := g.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		res.Err = fmt.Errorf("create class %s: %w: %w", schema.Name, domain.ErrProvisioning, err)
		return res
	}
	res.Created = true
	g.logger.Info("created collection", zap.String("collection", schema.Name))
	return res
}

// BatchUpsert sends one batch request per batchSize chunks, in order.
// The first failing batch stops the ingestion; earlier batches stay committed.
func (g *Gateway) BatchUpsert(ctx context.Context, collection string, chunks []domain.Chunk, batchSize int) error {
	for n, batch := range vectorstore.Batches(chunks, batchSize) {
		objects := make([]*models.Object, len(batch))
		for i, c := range batch {
			objects[i] = &models.Object{
				Class: collection,
				ID:    strfmt.UUID(g.objectID(c)),
				Properties: map[string]any{
					domain.FieldSource:  c.Source,
					domain.FieldPage:    c.Page,
					domain.FieldContent: c.Content,
				},
			}
		}

		results, err := g.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
		if err != nil {
			return fmt.Errorf("batch %d (%d objects): %w: %w", n+1, len(objects), domain.ErrIngestion, err)
		}
		if msgs := objectErrors(results); len(msgs) > 0 {
			return fmt.Errorf("batch %d: %w: %s", n+1, domain.ErrIngestion, strings.Join(msgs, "; "))
		}
		g.logger.Debug("flushed batch", zap.String("collection", collection), zap.Int("batch", n+1), zap.Int("objects", len(objects)))
	}
	return nil
}

func objectErrors(results []models.ObjectsGetResponse) []string {
	var msgs []string
	for _, r := range results {
		if r.Result == nil || r.Result.Errors == nil {
			continue
		}
		for _, e := range r.Result.Errors.Error {
			if e != nil {
				msgs = append(msgs, fmt.Sprintf("%s: %s", r.ID, e.Message))
			}
		}
	}
	return msgs
}

func (g *Gateway) objectID(c domain.Chunk) string {
	if !g.deterministicIDs {
		return uuid.NewString()
	}
	return vectorstore.ChunkID(c)
}

// NearestNeighborQuery runs a nearText query for text and returns up to limit records.
func (g *Gateway) NearestNeighborQuery(ctx context.Context, collection string, fields []string, text string, limit int) ([]domain.Record, error) {
	if limit <= 0 {
		limit = vectorstore.DefaultLimit
	}
	if len(fields) == 0 {
		fields = domain.ChunkFields
	}
	class := className(collection)
	if !identRe.MatchString(class) {
		return nil, &domain.QueryError{Messages: []string{fmt.Sprintf("invalid collection name %q", collection)}}
	}
	gqlFields := make([]graphql.Field, len(fields))
	for i, f := range fields {
		if !identRe.MatchString(f) {
			return nil, &domain.QueryError{Messages: []string{fmt.Sprintf("invalid field name %q", f)}}
		}
		gqlFields[i] = graphql.Field{Name: f}
	}

	gql := g.client.GraphQL()
	resp, err := gql.Get().
		WithClassName(class).
		WithFields(gqlFields...).
		WithNearText(gql.NearTextArgBuilder().WithConcepts([]string{text})).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, &domain.QueryError{Messages: []string{err.Error()}}
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			if e != nil {
				msgs = append(msgs, e.Message)
			}
		}
		return nil, &domain.QueryError{Messages: msgs}
	}

	rows := resultRows(resp.Data, class)
	records := make([]domain.Record, 0, len(rows))
	for i, r := range rows {
		rec, err := vectorstore.RecordFromFields(i, r)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// resultRows digs data.Get.<class> out of a GraphQL response. A row that is
// not an object is kept as an empty record so it fails validation.
func resultRows(data map[string]models.JSONObject, class string) []map[string]any {
	get, _ := data["Get"].(map[string]any)
	list, _ := get[class].([]any)
	rows := make([]map[string]any, len(list))
	for i, item := range list {
		row, ok := item.(map[string]any)
		if !ok {
			row = map[string]any{}
		}
		rows[i] = row
	}
	return rows
}

// className mirrors Weaviate's capitalization of class names.
func className(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
