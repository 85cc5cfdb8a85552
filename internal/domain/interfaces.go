package domain

import "context"

// Field names shared by the collection schema, the upsert payload and queries.
const (
	FieldSource  = "source"
	FieldPage    = "page"
	FieldContent = "content"
)

// ChunkFields lists the properties every stored chunk carries, in query order.
var ChunkFields = []string{FieldSource, FieldPage, FieldContent}

// Chunk is a page- or passage-sized unit of text with provenance metadata.
// Page is 1-based.
type Chunk struct {
	Source  string
	Page    int
	Content string
}

// Record is a single nearest-neighbor hit as returned by the store.
// Records arrive ordered by descending similarity.
type Record struct {
	Source  string
	Page    int
	Content string
}

// Highlight is a key sentence of a document and the page it came from.
type Highlight struct {
	Page     int
	Sentence string
}

// VectorizerSpec names the store-side embedding module and model.
type VectorizerSpec struct {
	Module       string
	Model        string
	ModelVersion string
	Type         string
}

// SchemaField is a single indexed property of a collection.
type SchemaField struct {
	Name     string
	DataType string
}

// CollectionSchema describes a named vector-store collection.
type CollectionSchema struct {
	Name        string
	Description string
	Vectorizer  VectorizerSpec
	Fields      []SchemaField
}

// DefaultFields returns the indexed fields of a chunk collection.
func DefaultFields() []SchemaField {
	return []SchemaField{
		{Name: FieldSource, DataType: "text"},
		{Name: FieldPage, DataType: "int"},
		{Name: FieldContent, DataType: "text"},
	}
}

// ProvisionResult reports the outcome of a schema-creation request.
// Err is non-nil when the store rejected the request; callers may ignore it.
type ProvisionResult struct {
	Collection string
	Created    bool
	Err        error
}

// Splitter turns a source document into ordered chunks.
type Splitter interface {
	Split(ctx context.Context, path string) ([]Chunk, error)
}

// Gateway owns the connection to a vector store.
type Gateway interface {
	CreateCollection(ctx context.Context, schema CollectionSchema) ProvisionResult
	BatchUpsert(ctx context.Context, collection string, chunks []Chunk, batchSize int) error
	NearestNeighborQuery(ctx context.Context, collection string, fields []string, query string, limit int) ([]Record, error)
}

// Synthesizer turns an assembled prompt into answer text.
type Synthesizer interface {
	Synthesize(ctx context.Context, prompt, input string) (string, error)
}

// Embedder converts free text into vectors for stores without a server-side vectorizer.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
