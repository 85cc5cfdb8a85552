// Package vectorstore holds helpers shared by the vector store gateways.
package vectorstore

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"pdfrag/internal/domain"
)

// chunkNamespace seeds deterministic chunk ids.
var chunkNamespace = uuid.MustParse("6f1c8a3e-2b7d-4e59-9a10-3c5d7e8f9a0b")

// DefaultBatchSize is the upsert group size used when none is configured.
const DefaultBatchSize = 100

// DefaultLimit is the number of records a query returns when none is given.
const DefaultLimit = 5

// Batches splits chunks into consecutive groups of at most size elements.
func Batches(chunks []domain.Chunk, size int) [][]domain.Chunk {
	if size <= 0 {
		size = DefaultBatchSize
	}
	out := make([][]domain.Chunk, 0, (len(chunks)+size-1)/size)
	for start := 0; start < len(chunks); start += size {
		end := min(start+size, len(chunks))
		out = append(out, chunks[start:end])
	}
	return out
}

// ChunkID derives a stable UUIDv5 from a chunk's source, page and content.
func ChunkID(c domain.Chunk) string {
	key := fmt.Sprintf("%s\x00%d\x00%s", c.Source, c.Page, c.Content)
	return uuid.NewSHA1(chunkNamespace, []byte(key)).String()
}

// RecordFromFields converts one raw store result into a Record.
// A field that is absent or null makes the whole record malformed.
func RecordFromFields(index int, fields map[string]any) (domain.Record, error) {
	for _, name := range domain.ChunkFields {
		if v, ok := fields[name]; !ok || v == nil {
			return domain.Record{}, &domain.MalformedResultError{Index: index, Field: name, Keys: presentKeys(fields)}
		}
	}
	source, ok := fields[domain.FieldSource].(string)
	if !ok {
		return domain.Record{}, fmt.Errorf("record %d: source is %T, not a string: %w", index, fields[domain.FieldSource], domain.ErrMalformedResult)
	}
	content, ok := fields[domain.FieldContent].(string)
	if !ok {
		return domain.Record{}, fmt.Errorf("record %d: content is %T, not a string: %w", index, fields[domain.FieldContent], domain.ErrMalformedResult)
	}
	page, err := toPage(fields[domain.FieldPage])
	if err != nil {
		return domain.Record{}, fmt.Errorf("record %d: %v: %w", index, err, domain.ErrMalformedResult)
	}
	return domain.Record{Source: source, Page: page, Content: content}, nil
}

func toPage(v any) (int, error) {
	switch p := v.(type) {
	case int:
		return p, nil
	case int64:
		return int(p), nil
	case float64:
		if p != math.Trunc(p) {
			return 0, fmt.Errorf("page %v is not an integer", p)
		}
		return int(p), nil
	case json.Number:
		n, err := p.Int64()
		if err != nil {
			return 0, fmt.Errorf("page %q is not an integer", p.String())
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("page is %T, not a number", v)
	}
}

func presentKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for k, v := range fields {
		if v != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
