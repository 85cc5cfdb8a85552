package memory

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"pdfrag/internal/domain"
	"pdfrag/internal/vectorstore"
)

var unicodeWordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// Gateway is an in-process store ranking chunks by lexical overlap.
// Contents live only as long as the process.
type Gateway struct {
	mu               sync.RWMutex
	collections      map[string]*collection
	deterministicIDs bool
}

type collection struct {
	chunks []domain.Chunk
	index  map[string]int
}

// NewGateway returns an empty store. With deterministicIDs a re-ingested
// chunk replaces its earlier copy instead of adding a duplicate.
func NewGateway(deterministicIDs bool) *Gateway {
	return &Gateway{collections: make(map[string]*collection), deterministicIDs: deterministicIDs}
}

func (g *Gateway) CreateCollection(_ context.Context, schema domain.CollectionSchema) domain.ProvisionResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	res := domain.ProvisionResult{Collection: schema.Name}
	if _, ok := g.collections[schema.Name]; ok {
		res.Err = fmt.Errorf("collection %q already exists: %w", schema.Name, domain.ErrProvisioning)
		return res
	}
	g.collections[schema.Name] = &collection{index: make(map[string]int)}
	res.Created = true
	return res
}

func (g *Gateway) BatchUpsert(ctx context.Context, name string, chunks []domain.Chunk, batchSize int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	col, ok := g.collections[name]
	if !ok {
		return fmt.Errorf("collection %q not found: %w", name, domain.ErrIngestion)
	}
	for n, batch := range vectorstore.Batches(chunks, batchSize) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("batch %d: %w: %w", n+1, domain.ErrIngestion, err)
		}
		for _, c := range batch {
			col.add(c, g.deterministicIDs)
		}
	}
	return nil
}

func (c *collection) add(ch domain.Chunk, deterministic bool) {
	if !deterministic {
		c.chunks = append(c.chunks, ch)
		return
	}
	id := vectorstore.ChunkID(ch)
	if i, ok := c.index[id]; ok {
		c.chunks[i] = ch
		return
	}
	c.index[id] = len(c.chunks)
	c.chunks = append(c.chunks, ch)
}

// Len returns the number of stored chunks in the named collection.
func (g *Gateway) Len(name string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if col, ok := g.collections[name]; ok {
		return len(col.chunks)
	}
	return 0
}

// NearestNeighborQuery ranks chunks by Ochiai token overlap with text.
// Ties keep insertion order.
func (g *Gateway) NearestNeighborQuery(_ context.Context, name string, _ []string, text string, limit int) ([]domain.Record, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	col, ok := g.collections[name]
	if !ok {
		return nil, &domain.QueryError{Messages: []string{fmt.Sprintf("collection %q not found", name)}}
	}
	if limit <= 0 {
		limit = vectorstore.DefaultLimit
	}
	qset := toTokenSet(text)
	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(col.chunks))
	for i, ch := range col.chunks {
		scores[i] = pair{i, overlapOchiai(qset, ch.Content)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	limit = min(limit, len(scores))
	out := make([]domain.Record, 0, limit)
	for _, p := range scores[:limit] {
		ch := col.chunks[p.idx]
		out = append(out, domain.Record{Source: ch.Source, Page: ch.Page, Content: ch.Content})
	}
	return out, nil
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// overlapOchiai returns |A∩B| / sqrt(|A||B|) over distinct tokens.
func overlapOchiai(qset map[string]struct{}, text string) float64 {
	seen := toTokenSet(text)
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	inter := 0
	for t := range seen {
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(seen)))
}
