package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pdfrag/internal/cli"
	"pdfrag/internal/config"
	"pdfrag/internal/domain"
	"pdfrag/internal/ingest"
	"pdfrag/internal/llm"
	"pdfrag/internal/retrieval"
	"pdfrag/internal/service"
	"pdfrag/internal/splitter"
	"pdfrag/internal/summarizer"
	"pdfrag/internal/vectorstore/memory"
	"pdfrag/internal/vectorstore/qdrant"
	"pdfrag/internal/vectorstore/weaviate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cli.SetFactory(newService)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}

// newService assembles the splitter, gateway and synthesizer described by cfg.
func newService(_ context.Context, cfg *config.AppConfig, log *zap.Logger) (cli.Service, func(), error) {
	llmCfg := llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		ChatModel:      cfg.LLM.ChatModel,
		Temperature:    cfg.LLM.Temperature,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Dimensions:     cfg.LLM.Dimensions,
		Timeout:        time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
		Logger:         log.Named("llm"),
	}

	sp, err := splitter.New(splitter.Options{
		Strategy:          cfg.Splitter.Strategy,
		SentencesPerChunk: cfg.Splitter.SentencesPerChunk,
		OverlapSentences:  cfg.Splitter.OverlapSentences,
		MaxChars:          cfg.Splitter.MaxChars,
		OverlapChars:      cfg.Splitter.OverlapChars,
		Logger:            log.Named("splitter"),
	})
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {}
	var gw domain.Gateway
	switch cfg.VectorStore.Type {
	case "weaviate":
		w, err := weaviate.New(weaviate.Config{
			URL:              cfg.VectorStore.Weaviate.URL,
			APIKey:           cfg.VectorStore.Weaviate.APIKey,
			OpenAIKey:        cfg.LLM.APIKey,
			Timeout:          time.Duration(cfg.VectorStore.TimeoutSecs) * time.Second,
			DeterministicIDs: cfg.Ingest.DeterministicIDs,
			Logger:           log.Named("weaviate"),
		})
		if err != nil {
			return nil, nil, err
		}
		gw = w
	case "qdrant":
		q, err := qdrant.NewGateway(qdrant.Config{
			Addr:             cfg.VectorStore.Qdrant.Addr,
			APIKey:           cfg.VectorStore.Qdrant.APIKey,
			UseTLS:           cfg.VectorStore.Qdrant.UseTLS,
			Dimensions:       cfg.LLM.Dimensions,
			DeterministicIDs: cfg.Ingest.DeterministicIDs,
			Embedder:         llm.NewEmbedder(llmCfg),
			Logger:           log.Named("qdrant"),
		})
		if err != nil {
			return nil, nil, err
		}
		gw = q
		closeFn = func() { _ = q.Close() }
	case "memory":
		gw = memory.NewGateway(cfg.Ingest.DeterministicIDs)
	default:
		return nil, nil, fmt.Errorf("unknown vector store %q: %w", cfg.VectorStore.Type, domain.ErrConfiguration)
	}

	pipeline := ingest.NewPipeline(sp, gw, ingest.Options{
		BatchSize:        cfg.Ingest.BatchSize,
		Summarizer:       summarizer.NewFrequencySummarizer(),
		SummarySentences: cfg.Ingest.SummarySentences,
		Logger:           log.Named("ingest"),
	})
	assembler := retrieval.NewAssembler(gw, llm.NewSynthesizer(llmCfg), cfg.Collection.Name, log.Named("retrieval"))
	svc := service.NewRAGService(gw, pipeline, assembler, cfg.Schema(), cfg.Query.Limit, log)
	return svc, closeFn, nil
}
