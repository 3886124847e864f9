// Package bootstrap builds the process-scoped services shared by the API
// server and the command line tools.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"
	"gorm.io/gorm"

	"alfredoptarigan/jobsync/internal/config"
	"alfredoptarigan/jobsync/internal/models"
	"alfredoptarigan/jobsync/internal/repositories"
	"alfredoptarigan/jobsync/internal/services"
)

type Container struct {
	DB        *gorm.DB
	Storage   services.StorageService
	Extractor services.TextExtractor
	Embedder  services.Embedder
	Store     services.VectorStore
	Analyzer  services.Analyzer
	Matching  services.MatchingService
	Chunker   services.TextChuncker

	closers []func() error
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	if err := checkEmbeddingDimension(cfg); err != nil {
		return nil, err
	}

	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	c := &Container{DB: db}
	c.closers = append(c.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	jobRepo := repositories.NewJobRepository(db)
	resumeRepo := repositories.NewResumeRepository(db)
	log.Info("✅ Repositories initialized successfully")

	c.Storage = services.NewStorageService(cfg.Storage.UploadPath)
	if err := c.Storage.EnsureUploadDir(); err != nil {
		c.Close()
		return nil, err
	}

	c.Extractor = services.NewTextExtractor(
		services.NewPDFParserService(),
		services.NewPdftoppmRenderer(cfg.OCR.PdftoppmPath, cfg.OCR.DPI),
		services.NewTesseractEngine(cfg.OCR.Language),
		c.Storage,
		log,
	)

	var geminiClient *genai.Client
	if cfg.Gemini.APIKey != "" {
		geminiClient, err = services.NewGeminiClient(ctx, cfg.Gemini.APIKey)
		if err != nil {
			c.Close()
			return nil, err
		}
		log.Info("✅ Gemini AI initialized successfully")
	}

	c.Embedder, err = newEmbedder(cfg, geminiClient)
	if err != nil {
		c.Close()
		return nil, err
	}
	log.Info("✅ Embedder initialized", zap.String("provider", cfg.Embedding.Provider), zap.Int("dimension", c.Embedder.Dimension()))

	c.Store, err = c.newVectorStore(cfg, db, log)
	if err != nil {
		c.Close()
		return nil, err
	}
	log.Info("✅ Vector store initialized", zap.String("backend", cfg.VectorStore.Backend))

	var openAIChat, geminiChat services.ChatCompleter
	if cfg.LLM.APIKey != "" {
		openAIChat = services.NewOpenAIChat(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	}
	if geminiClient != nil {
		geminiChat = services.NewGeminiChat(geminiClient)
	}

	plans := services.BuildModelPlans(cfg.LLM.Models, cfg.LLM.Attempts, openAIChat, geminiChat, log)
	if len(plans) == 0 {
		log.Warn("⚠️ no language model is usable, analyses will use the keyword fallback")
	}

	c.Analyzer = services.NewAnalyzer(
		plans,
		services.AnalyzerConfig{
			RetryDelay:      cfg.LLM.RetryDelay,
			Timeout:         cfg.LLM.Timeout,
			Temperature:     cfg.LLM.Temperature,
			MaxTokens:       cfg.LLM.MaxTokens,
			MinLength:       cfg.LLM.MinLength,
			MarkerThreshold: cfg.LLM.MarkerThreshold,
			TopN:            cfg.Matching.AnalysisTopN,
		},
		services.NewPromptBuilder(cfg.Matching.DescriptionBudget),
		services.NewFallbackAnalyzer(),
		log,
	)

	c.Matching = services.NewMatchingService(
		c.Extractor,
		c.Embedder,
		c.Store,
		c.Analyzer,
		jobRepo,
		resumeRepo,
		services.MatchOptions{Threshold: cfg.Matching.Threshold, Count: cfg.Matching.Count},
		log,
	)
	c.Chunker = services.NewTextChunker()
	log.Info("✅ Services initialized successfully")

	return c, nil
}

// checkEmbeddingDimension rejects dimensions the pgvector columns and match
// functions cannot store. Qdrant collections are created with the configured size.
func checkEmbeddingDimension(cfg *config.Config) error {
	if cfg.Embedding.Dimension <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSION must be positive, got %d", cfg.Embedding.Dimension)
	}
	if cfg.VectorStore.Backend == "pgvector" && cfg.Embedding.Dimension != models.EmbeddingDimension {
		return fmt.Errorf("EMBEDDING_DIMENSION=%d does not match the pgvector schema (vector(%d))",
			cfg.Embedding.Dimension, models.EmbeddingDimension)
	}
	return nil
}

func newEmbedder(cfg *config.Config, geminiClient *genai.Client) (services.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "tei":
		return services.NewTEIEmbedder(cfg.Embedding.URL, cfg.Embedding.Dimension, cfg.Embedding.Timeout), nil
	case "gemini":
		if geminiClient == nil {
			return nil, errors.New("EMBEDDING_PROVIDER=gemini requires GEMINI_API_KEY")
		}
		return services.NewGeminiEmbedder(geminiClient, cfg.Embedding.Model, cfg.Embedding.Dimension), nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
}

func (c *Container) newVectorStore(cfg *config.Config, db *gorm.DB, log *zap.Logger) (services.VectorStore, error) {
	switch cfg.VectorStore.Backend {
	case "pgvector":
		return services.NewPgvectorStore(repositories.NewVectorRepository(db)), nil
	case "qdrant":
		store, closeFn, err := services.NewQdrantStore(
			cfg.Qdrant.URL,
			cfg.Qdrant.APIKey,
			cfg.Qdrant.JobsCollection,
			cfg.Qdrant.CandidatesCollection,
			cfg.Embedding.Dimension,
			log,
		)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, closeFn)
		return store, nil
	}
	return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorStore.Backend)
}

// Ping checks the database connection.
func (c *Container) Ping(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
