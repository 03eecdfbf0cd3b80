// Package api exposes the retrieval pipeline over HTTP: query answering,
// document ingestion, health, and metrics.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pressrag-ai/pressrag/pkg/generate"
	"github.com/pressrag-ai/pressrag/pkg/observability"
	"github.com/pressrag-ai/pressrag/pkg/rag"
	"github.com/pressrag-ai/pressrag/pkg/retrieval"
	"github.com/pressrag-ai/pressrag/pkg/vectorstore"
)

// Server wires the pipeline components behind a gin router.
type Server struct {
	retriever *retrieval.Retriever
	assembler *retrieval.Assembler
	ingestor  *retrieval.Ingestor
	generator generate.Generator // nil serves retrieval-only responses
	store     vectorstore.Store

	dataFolder string
	metrics    *observability.Metrics
	log        zerolog.Logger
	engine     *gin.Engine
}

// Options configures a Server.
type Options struct {
	Retriever  *retrieval.Retriever
	Assembler  *retrieval.Assembler
	Ingestor   *retrieval.Ingestor
	Generator  generate.Generator
	Store      vectorstore.Store
	DataFolder string
	Metrics    *observability.Metrics
	Log        zerolog.Logger
}

// New builds the server and its routes.
func New(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		retriever:  opts.Retriever,
		assembler:  opts.Assembler,
		ingestor:   opts.Ingestor,
		generator:  opts.Generator,
		store:      opts.Store,
		dataFolder: opts.DataFolder,
		metrics:    opts.Metrics,
		log:        opts.Log,
		engine:     gin.New(),
	}

	s.engine.Use(gin.Recovery(), s.observe())
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/healthz", s.handleHealthz)
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	s.engine.POST("/query", s.handleQuery)
	s.engine.POST("/ingest", s.handleIngest)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// observe logs each request and records HTTP metrics.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		if s.metrics != nil {
			s.metrics.ObserveHTTP(route, strconv.Itoa(status), elapsed)
		}
		s.log.Info().
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("elapsed", elapsed).
			Msg("request")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleHealthz reports index reachability and size; a failing store makes
// the endpoint return 503 so orchestrators can restart or reroute.
func (s *Server) handleHealthz(c *gin.Context) {
	if err := s.store.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	count, err := s.store.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "indexed_chunks": count})
}

// queryRequest is one answer request. Filters restrict retrieval by metadata:
// publication_id and source must match exactly, list fields match any value.
type queryRequest struct {
	Query   string       `json:"query" binding:"required"`
	TopK    int          `json:"top_k"`
	Filters queryFilters `json:"filters"`
}

type queryFilters struct {
	PublicationID string   `json:"publication_id"`
	Source        string   `json:"source"`
	Topics        []string `json:"topics"`
	Companies     []string `json:"mentioned_companies"`
	Dates         []string `json:"mentioned_dates"`
}

func (f queryFilters) toStoreFilter() *vectorstore.Filter {
	filter := &vectorstore.Filter{
		Equals: map[string]string{},
		Any:    map[string][]string{},
	}
	if f.PublicationID != "" {
		filter.Equals[rag.FieldPublicationID] = f.PublicationID
	}
	if f.Source != "" {
		filter.Equals[rag.FieldSource] = f.Source
	}
	if len(f.Topics) > 0 {
		filter.Any[rag.FieldTopics] = f.Topics
	}
	if len(f.Companies) > 0 {
		filter.Any[rag.FieldCompanies] = f.Companies
	}
	if len(f.Dates) > 0 {
		filter.Any[rag.FieldDates] = f.Dates
	}
	if filter.Empty() {
		return nil
	}
	return filter
}

type queryResponse struct {
	Answer   string              `json:"answer,omitempty"`
	Context  string              `json:"context"`
	Sources  []retrieval.Citation `json:"sources"`
	Chunks   []rag.ScoredChunk   `json:"chunks"`
	Reranked bool                `json:"reranked"`
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.metrics != nil {
		s.metrics.IncQueries()
	}

	result, err := s.retriever.Retrieve(c.Request.Context(), retrieval.Query{
		Text:   req.Query,
		TopK:   req.TopK,
		Filter: req.Filters.toStoreFilter(),
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	assembled := s.assembler.Assemble(result.Chunks)
	resp := queryResponse{
		Context:  assembled.Text,
		Sources:  assembled.Citations,
		Chunks:   result.Chunks,
		Reranked: result.Reranked,
	}

	if s.generator != nil {
		messages := generate.BuildMessages(req.Query, assembled.Text, nil)
		answer, err := s.generator.Generate(c.Request.Context(), messages)
		if err != nil {
			s.fail(c, err)
			return
		}
		resp.Answer = answer
	}
	c.JSON(http.StatusOK, resp)
}

// ingestRequest indexes an inline document, or the configured data folder
// when Folder is set.
type ingestRequest struct {
	Text     string `json:"text"`
	Filename string `json:"filename"`
	Folder   bool   `json:"folder"`
}

func (s *Server) handleIngest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var stats *retrieval.IngestStats
	var err error
	switch {
	case req.Folder:
		stats, err = s.ingestor.IngestFolder(c.Request.Context(), s.dataFolder)
	case req.Text != "" && req.Filename != "":
		stats, err = s.ingestor.IngestDocument(c.Request.Context(), req.Text, req.Filename)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "either folder=true or text and filename are required"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// fail maps pipeline errors to HTTP statuses: unavailable backends are 503,
// everything else 500.
func (s *Server) fail(c *gin.Context, err error) {
	s.log.Error().Err(err).Str("route", c.FullPath()).Msg("request failed")
	status := http.StatusInternalServerError
	if isUnavailable(err) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func isUnavailable(err error) bool {
	return errors.Is(err, rag.ErrModelUnavailable) || errors.Is(err, rag.ErrIndexUnavailable)
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, address string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         address,
		Handler:      s.engine,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info().Str("address", address).Msg("http server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
