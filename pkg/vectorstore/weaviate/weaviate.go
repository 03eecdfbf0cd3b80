// Package weaviate implements the vectorstore.Store interface on a Weaviate
// class with external vectors (vectorizer "none").
package weaviate

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-openapi/strfmt"
	wv "github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/pressrag-ai/pressrag/pkg/rag"
	"github.com/pressrag-ai/pressrag/pkg/vectorstore"
)

// Client is a Weaviate-backed vector store. Object ids are deterministic
// UUIDs derived from chunk ids; the chunk id itself lives in the properties.
type Client struct {
	client    *wv.Client
	className string
}

// Config holds Weaviate client configuration.
type Config struct {
	// URL of the Weaviate instance, e.g. "http://localhost:8080".
	URL string

	// ClassName for chunk objects. Defaults to "Chunk".
	ClassName string

	// APIKey for authentication, optional.
	APIKey string
}

// textFields is the scalar subset of the chunk payload; list fields are
// declared separately as text arrays.
var textFields = []string{
	rag.FieldContent,
	rag.FieldChunkID,
	rag.FieldDocID,
	rag.FieldPublicationID,
	rag.FieldSource,
	rag.FieldExtractedAt,
	rag.FieldContentHash,
}

var intFields = []string{
	rag.FieldChunkIndex,
	rag.FieldTotalChunks,
	rag.FieldWordCount,
}

var listFields = []string{
	rag.FieldDates,
	rag.FieldTopics,
	rag.FieldCompanies,
}

// New creates a Weaviate client and ensures the class schema exists.
func New(ctx context.Context, config *Config) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("weaviate URL is required")
	}
	if config.ClassName == "" {
		config.ClassName = "Chunk"
	}

	parsedURL, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid weaviate URL: %w", err)
	}
	scheme := parsedURL.Scheme
	if scheme == "" {
		scheme = "http"
	}

	clientConfig := wv.Config{
		Host:   parsedURL.Host,
		Scheme: scheme,
	}
	if config.APIKey != "" {
		clientConfig.AuthConfig = auth.ApiKey{Value: config.APIKey}
	}

	weaviateClient, err := wv.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	c := &Client{client: weaviateClient, className: config.ClassName}
	if err := c.ensureClass(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

var _ vectorstore.Store = (*Client)(nil)

// Upsert writes records in one batch. Weaviate replaces objects whose id
// already exists, so re-ingestion overwrites in place.
func (c *Client) Upsert(ctx context.Context, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}

	objects := make([]*models.Object, 0, len(records))
	for _, rec := range records {
		objects = append(objects, &models.Object{
			Class:      c.className,
			ID:         strfmt.UUID(vectorstore.PointID(rec.ID)),
			Properties: rag.ChunkPayload(rec.Chunk),
			Vector:     rec.Vector,
		})
	}

	responses, err := c.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: weaviate batch upsert: %w", rag.ErrIndexUnavailable, err)
	}
	for _, resp := range responses {
		if resp.Result != nil && resp.Result.Errors != nil && len(resp.Result.Errors.Error) > 0 {
			return fmt.Errorf("%w: weaviate upsert object %s: %s",
				rag.ErrIndexUnavailable, resp.ID, resp.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// Delete removes objects by chunk id.
func (c *Client) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	values := make([]string, len(ids))
	copy(values, ids)

	where := filters.Where().
		WithPath([]string{rag.FieldChunkID}).
		WithOperator(filters.ContainsAny).
		WithValueText(values...)
	return c.batchDelete(ctx, where)
}

// DeleteByDoc removes every object belonging to a document.
func (c *Client) DeleteByDoc(ctx context.Context, docID string) error {
	where := filters.Where().
		WithPath([]string{rag.FieldDocID}).
		WithOperator(filters.Equal).
		WithValueText(docID)
	return c.batchDelete(ctx, where)
}

func (c *Client) batchDelete(ctx context.Context, where *filters.WhereBuilder) error {
	_, err := c.client.Batch().ObjectsBatchDeleter().
		WithClassName(c.className).
		WithWhere(where).
		WithOutput("minimal").
		Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: weaviate batch delete: %w", rag.ErrIndexUnavailable, err)
	}
	return nil
}

// Query performs nearVector search with optional property filtering. Weaviate
// reports cosine distance; similarity is 1 - distance.
func (c *Client) Query(ctx context.Context, vector []float32, k int, filter *vectorstore.Filter) ([]rag.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	nearVector := c.client.GraphQL().NearVectorArgBuilder().WithVector(vector)
	query := c.client.GraphQL().Get().
		WithClassName(c.className).
		WithNearVector(nearVector).
		WithLimit(k).
		WithFields(c.queryFields()...)
	if where := toWhere(filter); where != nil {
		query = query.WithWhere(where)
	}

	resp, err := query.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: weaviate query: %w", rag.ErrIndexUnavailable, err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("%w: weaviate query: %s", rag.ErrIndexUnavailable, resp.Errors[0].Message)
	}

	return c.parseResults(resp.Data)
}

func (c *Client) queryFields() []graphql.Field {
	fields := make([]graphql.Field, 0, len(textFields)+len(intFields)+len(listFields)+1)
	for _, name := range textFields {
		fields = append(fields, graphql.Field{Name: name})
	}
	for _, name := range intFields {
		fields = append(fields, graphql.Field{Name: name})
	}
	for _, name := range listFields {
		fields = append(fields, graphql.Field{Name: name})
	}
	fields = append(fields, graphql.Field{
		Name:   "_additional",
		Fields: []graphql.Field{{Name: "distance"}},
	})
	return fields
}

func (c *Client) parseResults(data map[string]models.JSONObject) ([]rag.ScoredChunk, error) {
	get, ok := data["Get"].(map[string]any)
	if !ok {
		return nil, nil
	}
	objects, ok := get[c.className].([]any)
	if !ok {
		return nil, nil
	}

	results := make([]rag.ScoredChunk, 0, len(objects))
	for _, obj := range objects {
		properties, ok := obj.(map[string]any)
		if !ok {
			continue
		}
		score := 0.0
		if additional, ok := properties["_additional"].(map[string]any); ok {
			if distance, ok := additional["distance"].(float64); ok {
				score = 1 - distance
			}
		}
		results = append(results, rag.ScoredChunk{
			Chunk: rag.ChunkFromPayload(properties),
			Score: score,
		})
	}
	return results, nil
}

// Count reports the number of stored objects via a meta aggregation.
func (c *Client) Count(ctx context.Context) (int, error) {
	resp, err := c.client.GraphQL().Aggregate().
		WithClassName(c.className).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: weaviate count: %w", rag.ErrIndexUnavailable, err)
	}
	if len(resp.Errors) > 0 {
		return 0, fmt.Errorf("%w: weaviate count: %s", rag.ErrIndexUnavailable, resp.Errors[0].Message)
	}

	aggregate, ok := resp.Data["Aggregate"].(map[string]any)
	if !ok {
		return 0, nil
	}
	entries, ok := aggregate[c.className].([]any)
	if !ok || len(entries) == 0 {
		return 0, nil
	}
	entry, ok := entries[0].(map[string]any)
	if !ok {
		return 0, nil
	}
	meta, ok := entry["meta"].(map[string]any)
	if !ok {
		return 0, nil
	}
	count, _ := meta["count"].(float64)
	return int(count), nil
}

// Health checks instance readiness.
func (c *Client) Health(ctx context.Context) error {
	ready, err := c.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: weaviate readiness: %w", rag.ErrIndexUnavailable, err)
	}
	if !ready {
		return fmt.Errorf("%w: weaviate instance not ready", rag.ErrIndexUnavailable)
	}
	return nil
}

// Close is a no-op; the client holds no persistent connection.
func (c *Client) Close() error { return nil }

func (c *Client) ensureClass(ctx context.Context) error {
	exists, err := c.client.Schema().ClassExistenceChecker().WithClassName(c.className).Do(ctx)
	if err != nil {
		return fmt.Errorf("%w: weaviate schema check: %w", rag.ErrIndexUnavailable, err)
	}
	if exists {
		return nil
	}

	properties := make([]*models.Property, 0, len(textFields)+len(intFields)+len(listFields))
	for _, name := range textFields {
		properties = append(properties, &models.Property{Name: name, DataType: []string{"text"}})
	}
	for _, name := range intFields {
		properties = append(properties, &models.Property{Name: name, DataType: []string{"int"}})
	}
	for _, name := range listFields {
		properties = append(properties, &models.Property{Name: name, DataType: []string{"text[]"}})
	}

	class := &models.Class{
		Class:      c.className,
		Vectorizer: "none",
		Properties: properties,
	}
	if err := c.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("%w: weaviate create class: %w", rag.ErrIndexUnavailable, err)
	}
	return nil
}

// toWhere converts the store filter to a Weaviate where clause. Multiple
// predicates combine with And.
func toWhere(filter *vectorstore.Filter) *filters.WhereBuilder {
	if filter.Empty() {
		return nil
	}

	var operands []*filters.WhereBuilder
	for key, value := range filter.Equals {
		operands = append(operands, filters.Where().
			WithPath([]string{key}).
			WithOperator(filters.Equal).
			WithValueText(value))
	}
	for key, values := range filter.Any {
		operands = append(operands, filters.Where().
			WithPath([]string{key}).
			WithOperator(filters.ContainsAny).
			WithValueText(values...))
	}

	if len(operands) == 1 {
		return operands[0]
	}
	return filters.Where().WithOperator(filters.And).WithOperands(operands)
}
