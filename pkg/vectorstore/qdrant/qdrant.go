// Package qdrant implements the vectorstore.Store interface on a Qdrant
// collection.
package qdrant

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	qd "github.com/qdrant/go-client/qdrant"

	"github.com/pressrag-ai/pressrag/pkg/rag"
	"github.com/pressrag-ai/pressrag/pkg/vectorstore"
)

// Client is a Qdrant-backed vector store. Point ids are deterministic UUIDs
// derived from chunk ids; the chunk id itself lives in the payload.
type Client struct {
	client         *qd.Client
	collectionName string
	vectorSize     uint64
}

// Config holds Qdrant client configuration.
type Config struct {
	// URL of the Qdrant server, e.g. "http://localhost:6334".
	URL string

	// CollectionName for chunk records. Defaults to "chunks".
	CollectionName string

	// APIKey for authentication, optional.
	APIKey string

	// VectorSize of stored embeddings; used when the collection is created.
	VectorSize int
}

// New creates a Qdrant client. The collection is created lazily on the first
// Upsert if it does not exist.
func New(config *Config) (*Client, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("qdrant URL is required")
	}
	if config.CollectionName == "" {
		config.CollectionName = "chunks"
	}
	if config.VectorSize <= 0 {
		return nil, fmt.Errorf("qdrant vector size is required")
	}

	parsedURL, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid qdrant URL: %w", err)
	}
	port := 6334
	if parsedURL.Port() != "" {
		p, err := strconv.Atoi(parsedURL.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant port: %w", err)
		}
		port = p
	}

	qdrantClient, err := qd.NewClient(&qd.Config{
		Host:   parsedURL.Hostname(),
		Port:   port,
		APIKey: config.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &Client{
		client:         qdrantClient,
		collectionName: config.CollectionName,
		vectorSize:     uint64(config.VectorSize),
	}, nil
}

var _ vectorstore.Store = (*Client)(nil)

// Upsert writes records in batches, replacing points with the same id.
func (c *Client) Upsert(ctx context.Context, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := c.ensureCollection(ctx); err != nil {
		return err
	}

	const batchSize = 100
	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))
		if err := c.upsertBatch(ctx, records[i:end]); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", i, end-1, err)
		}
	}
	return nil
}

func (c *Client) upsertBatch(ctx context.Context, records []vectorstore.Record) error {
	points := make([]*qd.PointStruct, 0, len(records))
	for _, rec := range records {
		points = append(points, &qd.PointStruct{
			Id:      qd.NewIDUUID(vectorstore.PointID(rec.ID)),
			Vectors: qd.NewVectors(rec.Vector...),
			Payload: toPayload(rag.ChunkPayload(rec.Chunk)),
		})
	}

	wait := true
	_, err := c.client.Upsert(ctx, &qd.UpsertPoints{
		CollectionName: c.collectionName,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("%w: qdrant upsert: %w", rag.ErrIndexUnavailable, err)
	}
	return nil
}

// Delete removes points by chunk id.
func (c *Client) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qd.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qd.NewIDUUID(vectorstore.PointID(id))
	}

	wait := true
	_, err := c.client.Delete(ctx, &qd.DeletePoints{
		CollectionName: c.collectionName,
		Points:         qd.NewPointsSelector(pointIDs...),
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("%w: qdrant delete: %w", rag.ErrIndexUnavailable, err)
	}
	return nil
}

// DeleteByDoc removes every point whose payload doc_id matches.
func (c *Client) DeleteByDoc(ctx context.Context, docID string) error {
	wait := true
	_, err := c.client.Delete(ctx, &qd.DeletePoints{
		CollectionName: c.collectionName,
		Points: qd.NewPointsSelectorFilter(&qd.Filter{
			Must: []*qd.Condition{qd.NewMatch(rag.FieldDocID, docID)},
		}),
		Wait: &wait,
	})
	if err != nil {
		return fmt.Errorf("%w: qdrant delete by doc: %w", rag.ErrIndexUnavailable, err)
	}
	return nil
}

// Query performs cosine similarity search with optional payload filtering.
func (c *Client) Query(ctx context.Context, vector []float32, k int, filter *vectorstore.Filter) ([]rag.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	limit := uint64(k)
	request := &qd.QueryPoints{
		CollectionName: c.collectionName,
		Query:          qd.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qd.NewWithPayload(true),
	}
	if qf := toFilter(filter); qf != nil {
		request.Filter = qf
	}

	points, err := c.client.Query(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant query: %w", rag.ErrIndexUnavailable, err)
	}

	results := make([]rag.ScoredChunk, 0, len(points))
	for _, point := range points {
		results = append(results, rag.ScoredChunk{
			Chunk: rag.ChunkFromPayload(fromPayload(point.Payload)),
			Score: float64(point.Score),
		})
	}
	return results, nil
}

// Count reports the exact number of stored points.
func (c *Client) Count(ctx context.Context) (int, error) {
	exact := true
	count, err := c.client.Count(ctx, &qd.CountPoints{
		CollectionName: c.collectionName,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: qdrant count: %w", rag.ErrIndexUnavailable, err)
	}
	return int(count), nil
}

// Health checks server reachability.
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: qdrant health check: %w", rag.ErrIndexUnavailable, err)
	}
	return nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) ensureCollection(ctx context.Context) error {
	exists, err := c.client.CollectionExists(ctx, c.collectionName)
	if err != nil {
		return fmt.Errorf("%w: qdrant collection check: %w", rag.ErrIndexUnavailable, err)
	}
	if exists {
		return nil
	}

	err = c.client.CreateCollection(ctx, &qd.CreateCollection{
		CollectionName: c.collectionName,
		VectorsConfig: qd.NewVectorsConfig(&qd.VectorParams{
			Size:     c.vectorSize,
			Distance: qd.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: qdrant create collection: %w", rag.ErrIndexUnavailable, err)
	}
	return nil
}

// toPayload converts the flat chunk payload to qdrant values.
func toPayload(payload map[string]any) map[string]*qd.Value {
	out := make(map[string]*qd.Value, len(payload))
	for key, value := range payload {
		out[key] = toValue(value)
	}
	return out
}

func toValue(value any) *qd.Value {
	switch v := value.(type) {
	case string:
		return qd.NewValueString(v)
	case int64:
		return qd.NewValueInt(v)
	case int:
		return qd.NewValueInt(int64(v))
	case float64:
		return qd.NewValueDouble(v)
	case bool:
		return qd.NewValueBool(v)
	case []string:
		items := make([]*qd.Value, len(v))
		for i, s := range v {
			items[i] = qd.NewValueString(s)
		}
		return &qd.Value{Kind: &qd.Value_ListValue{ListValue: &qd.ListValue{Values: items}}}
	default:
		return qd.NewValueString(fmt.Sprintf("%v", v))
	}
}

// fromPayload converts qdrant values back into the flat chunk payload.
func fromPayload(payload map[string]*qd.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		out[key] = fromValue(value)
	}
	return out
}

func fromValue(value *qd.Value) any {
	switch kind := value.GetKind().(type) {
	case *qd.Value_StringValue:
		return kind.StringValue
	case *qd.Value_IntegerValue:
		return kind.IntegerValue
	case *qd.Value_DoubleValue:
		return kind.DoubleValue
	case *qd.Value_BoolValue:
		return kind.BoolValue
	case *qd.Value_ListValue:
		items := make([]any, 0, len(kind.ListValue.GetValues()))
		for _, item := range kind.ListValue.GetValues() {
			items = append(items, fromValue(item))
		}
		return items
	default:
		return nil
	}
}

// toFilter converts the store filter to a qdrant must-conjunction.
func toFilter(filter *vectorstore.Filter) *qd.Filter {
	if filter.Empty() {
		return nil
	}
	var conditions []*qd.Condition
	for key, value := range filter.Equals {
		conditions = append(conditions, qd.NewMatch(key, value))
	}
	for key, values := range filter.Any {
		conditions = append(conditions, qd.NewMatchKeywords(key, values...))
	}
	return &qd.Filter{Must: conditions}
}
