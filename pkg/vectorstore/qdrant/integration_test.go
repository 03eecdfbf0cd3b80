//go:build integration

package qdrant

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pressrag-ai/pressrag/pkg/rag"
	"github.com/pressrag-ai/pressrag/pkg/vectorstore"
)

func startQdrant(ctx context.Context, t *testing.T) string {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "qdrant/qdrant:latest",
		ExposedPorts: []string{"6333/tcp", "6334/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("6333/tcp"),
			wait.ForLog("Qdrant gRPC listening"),
		).WithDeadline(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start qdrant container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	// The Go client speaks gRPC on 6334, not HTTP on 6333.
	grpcPort, err := container.MappedPort(ctx, "6334")
	if err != nil {
		t.Fatal(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	return fmt.Sprintf("http://%s:%s", host, grpcPort.Port())
}

func testRecord(id, docID string, vector []float32, topics []string) vectorstore.Record {
	return vectorstore.Record{
		ID:     id,
		Vector: vector,
		Chunk: rag.Chunk{
			ID:    id,
			Text:  "text of " + id,
			DocID: docID,
			Metadata: rag.DocumentMetadata{
				PublicationID: docID,
				Source:        "Deutsche Telekom",
				Topics:        topics,
				ContentHash:   "hash-" + docID,
			},
		},
	}
}

func TestQdrantStoreLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	url := startQdrant(ctx, t)

	client, err := New(&Config{
		URL:            url,
		CollectionName: "lifecycle_chunks",
		VectorSize:     3,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer client.Close()

	if err := client.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}

	records := []vectorstore.Record{
		testRecord("a", "doc1", []float32{1, 0, 0}, []string{"5G"}),
		testRecord("b", "doc1", []float32{0.9, 0.1, 0}, []string{"5G"}),
		testRecord("c", "doc2", []float32{0, 1, 0}, []string{"Security"}),
	}
	if err := client.Upsert(ctx, records); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	count, err := client.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	got, err := client.Query(ctx, []float32{1, 0, 0}, 2, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 || got[0].Chunk.ID != "a" || got[1].Chunk.ID != "b" {
		t.Errorf("unexpected results: %+v", got)
	}
	if got[0].Chunk.Metadata.PublicationID != "doc1" {
		t.Errorf("metadata lost in round trip: %+v", got[0].Chunk.Metadata)
	}

	filtered, err := client.Query(ctx, []float32{1, 0, 0}, 10, &vectorstore.Filter{
		Any: map[string][]string{rag.FieldTopics: {"Security"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 || filtered[0].Chunk.ID != "c" {
		t.Errorf("filter results: %+v", filtered)
	}

	byDoc, err := client.Query(ctx, []float32{1, 0, 0}, 10, &vectorstore.Filter{
		Equals: map[string]string{rag.FieldPublicationID: "doc2"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(byDoc) != 1 || byDoc[0].Chunk.ID != "c" {
		t.Errorf("equals filter results: %+v", byDoc)
	}

	if err := client.DeleteByDoc(ctx, "doc1"); err != nil {
		t.Fatalf("DeleteByDoc: %v", err)
	}
	count, _ = client.Count(ctx)
	if count != 1 {
		t.Errorf("count after DeleteByDoc = %d, want 1", count)
	}

	if err := client.Delete(ctx, []string{"c"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	count, _ = client.Count(ctx)
	if count != 0 {
		t.Errorf("count after Delete = %d, want 0", count)
	}
}

func TestQdrantUpsertReplaces(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	url := startQdrant(ctx, t)

	client, err := New(&Config{
		URL:            url,
		CollectionName: "replace_chunks",
		VectorSize:     3,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if err := client.Upsert(ctx, []vectorstore.Record{
		testRecord("a", "doc1", []float32{1, 0, 0}, nil),
	}); err != nil {
		t.Fatal(err)
	}

	updated := testRecord("a", "doc1", []float32{0, 0, 1}, nil)
	updated.Chunk.Text = "updated"
	if err := client.Upsert(ctx, []vectorstore.Record{updated}); err != nil {
		t.Fatal(err)
	}

	count, _ := client.Count(ctx)
	if count != 1 {
		t.Fatalf("count = %d after replacing upsert, want 1", count)
	}
	got, err := client.Query(ctx, []float32{0, 0, 1}, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Chunk.Text != "updated" {
		t.Errorf("Text = %q, want updated", got[0].Chunk.Text)
	}
}
