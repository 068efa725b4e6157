package vectorstore

import (
	"context"
	"testing"

	"github.com/qdrant/go-client/qdrant"
)

func TestGRPCAddress(t *testing.T) {
	tests := []struct {
		name     string
		urlStr   string
		wantErr  bool
		wantHost string
		wantPort int
	}{
		{
			name:     "valid URL",
			urlStr:   "http://localhost:6333",
			wantHost: "localhost",
			wantPort: 6334, // gRPC port is HTTP port + 1
		},
		{
			name:     "URL with custom port",
			urlStr:   "http://qdrant.internal:9000",
			wantHost: "qdrant.internal",
			wantPort: 9001,
		},
		{
			name:    "invalid URL",
			urlStr:  "://invalid",
			wantErr: true,
		},
		{
			name:     "URL without port",
			urlStr:   "http://localhost",
			wantHost: "localhost",
			wantPort: 6334,
		},
		{
			name:     "URL without hostname",
			urlStr:   "http://:6333",
			wantHost: "localhost",
			wantPort: 6334,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, err := grpcAddress(tt.urlStr)
			if tt.wantErr {
				if err == nil {
					t.Error("grpcAddress() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("grpcAddress() unexpected error: %v", err)
			}
			if host != tt.wantHost {
				t.Errorf("Host = %v, want %v", host, tt.wantHost)
			}
			if port != tt.wantPort {
				t.Errorf("Port = %v, want %v", port, tt.wantPort)
			}
		})
	}
}

func TestNewQdrantStore_InvalidURL(t *testing.T) {
	_, err := NewQdrantStore("://invalid")
	if err == nil {
		t.Error("NewQdrantStore() with invalid URL should return error")
	}
}

func TestQdrantStore_Upsert_EmptyPoints(t *testing.T) {
	store := &QdrantStore{}
	if err := store.Upsert(context.Background(), "notes", []Point{}); err != nil {
		t.Errorf("Upsert() with empty points should return early without error, got: %v", err)
	}
}

func TestQdrantStore_Delete_EmptyIDs(t *testing.T) {
	store := &QdrantStore{}
	if err := store.Delete(context.Background(), "notes", []string{}); err != nil {
		t.Errorf("Delete() with empty IDs should return early without error, got: %v", err)
	}
}

func TestQdrantStore_Search_InvalidK(t *testing.T) {
	store := &QdrantStore{}
	ctx := context.Background()

	if _, err := store.Search(ctx, "notes", []float32{1.0, 2.0}, 0, nil); err == nil {
		t.Error("Search() with k=0 should return error")
	}
	if _, err := store.Search(ctx, "notes", []float32{1.0, 2.0}, -1, nil); err == nil {
		t.Error("Search() with k=-1 should return error")
	}
}

func TestBuildFilter(t *testing.T) {
	if f := buildFilter(nil); f != nil {
		t.Errorf("buildFilter(nil) = %v, want nil", f)
	}
	if f := buildFilter(map[string]any{"ignored": 1.5}); f != nil {
		t.Errorf("buildFilter() with unsupported type = %v, want nil", f)
	}

	f := buildFilter(map[string]any{"user_id": "1", "year": 2024, "done": true})
	if f == nil {
		t.Fatal("buildFilter() returned nil")
	}
	if len(f.Must) != 3 {
		t.Fatalf("buildFilter() produced %d conditions, want 3", len(f.Must))
	}

	// Conditions are ordered by field name.
	wantFields := []string{"done", "user_id", "year"}
	for i, cond := range f.Must {
		field := cond.GetField()
		if field == nil {
			t.Fatalf("condition %d is not a field condition", i)
		}
		if field.Key != wantFields[i] {
			t.Errorf("condition %d key = %q, want %q", i, field.Key, wantFields[i])
		}
	}
	if got := f.Must[1].GetField().GetMatch().GetKeyword(); got != "1" {
		t.Errorf("user_id keyword = %q, want 1", got)
	}
	if got := f.Must[2].GetField().GetMatch().GetInteger(); got != 2024 {
		t.Errorf("year integer = %d, want 2024", got)
	}
}

func TestConvertPayloadToMap(t *testing.T) {
	result := convertPayloadToMap(nil)
	if result == nil {
		t.Error("convertPayloadToMap() should return empty map, not nil")
	}

	payload := qdrant.NewValueMap(map[string]any{
		"note_id": "abc",
		"length":  int64(12),
		"tags":    []any{"a", "b"},
	})
	result = convertPayloadToMap(payload)
	if result["note_id"] != "abc" {
		t.Errorf("note_id = %v, want abc", result["note_id"])
	}
	if result["length"] != int64(12) {
		t.Errorf("length = %v, want 12", result["length"])
	}
	if tags, ok := result["tags"].([]any); !ok || len(tags) != 2 {
		t.Errorf("tags = %v, want two items", result["tags"])
	}
}

func TestUpsertRequest(t *testing.T) {
	req := upsertRequest("notes", []Point{
		{ID: "6f1c0f8e-58a4-4c0b-9d69-0b1f3d1b6a01", Vec: []float32{0.1, 0.2}, Meta: map[string]any{"user_id": "1"}},
		{ID: "6f1c0f8e-58a4-4c0b-9d69-0b1f3d1b6a02", Vec: []float32{0.3, 0.4}},
	})

	if req.GetCollectionName() != "notes" || !req.GetWait() {
		t.Errorf("upsertRequest() collection = %q wait = %v", req.GetCollectionName(), req.GetWait())
	}
	if len(req.GetPoints()) != 2 {
		t.Fatalf("upsertRequest() points = %d, want 2", len(req.GetPoints()))
	}
	if got := req.GetPoints()[0].GetPayload()["user_id"].GetStringValue(); got != "1" {
		t.Errorf("payload user_id = %q, want 1", got)
	}
	if req.GetPoints()[1].GetPayload() != nil {
		t.Errorf("point without meta should carry no payload")
	}
}

func TestDeleteRequest(t *testing.T) {
	req := deleteRequest("notes", []string{"6f1c0f8e-58a4-4c0b-9d69-0b1f3d1b6a01"})

	if !req.GetWait() {
		t.Error("deleteRequest() should wait for the removal")
	}
	ids := req.GetPoints().GetPoints().GetIds()
	if len(ids) != 1 || ids[0].GetUuid() != "6f1c0f8e-58a4-4c0b-9d69-0b1f3d1b6a01" {
		t.Errorf("deleteRequest() ids = %v", ids)
	}
}

func TestQueryRequest(t *testing.T) {
	req := queryRequest("notes", []float32{1, 0}, 5, map[string]any{"user_id": "1"})

	if req.GetLimit() != 5 {
		t.Errorf("queryRequest() limit = %d, want 5", req.GetLimit())
	}
	if len(req.GetFilter().GetMust()) != 1 {
		t.Errorf("queryRequest() filter = %v, want one condition", req.GetFilter())
	}
	if req := queryRequest("notes", []float32{1}, 1, nil); req.GetFilter() != nil {
		t.Errorf("queryRequest() without filters should not filter, got %v", req.GetFilter())
	}
}

func TestCollectionVectorSize(t *testing.T) {
	info := &qdrant.CollectionInfo{
		Config: &qdrant.CollectionConfig{
			Params: &qdrant.CollectionParams{
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{Size: 768, Distance: qdrant.Distance_Cosine}),
			},
		},
	}
	if got := collectionVectorSize(info); got != 768 {
		t.Errorf("collectionVectorSize() = %d, want 768", got)
	}
	if got := collectionVectorSize(&qdrant.CollectionInfo{}); got != 0 {
		t.Errorf("collectionVectorSize() without config = %d, want 0", got)
	}
}
