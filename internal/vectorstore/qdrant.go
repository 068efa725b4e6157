package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"github.com/nwoyto/PersonalAiHelper-sub000/internal/contextutil"
)

// QdrantStore implements VectorStore using Qdrant.
type QdrantStore struct {
	client *qdrant.Client
}

// NewQdrantStore creates a new Qdrant vector store client.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) will be derived from the HTTP port.
func NewQdrantStore(urlStr string) (*QdrantStore, error) {
	host, port, err := grpcAddress(urlStr)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantStore{
		client: client,
	}, nil
}

// grpcAddress derives the gRPC host and port from the REST URL.
func grpcAddress(urlStr string) (string, int, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err != nil {
			return "", 0, fmt.Errorf("invalid Qdrant port %q: %w", parsedURL.Port(), err)
		}
		// gRPC port is typically HTTP port + 1
		port = httpPort + 1
	}
	return host, port, nil
}

// Close releases the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Health checks that the Qdrant server is reachable.
func (s *QdrantStore) Health(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	return nil
}

// Upsert writes the points and waits until they are searchable.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	if _, err := s.client.Upsert(ctx, upsertRequest(collection, points)); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "qdrant upsert failed",
			"collection", collection, "points", len(points), "error", err)
		return fmt.Errorf("upsert %d points into %s: %w", len(points), collection, err)
	}
	return nil
}

// Search returns the k points nearest to query. Every filter entry must match.
func (s *QdrantStore) Search(ctx context.Context, collection string, query []float32, k int, filters map[string]any) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0, got %d", k)
	}

	scored, err := s.client.Query(ctx, queryRequest(collection, query, k, filters))
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "qdrant query failed",
			"collection", collection, "k", k, "error", err)
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	results := make([]SearchResult, 0, len(scored))
	for _, p := range scored {
		results = append(results, SearchResult{
			PointID: p.GetId().GetUuid(),
			Score:   p.GetScore(),
			Meta:    convertPayloadToMap(p.GetPayload()),
		})
	}
	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "qdrant query done",
		"collection", collection, "k", k, "hits", len(results))
	return results, nil
}

// Delete removes the points and waits for the removal to apply. Unknown IDs are ignored by Qdrant.
func (s *QdrantStore) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if _, err := s.client.Delete(ctx, deleteRequest(collection, ids)); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "qdrant delete failed",
			"collection", collection, "points", len(ids), "error", err)
		return fmt.Errorf("delete %d points from %s: %w", len(ids), collection, err)
	}
	return nil
}

// CollectionExists reports whether the collection is present.
func (s *QdrantStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return false, fmt.Errorf("check collection %s: %w", collection, err)
	}
	return exists, nil
}

// EnsureCollection creates the note collection with cosine distance, or checks
// that an existing one was created for embeddings of the same size.
func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("create collection %s: %w", collection, err)
		}
		logger.InfoContext(ctx, "created qdrant collection", "collection", collection, "vector_size", vectorSize)
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return fmt.Errorf("read collection %s: %w", collection, err)
	}
	actual := collectionVectorSize(info)
	if actual == 0 {
		return fmt.Errorf("collection %s has no single dense vector config", collection)
	}
	if actual != vectorSize {
		return fmt.Errorf("collection %s holds %d-dimensional vectors, embeddings have %d", collection, actual, vectorSize)
	}
	return nil
}

// GetCollectionInfo returns the collection's vector size, point count and status.
func (s *QdrantStore) GetCollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error) {
	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("read collection %s: %w", collection, err)
	}

	out := &CollectionInfo{
		VectorSize:  collectionVectorSize(info),
		PointsCount: int(info.GetPointsCount()),
		Status:      "unknown",
	}
	if info.GetStatus() != 0 {
		out.Status = info.GetStatus().String()
	}
	return out, nil
}

// CollectionInfo summarizes a Qdrant collection.
type CollectionInfo struct {
	VectorSize  int
	PointsCount int
	Status      string
}

// collectionVectorSize is 0 when the collection uses named or sparse vectors.
func collectionVectorSize(info *qdrant.CollectionInfo) int {
	return int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())
}

func upsertRequest(collection string, points []Point) *qdrant.UpsertPoints {
	wait := true
	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		ps := &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vec...),
		}
		if len(p.Meta) > 0 {
			ps.Payload = qdrant.NewValueMap(p.Meta)
		}
		structs = append(structs, ps)
	}
	return &qdrant.UpsertPoints{CollectionName: collection, Wait: &wait, Points: structs}
}

func queryRequest(collection string, query []float32, k int, filters map[string]any) *qdrant.QueryPoints {
	limit := uint64(k)
	return &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
		Filter:         buildFilter(filters),
		WithPayload:    qdrant.NewWithPayload(true),
	}
}

func deleteRequest(collection string, ids []string) *qdrant.DeletePoints {
	wait := true
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewID(id))
	}
	return &qdrant.DeletePoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	}
}

// buildFilter turns exact-match filters into a Qdrant filter. Strings match as
// keywords, integers and booleans by value. Other types are ignored.
func buildFilter(filters map[string]any) *qdrant.Filter {
	if len(filters) == 0 {
		return nil
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	must := make([]*qdrant.Condition, 0, len(filters))
	for _, field := range keys {
		switch v := filters[field].(type) {
		case string:
			must = append(must, qdrant.NewMatchKeyword(field, v))
		case int:
			must = append(must, qdrant.NewMatchInt(field, int64(v)))
		case int64:
			must = append(must, qdrant.NewMatchInt(field, v))
		case bool:
			must = append(must, qdrant.NewMatchBool(field, v))
		}
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

// convertPayloadToMap flattens a point payload into plain Go values. It never returns nil.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if v != nil {
			out[k] = convertValue(v)
		}
	}
	return out
}

func convertValue(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(kind.StructValue.GetFields())
	case *qdrant.Value_ListValue:
		items := kind.ListValue.GetValues()
		list := make([]any, 0, len(items))
		for _, item := range items {
			list = append(list, convertValue(item))
		}
		return list
	}
	return nil
}
