// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"github.com/kestrelsearch/retrieval-core/pkg/retrieval"
)

// QdrantConfig configures the Qdrant-backed VectorIndex.
type QdrantConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key,omitempty"`
	UseTLS bool   `yaml:"use_tls,omitempty"`

	// DenseVectorName and SparseVectorName name the two named vectors stored
	// per point. Collections must be created with both.
	DenseVectorName  string `yaml:"dense_vector_name,omitempty"`
	SparseVectorName string `yaml:"sparse_vector_name,omitempty"`
}

// SetDefaults applies the documented defaults.
func (c *QdrantConfig) SetDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.DenseVectorName == "" {
		c.DenseVectorName = "dense"
	}
	if c.SparseVectorName == "" {
		c.SparseVectorName = "sparse"
	}
}

// QdrantIndex implements retrieval.VectorIndex against a Qdrant collection
// using named dense and sparse vectors on the same point.
type QdrantIndex struct {
	client *qdrant.Client
	cfg    QdrantConfig
}

// NewQdrantIndex dials a Qdrant instance over gRPC.
func NewQdrantIndex(cfg QdrantConfig) (*QdrantIndex, error) {
	cfg.SetDefaults()

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client for %s:%d: %w\n"+
			"  TIP: Troubleshooting:\n"+
			"     - Ensure Qdrant is running\n"+
			"     - Verify host and port configuration\n"+
			"     - For Docker: start Qdrant container (docker run -p 6333:6333 -p 6334:6334 qdrant/qdrant)",
			cfg.Host, cfg.Port, err)
	}

	return &QdrantIndex{client: client, cfg: cfg}, nil
}

// Name identifies the backend, for logging.
func (q *QdrantIndex) Name() string { return "qdrant" }

// EnsureCollection creates collection with the named dense+sparse vector
// configuration if it doesn't already exist.
func (q *QdrantIndex) EnsureCollection(ctx context.Context, collection string, denseDim int) error {
	exists, err := q.client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			q.cfg.DenseVectorName: {
				Size:     uint64(denseDim),
				Distance: qdrant.Distance_Cosine,
			},
		}),
		SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
			q.cfg.SparseVectorName: {},
		}),
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Upsert writes one point carrying both the dense and (optional) sparse
// named vectors plus its payload.
func (q *QdrantIndex) Upsert(ctx context.Context, collection, id string, dense retrieval.DenseVector, sparse retrieval.SparseVector, payload retrieval.ChunkPayload) error {
	vectors := map[string]*qdrant.Vector{
		q.cfg.DenseVectorName: qdrant.NewVectorDense(dense),
	}
	if !sparse.Empty() {
		vectors[q.cfg.SparseVectorName] = qdrant.NewVectorSparse(sparse.Indices, sparse.Values)
	}

	pointPayload := make(map[string]*qdrant.Value, len(payload.Extra)+16)
	for k, v := range payloadToMap(payload) {
		val, err := qdrant.NewValue(v)
		if err != nil {
			continue
		}
		pointPayload[k] = val
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(id),
		Vectors: qdrant.NewVectorsMap(vectors),
		Payload: pointPayload,
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert point: %w", err)
	}
	return nil
}

// SearchDense implements retrieval.VectorIndex.
func (q *QdrantIndex) SearchDense(ctx context.Context, collection string, vector retrieval.DenseVector, limit int, filter *retrieval.MetadataFilter, accuracy int) ([]retrieval.IndexHit, error) {
	resp, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQueryDense(vector),
		Using:          qdrant.PtrOf(q.cfg.DenseVectorName),
		Filter:         buildQdrantFilter(filter),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		Params: &qdrant.SearchParams{
			HnswEf: qdrant.PtrOf(uint64(accuracy)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dense search failed: %w", err)
	}
	return scoredPointsToHits(resp), nil
}

// SearchSparse implements retrieval.VectorIndex.
func (q *QdrantIndex) SearchSparse(ctx context.Context, collection string, vector retrieval.SparseVector, limit int, filter *retrieval.MetadataFilter, accuracy int) ([]retrieval.IndexHit, error) {
	if vector.Empty() {
		return nil, nil
	}
	resp, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuerySparse(vector.Indices, vector.Values),
		Using:          qdrant.PtrOf(q.cfg.SparseVectorName),
		Filter:         buildQdrantFilter(filter),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("sparse search failed: %w", err)
	}
	return scoredPointsToHits(resp), nil
}

// Scroll implements retrieval.VectorIndex.
func (q *QdrantIndex) Scroll(ctx context.Context, collection string, filter *retrieval.MetadataFilter, limit int, cursor *retrieval.Cursor) ([]retrieval.IndexHit, *retrieval.Cursor, error) {
	req := &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter:         buildQdrantFilter(filter),
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if cursor != nil && cursor.Offset != "" {
		req.Offset = &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: cursor.Offset}}
	}

	resp, err := q.client.Scroll(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("scroll failed: %w", err)
	}

	hits := make([]retrieval.IndexHit, 0, len(resp))
	for _, point := range resp {
		hits = append(hits, retrieval.IndexHit{
			ID:      pointIDString(point.Id),
			Payload: mapToPayload(valuesToMap(point.Payload)),
		})
	}

	var next *retrieval.Cursor
	if len(resp) == limit && limit > 0 {
		next = &retrieval.Cursor{Offset: pointIDString(resp[len(resp)-1].Id)}
	}
	return hits, next, nil
}

// Close releases the underlying gRPC connection.
func (q *QdrantIndex) Close() error { return q.client.Close() }

func buildQdrantFilter(filter *retrieval.MetadataFilter) *qdrant.Filter {
	if filter == nil || len(filter.Equals) == 0 {
		return nil
	}
	conditions := make([]*qdrant.Condition, 0, len(filter.Equals))
	for key, value := range filter.Equals {
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key:   key,
					Match: qdrant.NewMatch(value),
				},
			},
		})
	}
	return &qdrant.Filter{Must: conditions}
}

func scoredPointsToHits(points []*qdrant.ScoredPoint) []retrieval.IndexHit {
	hits := make([]retrieval.IndexHit, 0, len(points))
	for _, point := range points {
		hits = append(hits, retrieval.IndexHit{
			ID:      pointIDString(point.Id),
			Score:   point.Score,
			Payload: mapToPayload(valuesToMap(point.Payload)),
		})
	}
	return hits
}

func pointIDString(id *qdrant.PointId) string {
	if id == nil || id.PointIdOptions == nil {
		return ""
	}
	switch v := id.PointIdOptions.(type) {
	case *qdrant.PointId_Uuid:
		return v.Uuid
	case *qdrant.PointId_Num:
		return fmt.Sprintf("%d", v.Num)
	}
	return ""
}

func valuesToMap(payload map[string]*qdrant.Value) map[string]any {
	m := make(map[string]any, len(payload))
	for key, value := range payload {
		m[key] = qdrantValueToAny(value)
	}
	return m
}

func qdrantValueToAny(value *qdrant.Value) any {
	if value == nil {
		return nil
	}
	switch v := value.Kind.(type) {
	case *qdrant.Value_StringValue:
		return v.StringValue
	case *qdrant.Value_IntegerValue:
		return v.IntegerValue
	case *qdrant.Value_DoubleValue:
		return v.DoubleValue
	case *qdrant.Value_BoolValue:
		return v.BoolValue
	case *qdrant.Value_ListValue:
		if v.ListValue == nil {
			return nil
		}
		list := make([]any, len(v.ListValue.Values))
		for i, item := range v.ListValue.Values {
			list[i] = qdrantValueToAny(item)
		}
		return list
	default:
		return nil
	}
}

// Ensure QdrantIndex implements retrieval.VectorIndex.
var _ retrieval.VectorIndex = (*QdrantIndex)(nil)
