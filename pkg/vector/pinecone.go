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

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kestrelsearch/retrieval-core/pkg/retrieval"
)

// PineconeConfig configures the Pinecone-backed index.
type PineconeConfig struct {
	APIKey      string `yaml:"api_key"`
	Host        string `yaml:"host,omitempty"`
	IndexName   string `yaml:"index_name"`
	Environment string `yaml:"environment,omitempty"`
}

// PineconeIndex implements retrieval.VectorIndex against a Pinecone index
// configured for hybrid (dense + sparse) vectors.
type PineconeIndex struct {
	client    *pinecone.Client
	indexName string
}

// NewPineconeIndex creates a client and resolves the target index by name.
func NewPineconeIndex(cfg PineconeConfig) (*PineconeIndex, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pinecone: api key is required")
	}

	params := pinecone.NewClientParams{ApiKey: cfg.APIKey}
	if cfg.Host != "" {
		params.Host = cfg.Host
	}

	client, err := pinecone.NewClient(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pinecone client: %w", err)
	}

	indexName := cfg.IndexName
	if indexName == "" {
		indexName = "retrieval-index"
	}

	return &PineconeIndex{client: client, indexName: indexName}, nil
}

// Name identifies the backend, for logging.
func (p *PineconeIndex) Name() string { return "pinecone" }

func (p *PineconeIndex) connect(ctx context.Context, collection string) (*pinecone.IndexConnection, error) {
	name := collection
	if name == "" {
		name = p.indexName
	}
	idx, err := p.client.DescribeIndex(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index %s: %w", name, err)
	}
	conn, err := p.client.Index(pinecone.NewIndexConnParams{Host: idx.Host})
	if err != nil {
		return nil, fmt.Errorf("failed to create index connection: %w", err)
	}
	return conn, nil
}

// Upsert writes one vector carrying both its dense values and sparse
// indices/values, plus payload as metadata.
func (p *PineconeIndex) Upsert(ctx context.Context, collection, id string, dense retrieval.DenseVector, sparse retrieval.SparseVector, payload retrieval.ChunkPayload) error {
	conn, err := p.connect(ctx, collection)
	if err != nil {
		return err
	}
	defer conn.Close()

	metadataMap := make(map[string]any)
	for k, v := range payloadToMap(payload) {
		metadataMap[k] = v
	}
	metadata, err := structpb.NewStruct(metadataMap)
	if err != nil {
		return fmt.Errorf("failed to convert metadata: %w", err)
	}

	vec := &pinecone.Vector{
		Id:       id,
		Values:   dense,
		Metadata: metadata,
	}
	if !sparse.Empty() {
		vec.SparseValues = &pinecone.SparseValues{
			Indices: sparse.Indices,
			Values:  sparse.Values,
		}
	}

	if _, err := conn.UpsertVectors(ctx, []*pinecone.Vector{vec}); err != nil {
		return fmt.Errorf("failed to upsert vector: %w", err)
	}
	return nil
}

// SearchDense implements retrieval.VectorIndex.
func (p *PineconeIndex) SearchDense(ctx context.Context, collection string, vector retrieval.DenseVector, limit int, filter *retrieval.MetadataFilter, accuracy int) ([]retrieval.IndexHit, error) {
	conn, err := p.connect(ctx, collection)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	req := &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(limit),
		MetadataFilter:  buildPineconeFilter(filter),
		IncludeMetadata: true,
		IncludeValues:   false,
	}
	resp, err := conn.QueryByVectorValues(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("dense query failed: %w", err)
	}
	return pineconeMatchesToHits(resp.Matches), nil
}

// SearchSparse implements retrieval.VectorIndex using a sparse-only query
// vector (an all-zero dense component), matching Pinecone's hybrid query
// convention for a sparse-weighted request.
func (p *PineconeIndex) SearchSparse(ctx context.Context, collection string, vector retrieval.SparseVector, limit int, filter *retrieval.MetadataFilter, accuracy int) ([]retrieval.IndexHit, error) {
	if vector.Empty() {
		return nil, nil
	}
	conn, err := p.connect(ctx, collection)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	req := &pinecone.QueryByVectorValuesRequest{
		SparseValues: &pinecone.SparseValues{
			Indices: vector.Indices,
			Values:  vector.Values,
		},
		TopK:            uint32(limit),
		MetadataFilter:  buildPineconeFilter(filter),
		IncludeMetadata: true,
	}
	resp, err := conn.QueryByVectorValues(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("sparse query failed: %w", err)
	}
	return pineconeMatchesToHits(resp.Matches), nil
}

// Scroll implements retrieval.VectorIndex via Pinecone's metadata-filtered
// listing. Pinecone's list API is ID-prefix based rather than cursor-paged
// the way Qdrant's is, so this fetches by filter through a zero-vector query
// capped at limit and never returns a continuation cursor.
func (p *PineconeIndex) Scroll(ctx context.Context, collection string, filter *retrieval.MetadataFilter, limit int, cursor *retrieval.Cursor) ([]retrieval.IndexHit, *retrieval.Cursor, error) {
	if cursor != nil {
		return nil, nil, nil
	}
	conn, err := p.connect(ctx, collection)
	if err != nil {
		return nil, nil, err
	}
	defer conn.Close()

	req := &pinecone.QueryByVectorValuesRequest{
		TopK:            uint32(limit),
		MetadataFilter:  buildPineconeFilter(filter),
		IncludeMetadata: true,
	}
	resp, err := conn.QueryByVectorValues(ctx, req)
	if err != nil {
		return nil, nil, fmt.Errorf("scroll query failed: %w", err)
	}
	return pineconeMatchesToHits(resp.Matches), nil, nil
}

// Delete removes a vector by ID.
func (p *PineconeIndex) Delete(ctx context.Context, collection, id string) error {
	conn, err := p.connect(ctx, collection)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := conn.DeleteVectorsById(ctx, []string{id}); err != nil {
		return fmt.Errorf("failed to delete vector: %w", err)
	}
	return nil
}

// Close is a no-op: the Pinecone client has no explicit teardown.
func (p *PineconeIndex) Close() error { return nil }

func buildPineconeFilter(filter *retrieval.MetadataFilter) *pinecone.MetadataFilter {
	if filter == nil || len(filter.Equals) == 0 {
		return nil
	}
	m := make(map[string]any, len(filter.Equals))
	for k, v := range filter.Equals {
		m[k] = v
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil
	}
	return s
}

func pineconeMatchesToHits(matches []*pinecone.ScoredVector) []retrieval.IndexHit {
	hits := make([]retrieval.IndexHit, 0, len(matches))
	for _, m := range matches {
		if m.Vector == nil {
			continue
		}
		metadata := map[string]any{}
		if m.Vector.Metadata != nil {
			metadata = m.Vector.Metadata.AsMap()
		}
		hits = append(hits, retrieval.IndexHit{
			ID:      m.Vector.Id,
			Score:   m.Score,
			Payload: mapToPayload(metadata),
		})
	}
	return hits
}

// Ensure PineconeIndex implements retrieval.VectorIndex.
var _ retrieval.VectorIndex = (*PineconeIndex)(nil)
