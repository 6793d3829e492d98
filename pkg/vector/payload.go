package vector

import (
	"encoding/json"

	"github.com/kestrelsearch/retrieval-core/pkg/retrieval"
)

// knownPayloadKeys lists every field retrieval.ChunkPayload recognizes by its
// JSON tag. Anything else round-trips through Payload.Extra.
var knownPayloadKeys = map[string]bool{
	"doc_id": true, "chunk_index": true, "text": true,
	"title": true, "url": true, "canonical_url": true, "domain": true,
	"section": true, "platform": true, "role": true, "page_type": true,
	"groups_path": true, "source": true, "content_length": true, "chunk_id": true,
	"auto_merged": true, "merged_chunk_indices": true, "merged_chunk_count": true,
	"chunk_span": true, "merged_chunk_ids": true,
	"original_length": true, "optimized_length": true, "list_mode": true,
	"theme_label": true,
}

// payloadToMap flattens a ChunkPayload (including Extra) into a plain map
// suitable for a vector store's native metadata/payload representation.
func payloadToMap(p retrieval.ChunkPayload) map[string]any {
	b, err := json.Marshal(p)
	if err != nil {
		return map[string]any{"text": p.Text, "doc_id": p.DocID}
	}
	m := map[string]any{}
	_ = json.Unmarshal(b, &m)
	for k, v := range p.Extra {
		if !knownPayloadKeys[k] {
			m[k] = v
		}
	}
	return m
}

// mapToPayload reconstructs a ChunkPayload from a vector store's native
// metadata map, routing unrecognized keys into Extra.
func mapToPayload(m map[string]any) retrieval.ChunkPayload {
	var p retrieval.ChunkPayload
	if b, err := json.Marshal(m); err == nil {
		_ = json.Unmarshal(b, &p)
	}
	var extra map[string]any
	for k, v := range m {
		if !knownPayloadKeys[k] {
			if extra == nil {
				extra = make(map[string]any)
			}
			extra[k] = v
		}
	}
	p.Extra = extra
	return p
}
