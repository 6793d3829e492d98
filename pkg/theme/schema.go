package theme

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
)

// voteSchemaJSON is the rendered JSON Schema for []llmThemeVote, embedded in
// the LLM routing prompt so the model sees the exact response contract
// instead of a hand-written shape description.
var (
	voteSchemaOnce sync.Once
	voteSchemaJSON string
)

func llmThemeVoteSchema() string {
	voteSchemaOnce.Do(func() {
		reflector := &jsonschema.Reflector{
			RequiredFromJSONSchemaTags: true,
			DoNotReference:             true,
		}
		schema := reflector.Reflect([]llmThemeVote{})
		data, err := json.Marshal(schema)
		if err != nil {
			voteSchemaJSON = ""
			return
		}
		voteSchemaJSON = string(data)
	})
	return voteSchemaJSON
}
