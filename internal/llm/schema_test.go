package llm

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleResponse struct {
	Answer  string   `json:"answer" jsonschema:"required"`
	Tags    []string `json:"tags" jsonschema:"required"`
	Comment string   `json:"comment,omitempty"`
	Mood    string   `json:"mood" jsonschema:"required,enum=calm,enum=tense"`
}

func TestGenerateSchemaRequiredFromTags(t *testing.T) {
	schema := GenerateSchema[sampleResponse]()

	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "$schema")
	assert.NotContains(t, schema, "$id")

	required, ok := schema["required"].([]interface{})
	require.True(t, ok)
	assert.Contains(t, required, "answer")
	assert.Contains(t, required, "tags")
	assert.Contains(t, required, "mood")
	assert.NotContains(t, required, "comment")

	props, ok := schema["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, props, "answer")
	assert.Contains(t, props, "comment")

	mood, ok := props["mood"].(map[string]interface{})
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"calm", "tense"}, stringSlice(mood["enum"]))
}

func TestToGenaiSchema(t *testing.T) {
	schema := GenerateSchema[sampleResponse]()
	converted := toGenaiSchema(schema)

	require.NotNil(t, converted)
	assert.Equal(t, genai.TypeObject, converted.Type)
	assert.Contains(t, converted.Required, "answer")

	require.Contains(t, converted.Properties, "tags")
	tags := converted.Properties["tags"]
	assert.Equal(t, genai.TypeArray, tags.Type)
	require.NotNil(t, tags.Items)
	assert.Equal(t, genai.TypeString, tags.Items.Type)

	require.Contains(t, converted.Properties, "mood")
	assert.ElementsMatch(t, []string{"calm", "tense"}, converted.Properties["mood"].Enum)
}

func TestToGenaiSchemaNil(t *testing.T) {
	assert.Nil(t, toGenaiSchema(nil))
}
