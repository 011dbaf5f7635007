package llm

import (
	"context"
)

// GenerateOptions carries the structured-output contract for a single call.
// ResponseSchema is a plain JSON-schema object (see GenerateSchema); providers
// with native schema-constrained output use it directly, the rest embed it
// into the prompt and rely on DecodeJSON recovery.
type GenerateOptions struct {
	ResponseSchema map[string]interface{}
	SchemaName     string
	// ThinkingBudget is a token budget for extended reasoning on providers
	// that support it. Ignored elsewhere.
	ThinkingBudget int
}

type Client interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}
