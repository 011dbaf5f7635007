// Package reflection generates single conversational turns for the
// reflective-chat surfaces (emotional theme, shadow trait, CBT). Each turn is
// one structured LLM call with a simple {response} schema and no retry; any
// failure, including a missing response field, surfaces to the handler.
package reflection

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/ember/internal/journal"
	"github.com/agenthands/ember/internal/llm"
	"github.com/agenthands/ember/internal/prompt"
)

type Kind string

const (
	EmotionalTurn    Kind = "emotional"
	EmotionalInitial Kind = "emotional_initial"
	ShadowTurn       Kind = "shadow"
	ShadowInitial    Kind = "shadow_initial"
	CBTTurn          Kind = "cbt"
)

// ChatMessage is one turn of an active reflection session.
type ChatMessage struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// TurnRequest carries the superset of fields the reflection surfaces send;
// each kind uses its own subset.
type TurnRequest struct {
	Theme               string                  `json:"theme"`
	Description         string                  `json:"description"`
	SupportingQuote     string                  `json:"supportingQuote"`
	UserMessage         string                  `json:"userMessage"`
	ConversationHistory []ChatMessage           `json:"conversationHistory"`
	ThemeHistory        []journal.ParsedMessage `json:"themeConversationHistory"`
	JournalHistory      []journal.ParsedMessage `json:"journalConversationHistory"`
	AllSupportingQuotes []string                `json:"allSupportingQuotes"`
	Memories            []string                `json:"memories"`
}

type simpleResponse struct {
	Response string `json:"response" jsonschema:"required"`
}

type Service struct {
	llm     llm.Client
	prompts *prompt.Loader
	schema  map[string]interface{}
}

func NewService(client llm.Client, prompts *prompt.Loader) *Service {
	return &Service{
		llm:     client,
		prompts: prompts,
		schema:  llm.GenerateSchema[simpleResponse](),
	}
}

// Turn renders the kind-specific template and returns the model's reply.
func (s *Service) Turn(ctx context.Context, kind Kind, req TurnRequest) (string, error) {
	path, vars, err := buildPrompt(kind, req)
	if err != nil {
		return "", err
	}

	promptText, err := s.prompts.Text(path, vars)
	if err != nil {
		return "", err
	}

	raw, err := s.llm.Generate(ctx, promptText, llm.GenerateOptions{
		ResponseSchema: s.schema,
		SchemaName:     "reflection_turn",
	})
	if err != nil {
		return "", err
	}

	parsed, err := llm.DecodeJSON[simpleResponse](raw)
	if err != nil {
		return "", err
	}
	if parsed.Response == "" {
		return "", fmt.Errorf("invalid AI response structure: missing response field")
	}
	return parsed.Response, nil
}

func buildPrompt(kind Kind, req TurnRequest) (string, map[string]interface{}, error) {
	reflectionContext := chatContext(req.ConversationHistory)
	themeContext := messageContext(req.ThemeHistory)
	journalContext := messageContext(req.JournalHistory)
	quotes := quotesContext(req.AllSupportingQuotes, "this theme")

	switch kind {
	case EmotionalTurn:
		return "reflection/cbt-conversation", map[string]interface{}{
			"theme":                   req.Theme,
			"description":             req.Description,
			"supportingQuotesContext": quotes,
			"journalContext":          journalContext,
			"reflectionContext":       reflectionContext,
			"userMessage":             req.UserMessage,
		}, nil

	case EmotionalInitial:
		return "reflection/emotional-initial", map[string]interface{}{
			"theme":                   req.Theme,
			"description":             req.Description,
			"supportingQuotesContext": quotes,
			"memoriesContext":         memoriesContext(req.Memories),
			"journalContext":          journalContext,
		}, nil

	case ShadowTurn:
		return "shadow/individual-integration", map[string]interface{}{
			"theme":             req.Theme,
			"description":       quotesContext(req.AllSupportingQuotes, "this shadow pattern"),
			"shadowQuestion":    req.SupportingQuote,
			"todayContext":      themeContext,
			"journalContext":    journalContext,
			"reflectionContext": reflectionContext,
			"userMessage":       req.UserMessage,
		}, nil

	case ShadowInitial:
		return "shadow/initial-session", map[string]interface{}{
			"theme":                   req.Theme,
			"description":             req.Description,
			"supportingQuotesContext": quotesContext(req.AllSupportingQuotes, "this shadow pattern"),
			"journalContext":          journalContext,
		}, nil

	case CBTTurn:
		// The CBT surface carries its question in the supportingQuote field.
		return "cbt/focused-reflection", map[string]interface{}{
			"cbtQuestion":       req.SupportingQuote,
			"theme":             req.Theme,
			"description":       req.Description,
			"todayContext":      themeContext,
			"journalContext":    journalContext,
			"reflectionContext": reflectionContext,
			"userMessage":       req.UserMessage,
		}, nil
	}
	return "", nil, fmt.Errorf("unknown reflection kind: %s", kind)
}

func chatContext(history []ChatMessage) string {
	var lines []string
	for _, msg := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Sender, msg.Content))
	}
	return strings.Join(lines, "\n\n")
}

func messageContext(history []journal.ParsedMessage) string {
	var lines []string
	for _, msg := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Sender, msg.Text))
	}
	return strings.Join(lines, "\n\n")
}

func quotesContext(quotes []string, label string) string {
	if len(quotes) == 0 {
		return ""
	}
	lines := make([]string, 0, len(quotes))
	for i, q := range quotes {
		lines = append(lines, fmt.Sprintf("%d. %q", i+1, q))
	}
	return fmt.Sprintf("\n\nAll supporting quotes for %s:\n%s", label, strings.Join(lines, "\n"))
}

func memoriesContext(memories []string) string {
	if len(memories) == 0 {
		return ""
	}
	lines := make([]string, 0, len(memories))
	for _, m := range memories {
		lines = append(lines, "• "+m)
	}
	return "\n\nUser's personal memories and traits:\n" + strings.Join(lines, "\n")
}
