package journal

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/ember/internal/async"
	"github.com/agenthands/ember/internal/llm"
	"github.com/agenthands/ember/internal/prompt"
)

const (
	entryAttempts = 3
	entryBackoff  = 2 * time.Second

	maxCBTPrompts = 3
)

// journalEntryResponse is the shape the model is asked to produce for one
// day's entry. The rich authoring guidance lives in the prompt template; the
// schema pins the structure.
type journalEntryResponse struct {
	ReflectiveNarrative string                `json:"reflectiveNarrative" jsonschema:"required"`
	EmotionalSummary    emotionalSummaryResp  `json:"emotionalSummary" jsonschema:"required"`
	Topics              []string              `json:"topics" jsonschema:"required"`
	CBTPrompts          []CBTPrompt           `json:"cbtPrompts" jsonschema:"required"`
	KeyTakeaways        []string              `json:"keyTakeaways,omitempty"`
	ShadowSummary       string                `json:"shadowSummary,omitempty"`
	ShadowTraits        []shadowTraitResponse `json:"shadowTraits,omitempty"`
	KeyDecisions        []string              `json:"keyDecisions,omitempty"`
	KeyFailures         []string              `json:"keyFailures,omitempty"`
	NextSteps           []string              `json:"nextSteps" jsonschema:"required"`
}

type emotionalSummaryResp struct {
	Colors      []string         `json:"colors" jsonschema:"required"`
	Label       string           `json:"label" jsonschema:"required"`
	Themes      []ThemeWithQuote `json:"themes" jsonschema:"required"`
	Description string           `json:"description,omitempty"`
}

type shadowTraitResponse struct {
	Name             string `json:"name" jsonschema:"required"`
	Description      string `json:"description" jsonschema:"required"`
	ReflectionPrompt string `json:"reflectionPrompt" jsonschema:"required"`
	SupportingQuote  string `json:"supportingQuote" jsonschema:"required"`
}

// EntryGenerator turns one day's messages into a structured journal entry and
// verifies every AI-asserted quote against the user's actual words.
type EntryGenerator struct {
	llm      llm.Client
	prompts  *prompt.Loader
	schema   map[string]interface{}
	attempts int
	backoff  time.Duration
}

func NewEntryGenerator(client llm.Client, prompts *prompt.Loader) *EntryGenerator {
	return &EntryGenerator{
		llm:      client,
		prompts:  prompts,
		schema:   llm.GenerateSchema[journalEntryResponse](),
		attempts: entryAttempts,
		backoff:  entryBackoff,
	}
}

// Generate builds the combined per-date prompt, calls the model with retries
// (3 attempts, 2s/4s backoff), and post-validates the result. A JSON parse
// failure counts as an attempt failure. On exhaustion the last error is
// returned; the orchestrator decides whether that aborts anything.
func (g *EntryGenerator) Generate(ctx context.Context, messages []ParsedMessage, dateString string) (*JournalEntry, error) {
	if len(messages) == 0 {
		return nil, nil
	}

	userMsgs := userMessages(messages)

	var lines []string
	for _, msg := range messages {
		if msg.Sender == "user" {
			lines = append(lines, "User Message: "+msg.Text)
		} else {
			lines = append(lines, "Assistant Response (DO NOT USE THIS AS A QUOTE): "+msg.Text)
		}
	}

	promptText, err := g.prompts.Text("journal/generate-entry", map[string]interface{}{
		"dateString":          dateString,
		"conversationContext": strings.Join(lines, "\n\n"),
	})
	if err != nil {
		return nil, err
	}

	parsed, err := async.WithRetry(ctx, g.attempts, g.backoff, func() (journalEntryResponse, error) {
		raw, err := g.llm.Generate(ctx, promptText, llm.GenerateOptions{
			ResponseSchema: g.schema,
			SchemaName:     "journal_entry",
		})
		if err != nil {
			return journalEntryResponse{}, err
		}
		return llm.DecodeJSON[journalEntryResponse](raw)
	})
	if err != nil {
		return nil, fmt.Errorf("journal entry generation failed for %s: %w", dateString, err)
	}

	if len(parsed.CBTPrompts) > maxCBTPrompts {
		parsed.CBTPrompts = parsed.CBTPrompts[:maxCBTPrompts]
	}

	// Drop themes whose quote is not verbatim from a same-day user message.
	// Precision over completeness: no error, no placeholder.
	themes := make([]ThemeWithQuote, 0, len(parsed.EmotionalSummary.Themes))
	for _, theme := range parsed.EmotionalSummary.Themes {
		if quoteInMessages(theme.SupportingQuote, userMsgs) {
			themes = append(themes, theme)
		}
	}

	traits := make([]ShadowTrait, 0, len(parsed.ShadowTraits))
	for _, trait := range parsed.ShadowTraits {
		match, tier := matchTraitQuote(trait.SupportingQuote, userMsgs)
		if match == nil {
			log.Printf("Dropping shadow trait %q for %s: quote not attributable to a user message", trait.Name, dateString)
			continue
		}
		log.Printf("Shadow trait %q matched via tier %d", trait.Name, tier)
		traits = append(traits, ShadowTrait{
			Name:             trait.Name,
			Description:      trait.Description,
			ReflectionPrompt: trait.ReflectionPrompt,
			SupportingQuote: &SupportingQuote{
				Text:           trait.SupportingQuote,
				ConversationID: match.ConversationID,
				MessageID:      match.MessageID,
				Date:           dateString,
			},
		})
	}

	return &JournalEntry{
		ID:                  uuid.New().String(),
		Date:                dateString,
		Timestamp:           time.Now().UnixMilli(),
		ReflectiveNarrative: parsed.ReflectiveNarrative,
		EmotionalSummary: EmotionalSummary{
			Colors:      parsed.EmotionalSummary.Colors,
			Label:       parsed.EmotionalSummary.Label,
			Themes:      themes,
			Description: parsed.EmotionalSummary.Description,
		},
		Topics:                parsed.Topics,
		CBTPrompts:            parsed.CBTPrompts,
		KeyTakeaways:          parsed.KeyTakeaways,
		ShadowSummary:         parsed.ShadowSummary,
		ShadowTraits:          traits,
		EmotionalThemes:       []EmotionalTheme{},
		KeyDecisions:          parsed.KeyDecisions,
		KeyFailures:           parsed.KeyFailures,
		NextSteps:             parsed.NextSteps,
		SourceConversationIDs: conversationIDSet(messages),
	}, nil
}

func quoteInMessages(quote string, msgs []ParsedMessage) bool {
	for _, msg := range msgs {
		if strings.Contains(msg.Text, quote) {
			return true
		}
	}
	return false
}

// matchTraitQuote attributes a claimed quote to a user message via three
// tiers, in order: exact substring containment; the quote contains the
// message's first 50 characters; case-insensitive containment of the quote's
// first 30 characters. Returns the matched message and the tier that fired.
func matchTraitQuote(quote string, msgs []ParsedMessage) (*ParsedMessage, int) {
	if quote == "" {
		return nil, 0
	}
	for i := range msgs {
		if strings.Contains(msgs[i].Text, quote) {
			return &msgs[i], 1
		}
	}
	for i := range msgs {
		if strings.Contains(quote, firstChars(msgs[i].Text, 50)) {
			return &msgs[i], 2
		}
	}
	loQuote := strings.ToLower(firstChars(quote, 30))
	for i := range msgs {
		if strings.Contains(strings.ToLower(msgs[i].Text), loQuote) {
			return &msgs[i], 3
		}
	}
	return nil, 0
}

func firstChars(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func conversationIDSet(messages []ParsedMessage) []string {
	seen := make(map[string]struct{})
	for _, msg := range messages {
		seen[msg.ConversationID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
