package journal

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/agenthands/ember/internal/async"
	"github.com/agenthands/ember/internal/llm"
	"github.com/agenthands/ember/internal/prompt"
)

const (
	memoryAttempts = 3
	memoryBackoff  = 1 * time.Second
)

// memoryDenylist rejects probable goal/plan statements leaking into general
// memory; goal-type memories are deferred to the person/goal extractor.
var memoryDenylist = []string{
	"planning", "plans", "interested", "interest", "considering",
	"goal", "goals", "wants", "want",
}

type memoryExtractionResponse struct {
	GeneralMemories []extractedMemory `json:"generalMemories" jsonschema:"required"`
}

type extractedMemory struct {
	// ID is set only when the model is updating an existing memory, using an
	// id from the accumulated-memories context.
	ID      string `json:"id,omitempty"`
	Content string `json:"content" jsonschema:"required"`
	Tag     string `json:"tag" jsonschema:"required,enum=skill,enum=physical_trait,enum=name,enum=age,enum=sex,enum=height,enum=weight,enum=body_type,enum=hair_color,enum=eye_color,enum=skin_tone,enum=occupation,enum=education,enum=income,enum=relationship_status,enum=family_details,enum=routine,enum=personal_values,enum=religion,enum=nationality,enum=ethnicity,enum=place_of_birth,enum=home_location"`
	Quote   string `json:"quote" jsonschema:"required"`
}

// PersonGoalExtractor is the declared extension point for people/goal
// suggestion. The pipeline ships with the no-op default.
type PersonGoalExtractor interface {
	Extract(ctx context.Context, byDate DateIndex, existingPeople []Person, existingGoals []Goal) ([]Person, []Goal, error)
}

type NoopPersonGoalExtractor struct{}

func (NoopPersonGoalExtractor) Extract(ctx context.Context, byDate DateIndex, existingPeople []Person, existingGoals []Goal) ([]Person, []Goal, error) {
	return nil, nil, nil
}

// MemoryExtractor accumulates general-memory facts across dates. Dates are
// processed strictly in ascending order because each date's prompt embeds the
// state produced by all earlier dates; this stage must never be parallelized.
type MemoryExtractor struct {
	llm      llm.Client
	prompts  *prompt.Loader
	people   PersonGoalExtractor
	thinking int
	schema   map[string]interface{}
	attempts int
	backoff  time.Duration
}

func NewMemoryExtractor(client llm.Client, prompts *prompt.Loader, people PersonGoalExtractor, thinkingBudget int) *MemoryExtractor {
	if people == nil {
		people = NoopPersonGoalExtractor{}
	}
	return &MemoryExtractor{
		llm:      client,
		prompts:  prompts,
		people:   people,
		thinking: thinkingBudget,
		schema:   llm.GenerateSchema[memoryExtractionResponse](),
		attempts: memoryAttempts,
		backoff:  memoryBackoff,
	}
}

// Extract runs the progressive fold over the (possibly windowed) index. A
// date whose retries exhaust contributes nothing and the fold continues; only
// prompt-template failures abort the whole pass.
func (m *MemoryExtractor) Extract(ctx context.Context, byDate DateIndex) (*MemoryData, error) {
	var memories []GeneralMemory

	for _, dateString := range sortedDates(byDate) {
		userMsgs := userMessages(byDate[dateString])
		if len(userMsgs) == 0 {
			continue
		}

		var texts []string
		for _, msg := range userMsgs {
			texts = append(texts, msg.Text)
		}

		promptText, err := m.prompts.Text("memory/extract-facts", map[string]interface{}{
			"dateString":          dateString,
			"existingMemories":    memoryContext(memories),
			"conversationContext": strings.Join(texts, "\n\n"),
		})
		if err != nil {
			return nil, err
		}

		parsed, err := async.WithRetry(ctx, m.attempts, m.backoff, func() (memoryExtractionResponse, error) {
			raw, err := m.llm.Generate(ctx, promptText, llm.GenerateOptions{
				ResponseSchema: m.schema,
				SchemaName:     "memory_extraction",
				ThinkingBudget: m.thinking,
			})
			if err != nil {
				return memoryExtractionResponse{}, err
			}
			return llm.DecodeJSON[memoryExtractionResponse](raw)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("Memory extraction failed for %s after %d attempts: %v. Continuing to next date.", dateString, memoryAttempts, err)
			continue
		}

		memories = mergeMemories(memories, parsed.GeneralMemories, dateString)
	}

	people, goals, err := m.people.Extract(ctx, byDate, nil, nil)
	if err != nil {
		log.Printf("Person/goal extraction failed: %v", err)
		people, goals = nil, nil
	}

	return &MemoryData{
		People:          orEmptyPeople(people),
		Goals:           orEmptyGoals(goals),
		GeneralMemories: orEmptyMemories(memories),
		Stats: MemoryStats{
			TotalPeople:   len(people),
			TotalGoals:    len(goals),
			TotalMemories: len(memories),
		},
	}, nil
}

// mergeMemories applies the denylist filter and the id-reconciliation rule:
// a known id updates that memory in place and appends a source reference, no
// id mints a new memory with id {date}memory{seq}, an unknown id is dropped.
func mergeMemories(memories []GeneralMemory, extracted []extractedMemory, dateString string) []GeneralMemory {
	seq := 0
	for _, mem := range extracted {
		if deniedContent(mem.Content) {
			log.Printf("Filtered out memory: %q", mem.Content)
			continue
		}

		ref := SourceReference{
			Type:          "conversation",
			Date:          dateString,
			RelevantQuote: mem.Quote,
		}

		if mem.ID != "" {
			if existing := findMemory(memories, mem.ID); existing != nil {
				existing.Content = mem.Content
				existing.Tag = mem.Tag
				existing.LastUpdated = dateString
				existing.ExtractedFrom = append(existing.ExtractedFrom, ref)
			}
			// Unknown ids are dropped, not inserted: a hallucinated id must
			// not mint a memory.
			continue
		}

		memories = append(memories, GeneralMemory{
			ID:            dateString + "memory" + strconv.Itoa(seq),
			Content:       mem.Content,
			Tag:           mem.Tag,
			LastUpdated:   dateString,
			ExtractedFrom: []SourceReference{ref},
		})
		seq++
	}
	return memories
}

func findMemory(memories []GeneralMemory, id string) *GeneralMemory {
	for i := range memories {
		if memories[i].ID == id {
			return &memories[i]
		}
	}
	return nil
}

func deniedContent(content string) bool {
	lower := strings.ToLower(content)
	for _, word := range memoryDenylist {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// memoryContext serializes the accumulator for the prompt so the model reuses
// existing ids when a fact is restated.
func memoryContext(memories []GeneralMemory) string {
	if len(memories) == 0 {
		return "None yet"
	}
	lines := make([]string, 0, len(memories))
	for _, m := range memories {
		lastQuote := ""
		if len(m.ExtractedFrom) > 0 {
			lastQuote = m.ExtractedFrom[len(m.ExtractedFrom)-1].RelevantQuote
		}
		lines = append(lines, fmt.Sprintf("ID: %s | %s (%s) -> Last relevant quote: %s", m.ID, m.Content, m.Tag, lastQuote))
	}
	return strings.Join(lines, "\n")
}

func orEmptyPeople(p []Person) []Person {
	if p == nil {
		return []Person{}
	}
	return p
}

func orEmptyGoals(g []Goal) []Goal {
	if g == nil {
		return []Goal{}
	}
	return g
}

func orEmptyMemories(m []GeneralMemory) []GeneralMemory {
	if m == nil {
		return []GeneralMemory{}
	}
	return m
}
