package reflection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/ember/internal/llm"
	"github.com/agenthands/ember/internal/prompt"
)

type mockClient struct {
	response string
	err      error
	prompts  []string
}

func (m *mockClient) Generate(ctx context.Context, promptText string, opts llm.GenerateOptions) (string, error) {
	m.prompts = append(m.prompts, promptText)
	return m.response, m.err
}

func reflectionPrompts(t *testing.T) *prompt.Loader {
	t.Helper()
	dir := t.TempDir()
	templates := map[string]string{
		"reflection/cbt-conversation":   "Theme {theme}. History: {reflectionContext}. User: {userMessage}",
		"reflection/emotional-initial":  "Open {theme}: {description}{supportingQuotesContext}{memoriesContext}",
		"shadow/individual-integration": "Shadow {theme}. Question: {shadowQuestion}. User: {userMessage}",
		"shadow/initial-session":        "Shadow opener {theme}{supportingQuotesContext}",
		"cbt/focused-reflection":        "CBT {cbtQuestion}. User: {userMessage}",
	}
	for name, text := range templates {
		full := filepath.Join(dir, name+".yml")
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		content := "text: |\n  " + strings.ReplaceAll(text, "\n", "\n  ") + "\n"
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return prompt.NewLoader(dir)
}

func TestTurnEmotional(t *testing.T) {
	mock := &mockClient{response: `{"response": "What felt hardest about that?"}`}
	svc := NewService(mock, reflectionPrompts(t))

	reply, err := svc.Turn(context.Background(), EmotionalTurn, TurnRequest{
		Theme:       "Avoidance",
		UserMessage: "I skipped the meeting again",
		ConversationHistory: []ChatMessage{
			{Sender: "ai", Content: "How are you feeling today?"},
			{Sender: "user", Content: "Anxious"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "What felt hardest about that?", reply)

	require.Len(t, mock.prompts, 1)
	assert.Contains(t, mock.prompts[0], "Theme Avoidance")
	assert.Contains(t, mock.prompts[0], "ai: How are you feeling today?")
	assert.Contains(t, mock.prompts[0], "user: Anxious")
	assert.Contains(t, mock.prompts[0], "User: I skipped the meeting again")
}

func TestTurnEmotionalInitialIncludesQuotesAndMemories(t *testing.T) {
	mock := &mockClient{response: `{"response": "Welcome."}`}
	svc := NewService(mock, reflectionPrompts(t))

	_, err := svc.Turn(context.Background(), EmotionalInitial, TurnRequest{
		Theme:               "Burnout",
		Description:         "Running on empty",
		AllSupportingQuotes: []string{"I can't keep this pace"},
		Memories:            []string{"Works as a nurse"},
	})

	require.NoError(t, err)
	require.Len(t, mock.prompts, 1)
	assert.Contains(t, mock.prompts[0], `1. "I can't keep this pace"`)
	assert.Contains(t, mock.prompts[0], "• Works as a nurse")
}

func TestTurnCBTUsesQuoteFieldAsQuestion(t *testing.T) {
	mock := &mockClient{response: `{"response": "Let's examine that thought."}`}
	svc := NewService(mock, reflectionPrompts(t))

	_, err := svc.Turn(context.Background(), CBTTurn, TurnRequest{
		SupportingQuote: "What evidence supports this belief?",
		UserMessage:     "Everyone thinks I'm failing",
	})

	require.NoError(t, err)
	require.Len(t, mock.prompts, 1)
	assert.Contains(t, mock.prompts[0], "CBT What evidence supports this belief?")
}

func TestTurnMissingResponseField(t *testing.T) {
	mock := &mockClient{response: `{"unexpected": "shape"}`}
	svc := NewService(mock, reflectionPrompts(t))

	_, err := svc.Turn(context.Background(), ShadowTurn, TurnRequest{Theme: "Control"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing response field")
}

func TestTurnProviderError(t *testing.T) {
	mock := &mockClient{err: errors.New("rate limited")}
	svc := NewService(mock, reflectionPrompts(t))

	_, err := svc.Turn(context.Background(), ShadowInitial, TurnRequest{Theme: "Control"})
	assert.ErrorContains(t, err, "rate limited")
}

func TestTurnUnknownKind(t *testing.T) {
	mock := &mockClient{}
	svc := NewService(mock, reflectionPrompts(t))

	_, err := svc.Turn(context.Background(), Kind("nonsense"), TurnRequest{})
	assert.Error(t, err)
	assert.Empty(t, mock.prompts)
}
