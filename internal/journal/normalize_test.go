package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-01-02T10:00:00Z
const day2Morning = 1704189600.0

func exportNode(id, role, text string, createTime float64) ConversationNode {
	return ConversationNode{
		ID: id,
		Message: &ExportMessage{
			ID:         id,
			Author:     &Author{Role: role},
			CreateTime: createTime,
			Content:    &MessageContent{ContentType: "text", Parts: []string{text}},
		},
	}
}

func TestParseConversationsFlattensMapping(t *testing.T) {
	raw := []ConversationData{
		{
			Title:          "Morning chat",
			ConversationID: "conv-1",
			CreateTime:     day2Morning,
			Mapping: map[string]ConversationNode{
				"n2": exportNode("n2", "assistant", "Hi there", day2Morning+60),
				"n1": exportNode("n1", "user", "Hello", day2Morning),
				"root": {
					ID: "root",
				},
			},
		},
	}

	result := ParseConversations(raw)

	require.Len(t, result.Conversations, 1)
	conv := result.Conversations[0]
	assert.Equal(t, "conv-1", conv.ID)
	assert.Equal(t, "Morning chat", conv.Title)

	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "Hello", conv.Messages[0].Text)
	assert.Equal(t, "user", conv.Messages[0].Sender)
	assert.Equal(t, "Hi there", conv.Messages[1].Text)
	assert.Equal(t, day2Morning, conv.Metadata.CreatedAt)
	assert.Equal(t, day2Morning+60, conv.Metadata.UpdatedAt)

	require.Contains(t, result.ByDate, "2024-01-02")
	assert.Len(t, result.ByDate["2024-01-02"], 2)
}

func TestParseConversationsSkipRules(t *testing.T) {
	raw := []ConversationData{
		{
			ConversationID: "conv-1",
			Mapping: map[string]ConversationNode{
				"no-message": {ID: "no-message"},
				"no-content": {ID: "no-content", Message: &ExportMessage{ID: "no-content"}},
				"empty-text": exportNode("empty-text", "user", "   ", day2Morning),
				"no-timestamp": {
					ID: "no-timestamp",
					Message: &ExportMessage{
						ID:      "no-timestamp",
						Author:  &Author{Role: "user"},
						Content: &MessageContent{Parts: []string{"orphaned"}},
					},
				},
			},
		},
	}

	result := ParseConversations(raw)

	require.Len(t, result.Conversations, 1)
	assert.Empty(t, result.Conversations[0].Messages)
	assert.Empty(t, result.ByDate)
	// No surviving messages means no metadata timestamps.
	assert.Zero(t, result.Conversations[0].Metadata.CreatedAt)
}

func TestParseConversationsFallbacks(t *testing.T) {
	raw := []ConversationData{
		{
			// No conversation_id; falls back to id.
			ID:         "legacy-id",
			CreateTime: day2Morning,
			Mapping: map[string]ConversationNode{
				"n1": {
					ID: "n1",
					Message: &ExportMessage{
						ID: "n1",
						// No author and no message timestamp.
						Content: &MessageContent{Parts: []string{"hello"}},
					},
				},
			},
		},
	}

	result := ParseConversations(raw)

	require.Len(t, result.Conversations, 1)
	require.Len(t, result.Conversations[0].Messages, 1)
	msg := result.Conversations[0].Messages[0]
	assert.Equal(t, "legacy-id", msg.ConversationID)
	assert.Equal(t, "unknown", msg.Sender)
	assert.Equal(t, day2Morning, msg.Timestamp)
	assert.Equal(t, "2024-01-02", msg.DateString)
}

func TestParseConversationsOrdersConversationsByEarliestMessage(t *testing.T) {
	raw := []ConversationData{
		{
			ConversationID: "later",
			Mapping: map[string]ConversationNode{
				"n1": exportNode("n1", "user", "second", day2Morning+3600),
			},
		},
		{
			ConversationID: "earlier",
			Mapping: map[string]ConversationNode{
				"n1": exportNode("n1", "user", "first", day2Morning),
			},
		},
	}

	result := ParseConversations(raw)

	require.Len(t, result.Conversations, 2)
	assert.Equal(t, "earlier", result.Conversations[0].ID)
	assert.Equal(t, "later", result.Conversations[1].ID)
}

func TestFilterLastDays(t *testing.T) {
	byDate := DateIndex{
		"2024-01-01": {{Text: "a"}},
		"2024-01-02": {{Text: "b"}},
		"2024-01-03": {{Text: "c"}},
	}

	filtered := FilterLastDays(byDate, 2)

	assert.Len(t, filtered, 2)
	assert.Contains(t, filtered, "2024-01-02")
	assert.Contains(t, filtered, "2024-01-03")
	assert.NotContains(t, filtered, "2024-01-01")
	// Input index untouched.
	assert.Len(t, byDate, 3)
}

func TestFilterLastDaysNonPositiveLimit(t *testing.T) {
	byDate := DateIndex{"2024-01-01": {{Text: "a"}}}

	assert.Len(t, FilterLastDays(byDate, 0), 1)
	assert.Len(t, FilterLastDays(byDate, -1), 1)
	assert.Len(t, FilterLastDays(byDate, 5), 1)
}
