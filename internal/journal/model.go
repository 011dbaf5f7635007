package journal

import "time"

// --- Raw export shapes (OpenAI conversation export) ---

type Author struct {
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
}

type MessageContent struct {
	ContentType string   `json:"content_type"`
	Parts       []string `json:"parts"`
}

type ExportMessage struct {
	ID         string          `json:"id"`
	Author     *Author         `json:"author,omitempty"`
	CreateTime float64         `json:"create_time,omitempty"`
	UpdateTime float64         `json:"update_time,omitempty"`
	Content    *MessageContent `json:"content,omitempty"`
	Status     string          `json:"status,omitempty"`
}

type ConversationNode struct {
	ID       string         `json:"id"`
	Message  *ExportMessage `json:"message,omitempty"`
	Parent   string         `json:"parent,omitempty"`
	Children []string       `json:"children,omitempty"`
}

type ConversationData struct {
	Title          string                      `json:"title,omitempty"`
	CreateTime     float64                     `json:"create_time,omitempty"`
	UpdateTime     float64                     `json:"update_time,omitempty"`
	Mapping        map[string]ConversationNode `json:"mapping,omitempty"`
	ConversationID string                      `json:"conversation_id,omitempty"`
	ID             string                      `json:"id,omitempty"`
}

// --- Normalized shapes ---

// ParsedMessage is one exported chat turn flattened into a timestamp-sortable
// record. Text is never empty and Timestamp is always set; nodes that cannot
// satisfy that are dropped during normalization.
type ParsedMessage struct {
	Date           time.Time `json:"date"`
	DateString     string    `json:"dateString"`
	Sender         string    `json:"sender"`
	Text           string    `json:"text"`
	ConversationID string    `json:"conversationId"`
	MessageID      string    `json:"messageId"`
	Timestamp      float64   `json:"timestamp"`
}

// DateIndex maps a YYYY-MM-DD date string to that day's messages, ascending
// by timestamp.
type DateIndex map[string][]ParsedMessage

type ConversationMetadata struct {
	CreatedAt float64 `json:"createdAt"`
	UpdatedAt float64 `json:"updatedAt"`
}

type Conversation struct {
	ID       string               `json:"id"`
	Title    string               `json:"title,omitempty"`
	Messages []ParsedMessage      `json:"messages"`
	Metadata ConversationMetadata `json:"metadata"`
}

type Conversations struct {
	Conversations []Conversation `json:"conversations"`
}

// ParseResult is the normalizer's output: per-conversation message lists plus
// the per-date index over the same messages.
type ParseResult struct {
	Conversations []Conversation
	ByDate        DateIndex
}

// --- Journal entry shapes ---

type SupportingQuote struct {
	Text           string `json:"text"`
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	Date           string `json:"date"`
}

type ShadowTrait struct {
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	ReflectionPrompt string           `json:"reflectionPrompt"`
	SupportingQuote  *SupportingQuote `json:"supportingQuote,omitempty"`
}

type CBTPrompt struct {
	Category string `json:"category"`
	Question string `json:"question"`
	Purpose  string `json:"purpose"`
}

type ThemeWithQuote struct {
	Theme           string `json:"theme"`
	SupportingQuote string `json:"supportingQuote"`
	Description     string `json:"description"`
}

type EmotionalSummary struct {
	Colors      []string         `json:"colors"`
	Label       string           `json:"label"`
	Themes      []ThemeWithQuote `json:"themes"`
	Description string           `json:"description,omitempty"`
}

// EmotionalTheme is a verified per-entry theme slot populated downstream by
// cross-entry clustering; entries leave the pipeline with this empty.
type EmotionalTheme struct {
	Theme           string           `json:"theme"`
	SupportingQuote *SupportingQuote `json:"supportingQuote,omitempty"`
}

type JournalEntry struct {
	ID                    string           `json:"id"`
	Date                  string           `json:"date"`
	Timestamp             int64            `json:"timestamp"`
	ReflectiveNarrative   string           `json:"reflectiveNarrative"`
	EmotionalSummary      EmotionalSummary `json:"emotionalSummary"`
	Topics                []string         `json:"topics"`
	CBTPrompts            []CBTPrompt      `json:"cbtPrompts"`
	KeyTakeaways          []string         `json:"keyTakeaways,omitempty"`
	ShadowSummary         string           `json:"shadowSummary"`
	ShadowTraits          []ShadowTrait    `json:"shadowTraits"`
	EmotionalThemes       []EmotionalTheme `json:"emotional_themes"`
	KeyDecisions          []string         `json:"keyDecisions,omitempty"`
	KeyFailures           []string         `json:"keyFailures,omitempty"`
	NextSteps             []string         `json:"nextSteps"`
	SourceConversationIDs []string         `json:"sourceConversationIds"`
}

type DateRange struct {
	Earliest string `json:"earliest"`
	Latest   string `json:"latest"`
}

type JournalStats struct {
	TotalEntries int        `json:"totalEntries"`
	DateRange    *DateRange `json:"dateRange"`
}

type JournalEntries struct {
	Entries []JournalEntry `json:"entries"`
	Stats   JournalStats   `json:"stats"`
}

// --- Memory shapes ---

// SourceReference is an append-only evidence trail entry; references are
// never removed from a memory.
type SourceReference struct {
	Type          string `json:"type"`
	Date          string `json:"date"`
	RelevantQuote string `json:"relevantQuote"`
}

type GeneralMemory struct {
	ID            string            `json:"id"`
	Content       string            `json:"content"`
	Tag           string            `json:"tag"`
	LastUpdated   string            `json:"lastUpdated"`
	ExtractedFrom []SourceReference `json:"extractedFrom"`
}

type Person struct {
	ID                      string            `json:"id"`
	Name                    string            `json:"name"`
	RelationshipType        string            `json:"relationshipType"`
	RelationshipDescription string            `json:"relationshipDescription"`
	FirstMentioned          string            `json:"firstMentioned"`
	LastMentioned           string            `json:"lastMentioned"`
	MentionCount            int               `json:"mentionCount"`
	ExtractedFrom           []SourceReference `json:"extractedFrom"`
}

type Goal struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Type          string            `json:"type"`
	Status        string            `json:"status"`
	Timeframe     string            `json:"timeframe"`
	ExtractedFrom []SourceReference `json:"extractedFrom"`
}

type MemoryStats struct {
	TotalPeople   int `json:"totalPeople"`
	TotalGoals    int `json:"totalGoals"`
	TotalMemories int `json:"totalMemories"`
}

type MemoryData struct {
	People          []Person        `json:"people"`
	Goals           []Goal          `json:"goals"`
	GeneralMemories []GeneralMemory `json:"generalMemories"`
	Stats           MemoryStats     `json:"stats"`
}

// ProcessedData is the pipeline's assembled output. Theme and shadow-trait
// analysis are filled in downstream by the clustering service, never here.
type ProcessedData struct {
	Conversations       Conversations   `json:"conversations"`
	JournalEntries      JournalEntries  `json:"journalEntries"`
	ThemeAnalysis       interface{}     `json:"themeAnalysis"`
	ShadowTraitAnalysis interface{}     `json:"shadowTraitAnalysis"`
	MemoryData          *MemoryData     `json:"memoryData,omitempty"`
}
