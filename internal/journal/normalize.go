package journal

import (
	"math"
	"sort"
	"strings"
	"time"
)

// ParseConversations flattens raw export records into sorted per-conversation
// message lists and a per-date index. Malformed nodes are skipped silently; a
// node survives only if it has a message whose content parts join to
// non-empty text and a resolvable timestamp (message create_time, falling
// back to the conversation's). The operation never fails.
func ParseConversations(raw []ConversationData) *ParseResult {
	result := &ParseResult{
		ByDate: make(DateIndex),
	}

	for _, conv := range raw {
		if conv.Mapping == nil {
			continue
		}

		convID := conv.ConversationID
		if convID == "" {
			convID = conv.ID
		}
		if convID == "" {
			convID = "unknown"
		}

		var messages []ParsedMessage
		earliest := math.Inf(1)
		latest := math.Inf(-1)

		for _, node := range conv.Mapping {
			msg := node.Message
			if msg == nil || msg.Content == nil || len(msg.Content.Parts) == 0 {
				continue
			}

			text := strings.TrimSpace(strings.Join(msg.Content.Parts, " "))
			if text == "" {
				continue
			}

			sender := "unknown"
			if msg.Author != nil && msg.Author.Role != "" {
				sender = msg.Author.Role
			}

			timestamp := msg.CreateTime
			if timestamp == 0 {
				timestamp = conv.CreateTime
			}
			if timestamp == 0 {
				continue
			}

			// UTC calendar date, never the local one.
			date := time.Unix(int64(math.Floor(timestamp)), 0).UTC()
			dateString := date.Format("2006-01-02")

			parsed := ParsedMessage{
				Date:           date,
				DateString:     dateString,
				Sender:         sender,
				Text:           text,
				ConversationID: convID,
				MessageID:      msg.ID,
				Timestamp:      timestamp,
			}

			messages = append(messages, parsed)
			earliest = math.Min(earliest, timestamp)
			latest = math.Max(latest, timestamp)
			result.ByDate[dateString] = append(result.ByDate[dateString], parsed)
		}

		sort.SliceStable(messages, func(i, j int) bool {
			return messages[i].Timestamp < messages[j].Timestamp
		})

		meta := ConversationMetadata{}
		if len(messages) > 0 {
			meta.CreatedAt = earliest
			meta.UpdatedAt = latest
		}

		result.Conversations = append(result.Conversations, Conversation{
			ID:       convID,
			Title:    conv.Title,
			Messages: messages,
			Metadata: meta,
		})
	}

	sort.SliceStable(result.Conversations, func(i, j int) bool {
		return result.Conversations[i].Metadata.CreatedAt < result.Conversations[j].Metadata.CreatedAt
	})

	for date := range result.ByDate {
		bucket := result.ByDate[date]
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].Timestamp < bucket[j].Timestamp
		})
		result.ByDate[date] = bucket
	}

	return result
}

// FilterLastDays returns a new index holding only the chronologically last
// dayLimit dates. A non-positive limit passes the input through unchanged.
// Pure over its input; per-date message ordering is preserved.
func FilterLastDays(byDate DateIndex, dayLimit int) DateIndex {
	if dayLimit <= 0 {
		return byDate
	}

	dates := sortedDates(byDate)
	if len(dates) > dayLimit {
		dates = dates[len(dates)-dayLimit:]
	}

	filtered := make(DateIndex, len(dates))
	for _, date := range dates {
		filtered[date] = byDate[date]
	}
	return filtered
}

// sortedDates returns the index's date keys ascending; lexical order equals
// chronological order for YYYY-MM-DD strings.
func sortedDates(byDate DateIndex) []string {
	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

func userMessages(messages []ParsedMessage) []ParsedMessage {
	var out []ParsedMessage
	for _, msg := range messages {
		if msg.Sender == "user" {
			out = append(out, msg)
		}
	}
	return out
}
