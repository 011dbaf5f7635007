package journal

import (
	"context"
	"log"
	"sort"

	"github.com/agenthands/ember/internal/async"
)

// Options are the caller-supplied knobs for one pipeline run.
type Options struct {
	// DayLimit restricts journal/memory generation to the trailing N dates.
	// Zero means the pipeline default.
	DayLimit int
}

// Pipeline fans journal-entry generation out across in-window dates with
// bounded concurrency while a single progressive memory-extraction pass runs
// alongside, and assembles the combined result.
type Pipeline struct {
	Entries  *EntryGenerator
	Memories *MemoryExtractor

	// Concurrency caps simultaneously in-flight entry generations.
	Concurrency int
	// DefaultDayLimit applies when Options.DayLimit is zero.
	DefaultDayLimit int
}

func NewPipeline(entries *EntryGenerator, memories *MemoryExtractor, concurrency, defaultDayLimit int) *Pipeline {
	if concurrency <= 0 {
		concurrency = 5
	}
	if defaultDayLimit <= 0 {
		defaultDayLimit = 7
	}
	return &Pipeline{
		Entries:         entries,
		Memories:        memories,
		Concurrency:     concurrency,
		DefaultDayLimit: defaultDayLimit,
	}
}

// Process normalizes the raw export, windows it, and runs entry generation
// and memory extraction over the window. One date's failure is downgraded to
// a missing entry; memory-extraction failure is downgraded to empty memory
// data. The returned conversations are always the full unfiltered set.
func (p *Pipeline) Process(ctx context.Context, raw []ConversationData, opts Options) (*ProcessedData, error) {
	parsed := ParseConversations(raw)

	dayLimit := opts.DayLimit
	if dayLimit <= 0 {
		dayLimit = p.DefaultDayLimit
	}
	window := FilterLastDays(parsed.ByDate, dayLimit)

	dates := sortedDates(window)
	log.Printf("Generating journal entries for %d dates with concurrency limit of %d", len(dates), p.Concurrency)

	tasks := make([]func() (*JournalEntry, error), 0, len(dates))
	for _, dateString := range dates {
		dateString := dateString
		messages := window[dateString]
		tasks = append(tasks, func() (*JournalEntry, error) {
			entry, err := p.Entries.Generate(ctx, messages, dateString)
			if err != nil {
				// One date's failure must not sink the run.
				log.Printf("Failed to generate journal entry for %s: %v", dateString, err)
				return nil, nil
			}
			return entry, nil
		})
	}

	memoryCh := make(chan *MemoryData, 1)
	go func() {
		memory, err := p.Memories.Extract(ctx, window)
		if err != nil {
			log.Printf("Memory extraction failed: %v", err)
			memory = &MemoryData{
				People:          []Person{},
				Goals:           []Goal{},
				GeneralMemories: []GeneralMemory{},
			}
		}
		memoryCh <- memory
	}()

	generated, err := async.RunLimited(ctx, tasks, p.Concurrency)
	memory := <-memoryCh
	if err != nil {
		return nil, err
	}

	entries := make([]JournalEntry, 0, len(generated))
	for _, entry := range generated {
		if entry != nil {
			entries = append(entries, *entry)
		}
	}

	journalEntries := JournalEntries{
		Entries: entries,
		Stats:   JournalStats{TotalEntries: len(entries)},
	}
	if len(entries) > 0 {
		entryDates := make([]string, 0, len(entries))
		for _, entry := range entries {
			entryDates = append(entryDates, entry.Date)
		}
		sort.Strings(entryDates)
		journalEntries.Stats.DateRange = &DateRange{
			Earliest: entryDates[0],
			Latest:   entryDates[len(entryDates)-1],
		}
	}

	conversations := parsed.Conversations
	if conversations == nil {
		conversations = []Conversation{}
	}

	return &ProcessedData{
		Conversations:  Conversations{Conversations: conversations},
		JournalEntries: journalEntries,
		MemoryData:     memory,
	}, nil
}
