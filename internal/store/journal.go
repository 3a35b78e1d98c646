package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// TradeEntry is one executed trade with its reasoning
type TradeEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Ticker    string    `json:"ticker"`
	Action    string    `json:"action"`
	Shares    int       `json:"shares"`
	Price     float64   `json:"price"`
	Reason    string    `json:"reason"`
}

// Journal is the trade-journal collaborator
type Journal interface {
	// LogTrade records one executed trade
	LogTrade(ctx context.Context, entry TradeEntry) error

	// RecentEntries returns the last limit trades formatted for prompt context
	RecentEntries(ctx context.Context, limit int) (string, error)
}

// localJournalCap bounds the local fallback file
const localJournalCap = 100

// SupabaseJournal persists trades to the trade_journal table, falling
// back to a local JSON file when the remote store is unavailable
type SupabaseJournal struct {
	client    *Client
	localFile string
}

// NewJournal creates a journal over the shared store client
func NewJournal(client *Client) *SupabaseJournal {
	return &SupabaseJournal{
		client:    client,
		localFile: "trade_journal.json",
	}
}

// LogTrade records one executed trade
func (j *SupabaseJournal) LogTrade(ctx context.Context, entry TradeEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	if j.client.Available() {
		resp, err := j.client.http.R().
			SetContext(ctx).
			SetHeader("Prefer", "return=minimal").
			SetBody(entry).
			Post("/trade_journal")
		if err == nil && !resp.IsError() {
			return nil
		}
		if err != nil {
			j.client.logger.Warn().Err(err).Msg("Journal insert failed, falling back to local file")
		} else {
			j.client.logger.Warn().
				Int("status", resp.StatusCode()).
				Msg("Journal insert rejected, falling back to local file")
		}
	}

	return j.logLocal(entry)
}

func (j *SupabaseJournal) logLocal(entry TradeEntry) error {
	history := j.readLocal()
	history = append(history, entry)
	if len(history) > localJournalCap {
		history = history[len(history)-localJournalCap:]
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal journal: %w", err)
	}
	if err := os.WriteFile(j.localFile, data, 0o644); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}

func (j *SupabaseJournal) readLocal() []TradeEntry {
	data, err := os.ReadFile(j.localFile)
	if err != nil {
		return nil
	}
	var history []TradeEntry
	if err := json.Unmarshal(data, &history); err != nil {
		return nil
	}
	return history
}

func (j *SupabaseJournal) history(ctx context.Context) []TradeEntry {
	if j.client.Available() {
		var entries []TradeEntry
		resp, err := j.client.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"select": "*",
				"order":  "timestamp.desc",
				"limit":  "100",
			}).
			SetResult(&entries).
			Get("/trade_journal")
		if err == nil && !resp.IsError() {
			return entries
		}
		j.client.logger.Warn().Err(err).Msg("Journal read failed, using local file")
	}
	return j.readLocal()
}

// RecentEntries returns the last limit trades formatted for prompt context
func (j *SupabaseJournal) RecentEntries(ctx context.Context, limit int) (string, error) {
	history := j.history(ctx)
	if len(history) == 0 {
		return "No previous trades recorded.", nil
	}

	sort.Slice(history, func(a, b int) bool {
		return history[a].Timestamp.Before(history[b].Timestamp)
	})
	if len(history) > limit {
		history = history[len(history)-limit:]
	}

	lines := make([]string, 0, len(history))
	for _, e := range history {
		lines = append(lines, fmt.Sprintf("[%s] %s %d %s @ $%.2f | Reason: %s",
			e.Timestamp.Format("2006-01-02 15:04"), e.Action, e.Shares, e.Ticker, e.Price, e.Reason))
	}
	return strings.Join(lines, "\n"), nil
}
