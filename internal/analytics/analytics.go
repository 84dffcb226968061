package analytics

import (
	"time"

	"chat-relay/internal/storage"
)

// DailyStats summarises the interaction journal for one calendar day.
type DailyStats struct {
	Date          string              `json:"date"`
	TotalMessages int                 `json:"total_messages"`
	UniqueUsers   int                 `json:"unique_users"`
	TotalTokens   int                 `json:"total_tokens"`
	UserStats     map[int64]UserStats `json:"user_stats"`
}

type UserStats struct {
	UserID   int64 `json:"user_id"`
	Messages int   `json:"messages"`
	Tokens   int   `json:"tokens"`
}

// AnalyzeDailyLogs aggregates the events that happened on targetDate, in
// targetDate's location. Events without a user message are ignored.
func AnalyzeDailyLogs(events []storage.Event, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	stats := &DailyStats{
		Date:      startOfDay.Format("2006-01-02"),
		UserStats: make(map[int64]UserStats),
	}

	for _, event := range events {
		if event.Timestamp.Before(startOfDay) || !event.Timestamp.Before(endOfDay) {
			continue
		}
		if event.UserMessage == "" {
			continue
		}
		stats.TotalMessages++
		stats.TotalTokens += event.TotalTokens

		us := stats.UserStats[event.UserID]
		us.UserID = event.UserID
		us.Messages++
		us.Tokens += event.TotalTokens
		stats.UserStats[event.UserID] = us
	}

	stats.UniqueUsers = len(stats.UserStats)
	return stats
}
