package entity

import (
	"sort"
	"time"
)

// NewsCategory classifies a news item for sentiment weighting.
type NewsCategory string

const (
	NewsCategoryCompany      NewsCategory = "company_news"
	NewsCategoryAnnouncement NewsCategory = "announcement"
	NewsCategoryResearch     NewsCategory = "research_report"
)

// NewsItem is one news or announcement entry for a symbol.
type NewsItem struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Source    string       `json:"source"`
	Title     string       `json:"title"`
	Body      string       `json:"body"`
	Category  NewsCategory `json:"category"`
}

// DedupeNews removes duplicate IDs (first occurrence wins) and orders the
// result newest first.
func DedupeNews(items []NewsItem) []NewsItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]NewsItem, 0, len(items))
	for _, it := range items {
		if _, dup := seen[it.ID]; dup {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
