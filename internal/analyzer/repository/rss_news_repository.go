package repository

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang-stock-insight/internal/analyzer/config"
	"golang-stock-insight/internal/entity"
	"golang-stock-insight/pkg/logger"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"
)

// rssNewsRepository pulls symbol news from configured RSS feeds. Feed URLs may
// carry a {symbol} placeholder that is substituted per request.
type rssNewsRepository struct {
	parser         *gofeed.Parser
	cfg            config.News
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

// NewRSSNewsRepository creates a new RSS news repository.
func NewRSSNewsRepository(cfg config.News, log *logger.Logger) NewsRepository {
	if cfg.MaxRequestPerMinute == 0 {
		cfg.MaxRequestPerMinute = 30
	}
	secondsPerRequest := time.Minute / time.Duration(cfg.MaxRequestPerMinute)

	parser := gofeed.NewParser()
	parser.UserAgent = "Mozilla/5.0"

	return &rssNewsRepository{
		parser:         parser,
		cfg:            cfg,
		logger:         log,
		requestLimiter: rate.NewLimiter(rate.Every(secondsPerRequest), 1),
	}
}

// GetNews fetches every configured feed, strips HTML from item bodies,
// deduplicates by id and returns at most maxCount items, newest first. A
// single failing feed is logged and skipped; the call fails only when every
// feed fails.
func (r *rssNewsRepository) GetNews(ctx context.Context, symbol string, market entity.Market, maxCount int) ([]entity.NewsItem, error) {
	if len(r.cfg.FeedURLs) == 0 {
		return nil, NewFetchError("news", symbol, fmt.Errorf("no feed urls configured"))
	}

	var items []entity.NewsItem
	var failures int
	for _, feedURL := range r.cfg.FeedURLs {
		feedItems, err := r.fetchFeed(ctx, strings.ReplaceAll(feedURL, "{symbol}", symbol))
		if err != nil {
			if IsCancelled(err) {
				return nil, err
			}
			failures++
			r.logger.Warn("Failed to fetch news feed",
				logger.StringField("feed_url", feedURL),
				logger.StringField("symbol", symbol),
				logger.ErrorField(err),
			)
			continue
		}
		items = append(items, feedItems...)
	}
	if failures == len(r.cfg.FeedURLs) {
		return nil, NewFetchError("news", symbol, fmt.Errorf("all %d feeds failed", failures))
	}

	items = entity.DedupeNews(items)
	if maxCount > 0 && len(items) > maxCount {
		items = items[:maxCount]
	}
	return items, nil
}

func (r *rssNewsRepository) fetchFeed(ctx context.Context, feedURL string) ([]entity.NewsItem, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	feed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]entity.NewsItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		published := time.Now().UTC()
		if it.PublishedParsed != nil {
			published = it.PublishedParsed.UTC()
		} else if it.UpdatedParsed != nil {
			published = it.UpdatedParsed.UTC()
		}

		body := it.Content
		if body == "" {
			body = it.Description
		}

		items = append(items, entity.NewsItem{
			ID:        newsItemID(it),
			Timestamp: published,
			Source:    feed.Title,
			Title:     stripHTML(it.Title),
			Body:      stripHTML(body),
			Category:  categorize(it),
		})
	}
	return items, nil
}

// newsItemID prefers the feed's own GUID and falls back to a hash of the link
// or title, so the same story read from two feeds dedupes to one item.
func newsItemID(it *gofeed.Item) string {
	if it.GUID != "" {
		return it.GUID
	}
	basis := it.Link
	if basis == "" {
		basis = it.Title
	}
	sum := sha1.Sum([]byte(basis))
	return hex.EncodeToString(sum[:])
}

// categorize maps feed categories onto the three news buckets the sentiment
// engine weighs. Everything unrecognized counts as plain company news.
func categorize(it *gofeed.Item) entity.NewsCategory {
	for _, c := range it.Categories {
		switch strings.ToLower(strings.TrimSpace(c)) {
		case "announcement", "announcements", "filing", "filings", "公告":
			return entity.NewsCategoryAnnouncement
		case "research", "research report", "analysis", "研报", "研究报告":
			return entity.NewsCategoryResearch
		}
	}
	return entity.NewsCategoryCompany
}

// stripHTML flattens an HTML fragment to its text content.
func stripHTML(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return strings.TrimSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}
