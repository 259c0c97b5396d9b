package catalog

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"

	"github.com/example/readdaily/pkg/models"
)

// FeedImportConfig controls how feed items become catalog articles
type FeedImportConfig struct {
	Genre    string // Genre assigned to every imported item
	Limit    int    // Maximum number of items, 0 means all
	IDPrefix string // Prefix for generated ids
}

// ImportFeedURL fetches an RSS/Atom feed and converts its items to articles
func ImportFeedURL(ctx context.Context, feedURL string, cfg FeedImportConfig) ([]models.Article, error) {
	feed, err := gofeed.NewParser().ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}
	return FeedArticles(feed, cfg), nil
}

// ImportFeedString converts an RSS/Atom document held in memory
func ImportFeedString(doc string, cfg FeedImportConfig) ([]models.Article, error) {
	feed, err := gofeed.NewParser().ParseString(doc)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return FeedArticles(feed, cfg), nil
}

// FeedArticles maps feed items to articles. Items without any text are skipped.
func FeedArticles(feed *gofeed.Feed, cfg FeedImportConfig) []models.Article {
	var out []models.Article
	for _, item := range feed.Items {
		if cfg.Limit > 0 && len(out) >= cfg.Limit {
			break
		}
		content := plainText(item.Content, item.Link)
		if content == "" {
			content = plainText(item.Description, item.Link)
		}
		if content == "" {
			log.Printf("Skipping feed item %q: no content", item.Title)
			continue
		}

		genre := cfg.Genre
		if genre == "" && len(item.Categories) > 0 {
			genre = item.Categories[0]
		}

		out = append(out, models.Article{
			ID:       cfg.IDPrefix + itemID(item),
			Title:    strings.TrimSpace(item.Title),
			Subtitle: summary(item.Description, content),
			Author:   itemAuthor(item, feed),
			Genre:    genre,
			Content:  content,
		})
	}
	return out
}

var reTag = regexp.MustCompile(`(?s)<[^>]*>`)

// plainText strips markup from an HTML fragment. Readability handles full
// pages; short fragments it rejects fall back to dropping the tags.
func plainText(fragment, link string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	if !strings.Contains(fragment, "<") {
		return fragment
	}
	pageURL, err := url.Parse(link)
	if err != nil || pageURL == nil {
		pageURL = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(fragment), pageURL)
	if err == nil {
		if text := collapseSpace(article.TextContent); text != "" {
			return text
		}
	}
	return collapseSpace(reTag.ReplaceAllString(fragment, " "))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func summary(description, content string) string {
	s := plainText(description, "")
	if s == "" || s == content {
		s = content
	}
	const maxLen = 140
	runes := []rune(s)
	if len(runes) > maxLen {
		return strings.TrimSpace(string(runes[:maxLen])) + "…"
	}
	return s
}

func itemID(item *gofeed.Item) string {
	key := item.GUID
	if key == "" {
		key = item.Link
	}
	if key == "" {
		key = item.Title
	}
	sum := sha1.Sum([]byte(key))
	return hex.EncodeToString(sum[:])[:12]
}

func itemAuthor(item *gofeed.Item, feed *gofeed.Feed) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	if len(item.Authors) > 0 && item.Authors[0].Name != "" {
		return item.Authors[0].Name
	}
	if feed.Author != nil && feed.Author.Name != "" {
		return feed.Author.Name
	}
	return feed.Title
}
