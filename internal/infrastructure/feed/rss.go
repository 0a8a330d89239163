package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"SecurityNewsBot/internal/domain"
	"SecurityNewsBot/internal/ports"
)

const (
	defaultTitle = "Без заголовка"
	bodyLimit    = 4000
)

// Reader fetches one syndication feed (RSS 2.0 or Atom) and returns the
// entries published inside the lookback window, capped per source.
type Reader struct {
	client     *http.Client
	lookback   time.Duration
	maxPerFeed int
	logger     *slog.Logger
	now        func() time.Time
}

var _ ports.FeedReader = (*Reader)(nil)

// NewReader wires an HTTP client; a nil client gets a 20s-timeout default.
func NewReader(client *http.Client, lookbackHours, maxPerFeed int, log *slog.Logger) *Reader {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Reader{
		client:     client,
		lookback:   time.Duration(lookbackHours) * time.Hour,
		maxPerFeed: maxPerFeed,
		logger:     log,
		now:        time.Now,
	}
}

// Fetch downloads and parses the feed. Entries without a publication or
// last-updated timestamp are excluded; the cutoff boundary is inclusive.
func (r *Reader) Fetch(ctx context.Context, source domain.FeedSource) ([]domain.Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "SecurityNewsBot/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", source.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s returned %s", source.Name, resp.Status)
	}

	entries, err := parseFeed(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", source.Name, err)
	}

	cutoff := r.now().UTC().Add(-r.lookback)
	articles := make([]domain.Article, 0, r.maxPerFeed)

	for _, entry := range entries {
		ts := entry.published
		if ts.IsZero() {
			ts = entry.updated
		}
		if ts.IsZero() || ts.Before(cutoff) {
			continue
		}

		title := strings.TrimSpace(entry.title)
		if title == "" {
			title = defaultTitle
		}

		articles = append(articles, domain.Article{
			Title:       title,
			Link:        strings.TrimSpace(entry.link),
			Body:        excerpt(entry.body),
			PublishedAt: ts,
		})

		if len(articles) >= r.maxPerFeed {
			break
		}
	}

	if r.logger != nil {
		r.logger.Debug("feed fetched", "source", source.Name, "entries", len(entries), "eligible", len(articles))
	}

	return articles, nil
}

// excerpt strips markup from a summary field and caps its length.
func excerpt(raw string) string {
	text := raw
	if strings.ContainsAny(raw, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
			text = doc.Text()
		}
	}
	text = strings.TrimSpace(text)

	runes := []rune(text)
	if len(runes) > bodyLimit {
		runes = runes[:bodyLimit]
	}
	return string(runes)
}

type rawEntry struct {
	title     string
	link      string
	body      string
	published time.Time
	updated   time.Time
}

type feedDocument struct {
	XMLName xml.Name
	Channel *rssChannel `xml:"channel"`
	Entries []atomEntry `xml:"entry"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Encoded     string `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
	PubDate     string `xml:"pubDate"`
	DCDate      string `xml:"http://purl.org/dc/elements/1.1/ date"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

func parseFeed(body io.Reader) ([]rawEntry, error) {
	decoder := xml.NewDecoder(body)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var doc feedDocument
	if err := decoder.Decode(&doc); err != nil {
		return nil, err
	}

	if doc.Channel != nil {
		entries := make([]rawEntry, 0, len(doc.Channel.Items))
		for _, item := range doc.Channel.Items {
			body := item.Description
			if body == "" {
				body = item.Encoded
			}
			entries = append(entries, rawEntry{
				title:     item.Title,
				link:      item.Link,
				body:      body,
				published: parseTimestamp(item.PubDate),
				updated:   parseTimestamp(item.DCDate),
			})
		}
		return entries, nil
	}

	entries := make([]rawEntry, 0, len(doc.Entries))
	for _, entry := range doc.Entries {
		body := entry.Summary
		if body == "" {
			body = entry.Content
		}
		entries = append(entries, rawEntry{
			title:     entry.Title,
			link:      pickAtomLink(entry.Links),
			body:      body,
			published: parseTimestamp(entry.Published),
			updated:   parseTimestamp(entry.Updated),
		})
	}
	return entries, nil
}

func pickAtomLink(links []atomLink) string {
	for _, l := range links {
		if l.Rel == "" || l.Rel == "alternate" {
			return l.Href
		}
	}
	if len(links) > 0 {
		return links[0].Href
	}
	return ""
}

var timestampLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
