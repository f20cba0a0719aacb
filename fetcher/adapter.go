package fetcher

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"

	"github.com/deechtejoao/tuifeed/feed"
)

const maxSummaryLen = 200

var (
	tagRe   = regexp.MustCompile(`<[^>]*>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// Adapter turns one fetched raw payload into a normalized item sequence.
// Parser failures stay inside the feed that produced them.
type Adapter struct {
	parser *gofeed.Parser
	maxAge time.Duration // zero keeps every item regardless of age
}

// NewAdapter creates an adapter that drops items older than maxAge at
// conversion time.
func NewAdapter(maxAge time.Duration) *Adapter {
	return &Adapter{
		parser: gofeed.NewParser(),
		maxAge: maxAge,
	}
}

// Parse converts a raw RSS/Atom payload into items. Items missing a title
// are kept with an empty title; items missing a usable publication date get
// fetchedAt as ordering key so they still appear as "just seen".
func (a *Adapter) Parse(payload []byte, spec feed.Spec, fetchedAt time.Time) ([]feed.Item, error) {
	parsed, err := a.parser.Parse(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed payload: %w", err)
	}

	items := make([]feed.Item, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		if it == nil {
			continue
		}

		published := fetchedAt
		if it.PublishedParsed != nil {
			published = *it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			published = *it.UpdatedParsed
		}

		if a.maxAge > 0 && fetchedAt.Sub(published) > a.maxAge {
			continue
		}

		summary := it.Description
		if summary == "" {
			summary = it.Content
		}

		items = append(items, feed.Item{
			Source:    spec.Name,
			Title:     it.Title,
			Link:      it.Link,
			Published: published,
			Summary:   truncate(stripHTML(summary), maxSummaryLen),
		})
	}

	return items, nil
}

// stripHTML reduces markup-bearing descriptions to plain display text.
func stripHTML(s string) string {
	s = tagRe.ReplaceAllString(s, "")

	replacer := strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#39;", "'",
		"&apos;", "'",
	)
	s = replacer.Replace(s)

	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}
