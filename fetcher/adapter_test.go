package fetcher

import (
	"fmt"
	"testing"
	"time"

	"github.com/deechtejoao/tuifeed/feed"
)

var testSpec = feed.Spec{Name: "Test Feed", URL: "https://example.com/feed.xml"}

func rssPayload(items ...string) []byte {
	doc := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>channel title</title>`
	for _, it := range items {
		doc += it
	}
	doc += `</channel></rss>`
	return []byte(doc)
}

func rssItem(title, link string, published time.Time) string {
	pubDate := ""
	if !published.IsZero() {
		pubDate = fmt.Sprintf("<pubDate>%s</pubDate>", published.Format(time.RFC1123Z))
	}
	return fmt.Sprintf("<item><title>%s</title><link>%s</link>%s</item>", title, link, pubDate)
}

func TestParse_ConvertsItems(t *testing.T) {
	fetchedAt := time.Now()
	published := fetchedAt.Add(-2 * time.Hour).Truncate(time.Second)

	adapter := NewAdapter(0)
	items, err := adapter.Parse(rssPayload(
		rssItem("First", "https://example.com/1", published),
	), testSpec, fetchedAt)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0].Source != testSpec.Name {
		t.Errorf("Source = %q, want the spec name %q", items[0].Source, testSpec.Name)
	}
	if items[0].Title != "First" {
		t.Errorf("Title = %q, want First", items[0].Title)
	}
	if !items[0].Published.Equal(published) {
		t.Errorf("Published = %v, want %v", items[0].Published, published)
	}
}

func TestParse_MissingTitleKept(t *testing.T) {
	fetchedAt := time.Now()
	payload := rssPayload(`<item><link>https://example.com/untitled</link></item>`)

	adapter := NewAdapter(0)
	items, err := adapter.Parse(payload, testSpec, fetchedAt)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected the untitled item to be kept, got %d items", len(items))
	}
	if items[0].Title != "" {
		t.Errorf("Title = %q, want empty", items[0].Title)
	}
}

func TestParse_MissingDateFallsBackToFetchTime(t *testing.T) {
	fetchedAt := time.Now()
	payload := rssPayload(rssItem("No date", "https://example.com/nodate", time.Time{}))

	adapter := NewAdapter(0)
	items, err := adapter.Parse(payload, testSpec, fetchedAt)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if !items[0].Published.Equal(fetchedAt) {
		t.Errorf("Published = %v, want fetch time %v", items[0].Published, fetchedAt)
	}
}

func TestParse_MaxAgeWindow(t *testing.T) {
	fetchedAt := time.Now()

	adapter := NewAdapter(24 * time.Hour)
	items, err := adapter.Parse(rssPayload(
		rssItem("Recent", "https://example.com/recent", fetchedAt.Add(-time.Hour)),
		rssItem("Ancient", "https://example.com/ancient", fetchedAt.Add(-48*time.Hour)),
	), testSpec, fetchedAt)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("Expected the ancient item to be dropped, got %d items", len(items))
	}
	if items[0].Title != "Recent" {
		t.Errorf("Kept item = %q, want Recent", items[0].Title)
	}
}

func TestParse_MalformedPayload(t *testing.T) {
	adapter := NewAdapter(0)
	if _, err := adapter.Parse([]byte("this is not a feed"), testSpec, time.Now()); err == nil {
		t.Error("Expected error for malformed payload")
	}
}

func TestParse_SummaryStripped(t *testing.T) {
	fetchedAt := time.Now()
	payload := rssPayload(
		`<item><title>HTML</title><link>https://example.com/html</link>` +
			`<description>&lt;p&gt;Hello   &amp;amp; &lt;b&gt;world&lt;/b&gt;&lt;/p&gt;</description></item>`,
	)

	adapter := NewAdapter(0)
	items, err := adapter.Parse(payload, testSpec, fetchedAt)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0].Summary != "Hello & world" {
		t.Errorf("Summary = %q, want %q", items[0].Summary, "Hello & world")
	}
}
