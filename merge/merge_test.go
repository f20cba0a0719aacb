package merge

import (
	"reflect"
	"testing"
	"time"

	"github.com/deechtejoao/tuifeed/feed"
	"github.com/deechtejoao/tuifeed/fetcher"
)

var base = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func item(source, title, link string, published time.Time) feed.Item {
	return feed.Item{Source: source, Title: title, Link: link, Published: published}
}

func TestTimeline_DescendingByTime(t *testing.T) {
	t1 := base.Add(1 * time.Hour)
	t2 := base.Add(2 * time.Hour)
	t3 := base.Add(3 * time.Hour)

	// Items arrive [T3, T1, T2] from sources [A, B, A].
	results := []fetcher.Result{
		{Spec: feed.Spec{Name: "A"}, Order: 0, Items: []feed.Item{
			item("A", "third", "https://a.example.com/3", t3),
			item("A", "second", "https://a.example.com/2", t2),
		}},
		{Spec: feed.Spec{Name: "B"}, Order: 1, Items: []feed.Item{
			item("B", "first", "https://b.example.com/1", t1),
		}},
	}

	timeline := Timeline(results)

	if len(timeline) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(timeline))
	}
	for i := 1; i < len(timeline); i++ {
		if timeline[i].Published.After(timeline[i-1].Published) {
			t.Errorf("Timeline not descending at index %d: %v before %v",
				i, timeline[i-1].Published, timeline[i].Published)
		}
	}
	if timeline[0].Title != "third" || timeline[2].Title != "first" {
		t.Errorf("Unexpected order: %q, %q, %q", timeline[0].Title, timeline[1].Title, timeline[2].Title)
	}
}

func TestTimeline_DeterministicAcrossInputOrder(t *testing.T) {
	results := []fetcher.Result{
		{Order: 0, Items: []feed.Item{
			item("A", "alpha", "https://a.example.com/1", base),
			item("A", "newer", "https://a.example.com/2", base.Add(time.Hour)),
		}},
		{Order: 1, Items: []feed.Item{
			item("B", "beta", "https://b.example.com/1", base),
		}},
	}
	reversed := []fetcher.Result{results[1], results[0]}

	first := Timeline(results)
	second := Timeline(reversed)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Output depends on result arrival order:\n%+v\nvs\n%+v", first, second)
	}
}

func TestTimeline_TieBreaks(t *testing.T) {
	// Same timestamp everywhere: configured feed order wins, then title.
	results := []fetcher.Result{
		{Order: 0, Items: []feed.Item{
			item("A", "zebra", "https://a.example.com/z", base),
			item("A", "apple", "https://a.example.com/a", base),
		}},
		{Order: 1, Items: []feed.Item{
			item("B", "apple", "https://b.example.com/a", base),
		}},
	}

	timeline := Timeline(results)

	want := []string{"apple", "zebra", "apple"}
	wantSources := []string{"A", "A", "B"}
	for i := range want {
		if timeline[i].Title != want[i] || timeline[i].Source != wantSources[i] {
			t.Errorf("timeline[%d] = %s/%q, want %s/%q",
				i, timeline[i].Source, timeline[i].Title, wantSources[i], want[i])
		}
	}
}

func TestTimeline_SameSourceDedup(t *testing.T) {
	dup := item("A", "repeated", "https://a.example.com/1", base)

	results := []fetcher.Result{
		{Order: 0, Items: []feed.Item{dup, dup, item("A", "other", "https://a.example.com/2", base)}},
	}

	timeline := Timeline(results)
	if len(timeline) != 2 {
		t.Errorf("Expected same-source (link, publishedAt) duplicates collapsed, got %d items", len(timeline))
	}
}

func TestTimeline_CrossSourceDuplicatesKept(t *testing.T) {
	// Two feeds legitimately syndicating the same link stay two entries.
	results := []fetcher.Result{
		{Order: 0, Items: []feed.Item{item("A", "story", "https://shared.example.com/story", base)}},
		{Order: 1, Items: []feed.Item{item("B", "story", "https://shared.example.com/story", base)}},
	}

	timeline := Timeline(results)
	if len(timeline) != 2 {
		t.Errorf("Expected cross-source duplicates kept, got %d items", len(timeline))
	}
}

func TestTimeline_StaleItemsIncluded(t *testing.T) {
	stale := item("A", "old news", "https://a.example.com/1", base)
	stale.Stale = true

	results := []fetcher.Result{
		{Order: 0, Stale: true, Items: []feed.Item{stale},
			Err: &feed.Error{Kind: feed.KindNetwork, URL: "https://a.example.com/feed.xml"}},
		{Order: 1, Items: []feed.Item{item("B", "fresh", "https://b.example.com/1", base.Add(time.Hour))}},
	}

	timeline := Timeline(results)
	if len(timeline) != 2 {
		t.Fatalf("Expected the failed feed's cached items in the timeline, got %d items", len(timeline))
	}
	if !timeline[1].Stale {
		t.Error("Cached item lost its stale tag")
	}
}

func TestErrors(t *testing.T) {
	results := []fetcher.Result{
		{Order: 0},
		{Order: 1, Err: &feed.Error{Kind: feed.KindTimeout, URL: "https://dead.example.com/feed.xml"}},
		{Order: 2, Err: &feed.Error{Kind: feed.KindHTTP, URL: "https://gone.example.com/feed.xml"}},
	}

	errs := Errors(results)
	if len(errs) != 2 {
		t.Fatalf("Expected 2 errors, got %d", len(errs))
	}
	if errs[0].Kind != feed.KindTimeout || errs[1].Kind != feed.KindHTTP {
		t.Errorf("Unexpected error kinds: %s, %s", errs[0].Kind, errs[1].Kind)
	}
}
