// Package merge combines per-feed fetch results into one globally
// time-ordered timeline. Output order depends only on item content and
// configured feed order, never on fetch arrival order.
package merge

import (
	"sort"
	"time"

	"github.com/deechtejoao/tuifeed/feed"
	"github.com/deechtejoao/tuifeed/fetcher"
)

type entry struct {
	item  feed.Item
	order int
}

// Timeline collects the items of every result into a single sequence
// sorted by publication time descending. Ties break by configured feed
// order, then by title, so the output is reproducible across runs given
// identical inputs. Within one source, items repeating the same
// (link, publishedAt) pair are collapsed; cross-source duplicates are kept
// since two feeds may legitimately syndicate the same link.
func Timeline(results []fetcher.Result) []feed.Item {
	var entries []entry
	for _, r := range results {
		seen := make(map[string]struct{}, len(r.Items))
		for _, it := range r.Items {
			key := it.Link + "\x00" + it.Published.UTC().Format(time.RFC3339Nano)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			entries = append(entries, entry{item: it, order: r.Order})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.item.Published.Equal(b.item.Published) {
			return a.item.Published.After(b.item.Published)
		}
		if a.order != b.order {
			return a.order < b.order
		}
		return a.item.Title < b.item.Title
	})

	items := make([]feed.Item, len(entries))
	for i, e := range entries {
		items[i] = e.item
	}
	return items
}

// Errors extracts the per-feed error list reported alongside the timeline.
func Errors(results []fetcher.Result) []*feed.Error {
	var errs []*feed.Error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}
