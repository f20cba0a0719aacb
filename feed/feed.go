// Package feed defines the data model shared across the aggregation
// pipeline: configured feed specs, normalized items and the feed-scoped
// error taxonomy.
package feed

import (
	"fmt"
	"time"
)

// Spec identifies one configured feed. Two specs with the same URL are the
// same feed regardless of display name.
type Spec struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Item is a single normalized entry produced from a feed payload.
type Item struct {
	Source    string // display name of the spec that produced the item
	Title     string // may be empty, the item is still shown
	Link      string
	Published time.Time // fetch time when the payload carries no usable date
	Summary   string
	Stale     bool // served from cache after a failed refetch
}

// Kind classifies feed-scoped failures.
type Kind string

var (
	KindNetwork   = Kind("network")
	KindTimeout   = Kind("timeout")
	KindHTTP      = Kind("http")
	KindMalformed = Kind("malformed")
	KindCacheIO   = Kind("cache_io")
	KindCanceled  = Kind("canceled") // run interrupted by the caller
)

// Error is a per-feed failure. It degrades that single feed's contribution
// and is reported to the caller, never raised as a whole-run failure.
type Error struct {
	Kind    Kind
	URL     string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("'%s' failed with %s (%s)", e.URL, e.Message, e.Kind)
}
