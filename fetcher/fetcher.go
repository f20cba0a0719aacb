// Package fetcher drives bounded-parallel feed fetches: it consults the
// cache first, refetches stale feeds over the network with conditional
// requests, parses payloads through the adapter and collects exactly one
// outcome per configured feed. A hung or broken feed never blocks the
// others or the overall run.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/deechtejoao/tuifeed/cache"
	"github.com/deechtejoao/tuifeed/feed"
	"github.com/deechtejoao/tuifeed/logger"
)

// Options bound the scheduler's concurrency and timing.
type Options struct {
	Workers        int           // bounded worker pool size
	RequestTimeout time.Duration // independent timeout per feed fetch
	RunTimeout     time.Duration // soft bound on the whole run
	CacheTTL       time.Duration // cache entry freshness window
	Retries        int           // transient network retries per fetch
	UserAgent      string
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 8
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.RunTimeout <= 0 {
		o.RunTimeout = 60 * time.Second
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 15 * time.Minute
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.UserAgent == "" {
		o.UserAgent = "tuifeed/1.0"
	}
	return o
}

// Result is the terminal outcome for one configured feed in one run. A
// failed feed with a usable cache entry carries both stale Items and Err,
// availability over freshness.
type Result struct {
	Spec  feed.Spec
	Order int // position in the configured feed list
	Items []feed.Item
	Stale bool // items were served from cache after a failed refetch
	Err   *feed.Error
}

// Fetcher schedules fetches across all configured feeds.
type Fetcher struct {
	store   cache.Store
	adapter *Adapter
	client  *http.Client
	opts    Options
}

func New(store cache.Store, adapter *Adapter, opts Options) *Fetcher {
	return &Fetcher{
		store:   store,
		adapter: adapter,
		client:  &http.Client{},
		opts:    opts.withDefaults(),
	}
}

type job struct {
	spec  feed.Spec
	order int
}

// FetchAll fetches every spec with bounded concurrency and returns exactly
// one Result per spec, indexed by configured order. Feeds still in flight
// when the run's soft-timeout elapses are failed with KindTimeout, or
// KindCanceled when the caller canceled ctx; feeds already done keep their
// results.
func (f *Fetcher) FetchAll(ctx context.Context, specs []feed.Spec) []Result {
	runCtx, cancel := context.WithTimeout(ctx, f.opts.RunTimeout)
	defer cancel()

	workers := f.opts.Workers
	if workers > len(specs) {
		workers = len(specs)
	}

	jobs := make(chan job)
	// Buffered so workers never block on send after the soft-timeout
	// already filled the remaining slots.
	results := make(chan Result, len(specs))

	for i := 0; i < workers; i++ {
		go f.worker(runCtx, jobs, results)
	}

	go func() {
		defer close(jobs)
		for i, s := range specs {
			select {
			case jobs <- job{spec: s, order: i}:
			case <-runCtx.Done():
				return
			}
		}
	}()

	out := make([]Result, len(specs))
	done := make([]bool, len(specs))
	received := 0
	for received < len(specs) {
		select {
		case r := <-results:
			if !done[r.Order] {
				out[r.Order] = r
				done[r.Order] = true
				received++
			}
		case <-runCtx.Done():
			kind := feed.KindTimeout
			message := "run soft-timeout elapsed"
			if errors.Is(runCtx.Err(), context.Canceled) {
				kind = feed.KindCanceled
				message = "run canceled"
			}
			for i, s := range specs {
				if !done[i] {
					out[i] = f.degrade(s, i, kind, message)
					done[i] = true
					received++
				}
			}
		}
	}
	return out
}

func (f *Fetcher) worker(ctx context.Context, jobs <-chan job, results chan<- Result) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			results <- f.process(ctx, j)
		}
	}
}

// process runs the per-feed state machine from PENDING to a terminal
// state: fresh cache is parsed in place, everything else goes through the
// network with the cached validator, and failures degrade to the stale
// cache entry when one exists.
func (f *Fetcher) process(ctx context.Context, j job) Result {
	url := j.spec.URL
	now := time.Now()

	entry, cached, err := f.store.Get(url)
	if err != nil {
		// Read failure is a miss for this URL only.
		logger.Warnf("cache lookup for '%s' failed with %v", url, err)
		cached = false
	}

	if cached && entry.Fresh(now, f.opts.CacheTTL) {
		items, perr := f.adapter.Parse(entry.Payload, j.spec, entry.FetchedAt)
		if perr != nil {
			return Result{Spec: j.spec, Order: j.order, Err: &feed.Error{
				Kind: feed.KindMalformed, URL: url, Message: perr.Error(),
			}}
		}
		logger.Debugf("'%s' served from fresh cache (%d items)", url, len(items))
		return Result{Spec: j.spec, Order: j.order, Items: items}
	}

	payload, validator, notModified, ferr := f.download(ctx, url, entry, cached)
	if ferr != nil {
		logger.Warnf("fetch of '%s' failed with %v", url, ferr)
		return f.degrade(j.spec, j.order, classify(ferr), ferr.Error())
	}

	if notModified {
		// Unchanged remote resource: reuse the cached payload, refresh
		// only the fetch time.
		entry.FetchedAt = now
		if perr := f.store.Put(entry); perr != nil {
			logger.Warnf("failed to refresh cache entry for '%s' with %v", url, perr)
		}
		items, perr := f.adapter.Parse(entry.Payload, j.spec, now)
		if perr != nil {
			return Result{Spec: j.spec, Order: j.order, Err: &feed.Error{
				Kind: feed.KindMalformed, URL: url, Message: perr.Error(),
			}}
		}
		logger.Debugf("'%s' not modified, cache refreshed", url)
		return Result{Spec: j.spec, Order: j.order, Items: items}
	}

	items, perr := f.adapter.Parse(payload, j.spec, now)
	if perr != nil {
		// Stale cache entry, if any, is kept untouched.
		return f.degrade(j.spec, j.order, feed.KindMalformed, perr.Error())
	}

	if perr := f.store.Put(cache.Entry{
		URL:         url,
		FetchedAt:   now,
		Validator:   validator,
		Payload:     payload,
		PayloadHash: cache.Hash(payload),
	}); perr != nil {
		// Freshly fetched items still flow to the merge even when they
		// cannot be cached for next time.
		logger.Warnf("failed to cache '%s' with %v", url, perr)
	}

	return Result{Spec: j.spec, Order: j.order, Items: items}
}

// degrade produces the FAILED outcome for a feed: last-known cached items
// tagged stale when a usable entry exists, otherwise the error alone.
func (f *Fetcher) degrade(spec feed.Spec, order int, kind feed.Kind, message string) Result {
	res := Result{Spec: spec, Order: order, Err: &feed.Error{
		Kind: kind, URL: spec.URL, Message: message,
	}}

	entry, cached, err := f.store.Get(spec.URL)
	if err != nil || !cached {
		return res
	}
	items, perr := f.adapter.Parse(entry.Payload, spec, entry.FetchedAt)
	if perr != nil {
		return res
	}
	for i := range items {
		items[i].Stale = true
	}
	res.Items = items
	res.Stale = true
	logger.Infof("'%s' degraded to %d cached items", spec.URL, len(items))
	return res
}

// download performs the conditional GET with retries for transient network
// failures. It returns either a new payload with its validator or
// notModified=true when the server confirmed the cached payload.
func (f *Fetcher) download(ctx context.Context, url string, entry cache.Entry, cached bool) (payload []byte, validator string, notModified bool, err error) {
	op := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, f.opts.RequestTimeout)
		defer cancel()

		req, rerr := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
		if rerr != nil {
			return backoff.Permanent(rerr)
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)
		if cached && entry.Validator != "" {
			if isETag(entry.Validator) {
				req.Header.Set("If-None-Match", entry.Validator)
			} else {
				req.Header.Set("If-Modified-Since", entry.Validator)
			}
		}

		resp, derr := f.client.Do(req)
		if derr != nil {
			return derr // transient, retried
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotModified:
			notModified = true
			return nil
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			herr := &feed.Error{
				Kind:    feed.KindHTTP,
				URL:     url,
				Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
			}
			if resp.StatusCode >= 500 {
				return herr // server errors are worth a retry
			}
			return backoff.Permanent(herr)
		}

		body, berr := io.ReadAll(resp.Body)
		if berr != nil {
			return berr
		}
		payload = body
		validator = resp.Header.Get("ETag")
		if validator == "" {
			validator = resp.Header.Get("Last-Modified")
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(f.opts.Retries)),
		ctx,
	)
	err = backoff.Retry(op, policy)
	return payload, validator, notModified, err
}

// classify maps a fetch error to the feed-scoped taxonomy.
func classify(err error) feed.Kind {
	var ferr *feed.Error
	if errors.As(err, &ferr) {
		return ferr.Kind
	}
	if errors.Is(err, context.Canceled) {
		return feed.KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return feed.KindTimeout
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return feed.KindTimeout
	}
	return feed.KindNetwork
}

// isETag distinguishes the two validator shapes a server can hand back.
func isETag(v string) bool {
	return strings.HasPrefix(v, `"`) || strings.HasPrefix(v, "W/")
}
