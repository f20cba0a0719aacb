package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path"

	"github.com/samber/lo"

	"github.com/deechtejoao/tuifeed/feed"
	"github.com/deechtejoao/tuifeed/logger"
)

// feedsFile mirrors the on-disk feed list: {"feeds": [{"name", "url"}]}.
type feedsFile struct {
	Feeds []feed.Spec `json:"feeds"`
}

// ReadFeeds loads the configured feed list. Entries without a URL are
// dropped with a warning, not fatal to the whole load. An entry without a
// name keeps its URL as display name.
func ReadFeeds(feedsPath string) ([]feed.Spec, error) {
	dat, err := os.ReadFile(feedsPath)
	if err != nil {
		return nil, err
	}
	var file feedsFile
	if err := json.Unmarshal(dat, &file); err != nil {
		return nil, fmt.Errorf("failed to decode feed list at %s with %w", feedsPath, err)
	}

	specs := make([]feed.Spec, 0, len(file.Feeds))
	for _, s := range file.Feeds {
		if s.URL == "" {
			logger.Warnf("dropping feed entry without url (name=%q)", s.Name)
			continue
		}
		if s.Name == "" {
			s.Name = s.URL
		}
		specs = append(specs, s)
	}

	// Identity is the URL: at most one fetch per URL per run.
	deduped := lo.UniqBy(specs, func(s feed.Spec) string { return s.URL })
	if len(deduped) != len(specs) {
		logger.Warnf("dropped %d duplicate feed entries", len(specs)-len(deduped))
	}
	return deduped, nil
}

// WriteFeeds persists the feed list, creating parent directories as needed.
func WriteFeeds(feedsPath string, specs []feed.Spec) error {
	blob, err := json.MarshalIndent(feedsFile{Feeds: specs}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode feed list with %w", err)
	}
	basePath := path.Dir(feedsPath)
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create feed list directory at '%s' with %w", basePath, err)
	}
	if err := os.WriteFile(feedsPath, blob, 0644); err != nil {
		return fmt.Errorf("failed to write feed list at '%s' with %w", feedsPath, err)
	}
	return nil
}

// MergeFeeds appends imported specs to the existing list, URL-keyed: the
// first occurrence of a URL wins, so re-importing the same document is a
// no-op.
func MergeFeeds(existing, imported []feed.Spec) []feed.Spec {
	return lo.UniqBy(append(existing, imported...), func(s feed.Spec) string {
		return s.URL
	})
}
