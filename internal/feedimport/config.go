package feedimport

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed config/feed.yaml
var feedYAML embed.FS

// FeedConfig describes the upstream catalog source. It ships embedded so
// a deployment needs no external files; the URL can still be overridden
// per invocation.
type FeedConfig struct {
	Name           string `yaml:"name"`
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	CommitBatch    int    `yaml:"commit_batch"`
	MaxErrors      int    `yaml:"max_errors"`
}

type feedFile struct {
	Feed FeedConfig `yaml:"feed"`
}

func LoadFeedConfig() (FeedConfig, error) {
	raw, err := feedYAML.ReadFile("config/feed.yaml")
	if err != nil {
		return FeedConfig{}, fmt.Errorf("failed to read embedded feed config: %w", err)
	}

	var file feedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return FeedConfig{}, fmt.Errorf("failed to parse feed config: %w", err)
	}

	cfg := file.Feed
	if cfg.URL == "" {
		cfg.URL = DefaultFeedURL
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 60
	}
	if cfg.CommitBatch <= 0 {
		cfg.CommitBatch = 100
	}
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = 100
	}

	return cfg, nil
}
