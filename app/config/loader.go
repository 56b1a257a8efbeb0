package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	sourcesFile    = "sources.yaml"
	categoriesFile = "categories.yaml"

	defaultMaxItemsPerSource = 10
)

// Loader handles loading and validation of the pipeline configuration files.
type Loader struct {
	configDir string
}

// NewLoader creates a new configuration loader.
func NewLoader(configDir string) *Loader {
	return &Loader{configDir: configDir}
}

// LoadSources loads and validates sources.yaml.
func (l *Loader) LoadSources() (*Sources, error) {
	data, err := os.ReadFile(filepath.Join(l.configDir, sourcesFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read sources config: %w", err)
	}

	var sources Sources
	if err := yaml.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("failed to parse sources config: %w", err)
	}

	if sources.MaxItemsPerSource == 0 {
		sources.MaxItemsPerSource = defaultMaxItemsPerSource
	}

	if err := l.validateSources(&sources); err != nil {
		return nil, fmt.Errorf("invalid sources config: %w", err)
	}

	return &sources, nil
}

// LoadTaxonomy loads and validates categories.yaml.
func (l *Loader) LoadTaxonomy() (*Taxonomy, error) {
	data, err := os.ReadFile(filepath.Join(l.configDir, categoriesFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read categories config: %w", err)
	}

	var taxonomy Taxonomy
	if err := yaml.Unmarshal(data, &taxonomy); err != nil {
		return nil, fmt.Errorf("failed to parse categories config: %w", err)
	}

	if err := l.validateTaxonomy(&taxonomy); err != nil {
		return nil, fmt.Errorf("invalid categories config: %w", err)
	}

	return &taxonomy, nil
}

func (l *Loader) validateSources(sources *Sources) error {
	for i, feed := range sources.RSSFeeds {
		if feed.URL == "" {
			return fmt.Errorf("rss feed at index %d has no URL", i)
		}
	}
	for i, channel := range sources.YouTubeChannels {
		if channel.ChannelID == "" {
			return fmt.Errorf("youtube channel at index %d has no channel_id", i)
		}
	}
	if sources.MaxItemsPerSource < 0 {
		return fmt.Errorf("max_items_per_source must be non-negative")
	}
	return nil
}

func (l *Loader) validateTaxonomy(taxonomy *Taxonomy) error {
	if len(taxonomy.Groups) == 0 {
		return fmt.Errorf("taxonomy must contain at least one group")
	}

	seen := make(map[string]bool)
	for _, group := range taxonomy.Groups {
		if group.Group == "" {
			return fmt.Errorf("taxonomy group has no name")
		}
		if len(group.Categories) == 0 {
			return fmt.Errorf("taxonomy group %q has no categories", group.Group)
		}
		for _, category := range group.Categories {
			if category.Name == "" {
				return fmt.Errorf("category in group %q has no name", group.Group)
			}
			if seen[category.Name] {
				return fmt.Errorf("duplicate category name: %s", category.Name)
			}
			seen[category.Name] = true
		}
	}

	return nil
}
